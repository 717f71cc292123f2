package renderer

import (
	"context"
	"fmt"
	"strings"

	"github.com/use-agent/htmlrender/engine"
	"github.com/use-agent/htmlrender/models"
)

// ImageService converts HTML to PNG or JPEG screenshots.
type ImageService struct {
	pipeline *Pipeline
}

// NewImageService creates an ImageService rendering through p.
func NewImageService(p *Pipeline) *ImageService {
	return &ImageService{pipeline: p}
}

// Convert renders html to an image. opts may be nil.
func (s *ImageService) Convert(ctx context.Context, html string, opts *models.ImageOptions) (*Result, error) {
	if strings.TrimSpace(html) == "" {
		return nil, models.InvalidInput(models.MsgHTMLRequired)
	}

	params, err := resolveScreenshotParams(opts)
	if err != nil {
		return nil, err
	}

	data, err := s.pipeline.WithTab(ctx, html, func(ctx context.Context, tab engine.Tab) ([]byte, error) {
		return tab.Screenshot(ctx, params)
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Data:        data,
		ContentType: "image/" + string(params.Format),
		Filename:    "converted." + string(params.Format),
	}, nil
}

// resolveScreenshotParams merges opts over the defaults: png, full page,
// opaque background. Transparency is dropped for JPEG.
func resolveScreenshotParams(opts *models.ImageOptions) (engine.ScreenshotParams, error) {
	if opts == nil {
		opts = &models.ImageOptions{}
	}

	params := engine.ScreenshotParams{
		Format:   engine.FormatPNG,
		FullPage: true,
	}

	if opts.Type != nil {
		switch f := engine.ImageFormat(strings.ToLower(*opts.Type)); f {
		case engine.FormatPNG, engine.FormatJPEG:
			params.Format = f
		default:
			return params, models.InvalidInput(fmt.Sprintf("unsupported image type: %q (want png or jpeg)", *opts.Type))
		}
	}
	if opts.FullPage != nil {
		params.FullPage = *opts.FullPage
	}
	if opts.Transparent != nil && params.Format == engine.FormatPNG {
		params.OmitBackground = *opts.Transparent
	}
	if opts.Quality != nil && params.Format == engine.FormatJPEG {
		q := *opts.Quality
		if q < 1 || q > 100 {
			return params, models.InvalidInput(fmt.Sprintf("invalid jpeg quality: %d (want 1-100)", q))
		}
		params.Quality = q
	}
	return params, nil
}
