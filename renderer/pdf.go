package renderer

import (
	"context"
	"strings"

	"github.com/use-agent/htmlrender/engine"
	"github.com/use-agent/htmlrender/models"
)

// PDFService converts HTML to PDF documents.
type PDFService struct {
	pipeline *Pipeline
}

// NewPDFService creates a PDFService rendering through p.
func NewPDFService(p *Pipeline) *PDFService {
	return &PDFService{pipeline: p}
}

// Convert renders html to PDF. opts may be nil. Input is validated before
// the engine is touched.
func (s *PDFService) Convert(ctx context.Context, html string, opts *models.PDFOptions) (*Result, error) {
	if strings.TrimSpace(html) == "" {
		return nil, models.InvalidInput(models.MsgHTMLRequired)
	}

	params, err := resolvePDFParams(opts)
	if err != nil {
		return nil, err
	}

	data, err := s.pipeline.WithTab(ctx, html, func(ctx context.Context, tab engine.Tab) ([]byte, error) {
		return tab.PDF(ctx, params)
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Data:        data,
		ContentType: "application/pdf",
		Filename:    "converted.pdf",
	}, nil
}

// resolvePDFParams merges opts over the defaults (A4, 1cm margins).
// Background printing is always on.
func resolvePDFParams(opts *models.PDFOptions) (engine.PDFParams, error) {
	if opts == nil {
		opts = &models.PDFOptions{}
	}

	format := defaultFormat
	if opts.Format != nil {
		format = *opts.Format
	}
	width, height, err := paperSize(format)
	if err != nil {
		return engine.PDFParams{}, err
	}

	m := opts.Margin
	if m == nil {
		m = &models.Margin{}
	}
	var sides [4]float64
	for i, v := range []*models.CSSLength{m.Top, m.Right, m.Bottom, m.Left} {
		if sides[i], err = marginSide(v); err != nil {
			return engine.PDFParams{}, err
		}
	}

	params := engine.PDFParams{
		PaperWidth:      width,
		PaperHeight:     height,
		MarginTop:       sides[0],
		MarginRight:     sides[1],
		MarginBottom:    sides[2],
		MarginLeft:      sides[3],
		PrintBackground: true,
	}
	if opts.Landscape != nil {
		params.Landscape = *opts.Landscape
	}
	return params, nil
}
