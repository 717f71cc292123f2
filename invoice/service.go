package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/htmlrender/config"
	"github.com/use-agent/htmlrender/models"
	"github.com/use-agent/htmlrender/renderer"
)

// OutputFormat selects the artifact produced for a statement.
type OutputFormat string

const (
	OutputPDF   OutputFormat = "pdf"
	OutputImage OutputFormat = "image"
)

// ParseOutputFormat accepts "pdf" or "image" in any letter case.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputPDF, OutputImage:
		return f, nil
	default:
		return "", models.InvalidInput(fmt.Sprintf("unsupported output_format %q (want pdf or image)", s))
	}
}

// Service renders invoice statements through the shared PDF and image
// services.
type Service struct {
	pdf *renderer.PDFService
	img *renderer.ImageService
	cfg config.InvoiceConfig
	now func() time.Time
}

// NewService creates a Service. cfg supplies the currency and the default
// thresholds.
func NewService(pdf *renderer.PDFService, img *renderer.ImageService, cfg config.InvoiceConfig) *Service {
	return &Service{pdf: pdf, img: img, cfg: cfg, now: time.Now}
}

// DefaultThresholds returns the configured red and yellow day counts.
func (s *Service) DefaultThresholds() Thresholds {
	return Thresholds{Red: s.cfg.RedDays, Yellow: s.cfg.YellowDays}
}

// Generate builds the statement for invoices, renders it and converts it
// to format. Input errors surface before the engine is touched.
func (s *Service) Generate(ctx context.Context, invoices []Invoice, format OutputFormat, th Thresholds) (*renderer.Result, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}

	st, err := NewProcessor(th, s.cfg.Currency, s.now).Process(invoices)
	if err != nil {
		return nil, err
	}
	html, err := RenderHTML(st)
	if err != nil {
		return nil, models.NewRenderError(models.ErrCodeInternal, "failed to render invoice template", err)
	}

	slog.Info("generating invoice statement",
		"format", format,
		"invoices", len(invoices),
		"red", th.Red,
		"yellow", th.Yellow,
	)

	switch format {
	case OutputPDF:
		return s.pdf.Convert(ctx, html, nil)
	case OutputImage:
		return s.img.Convert(ctx, html, nil)
	default:
		return nil, models.InvalidInput(fmt.Sprintf("unsupported output_format %q (want pdf or image)", format))
	}
}
