package renderer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/use-agent/htmlrender/engine"
	"github.com/use-agent/htmlrender/models"
)

// TabFunc produces an artifact from a tab whose content is loaded.
type TabFunc func(ctx context.Context, tab engine.Tab) ([]byte, error)

// Pipeline runs one conversion against the shared engine: acquire the
// browser, open a tab, load the HTML, export, close the tab.
type Pipeline struct {
	handle  *engine.Handle
	timeout time.Duration
}

// NewPipeline creates a Pipeline. timeout bounds each conversion; zero
// means no bound beyond the caller's context.
func NewPipeline(h *engine.Handle, timeout time.Duration) *Pipeline {
	return &Pipeline{handle: h, timeout: timeout}
}

// Handle returns the engine handle the pipeline renders with.
func (p *Pipeline) Handle() *engine.Handle { return p.handle }

// WithTab loads html into a fresh tab and passes it to fn. The tab is closed
// on every path; a close failure is logged and never replaces the error
// returned by load or fn.
func (p *Pipeline) WithTab(ctx context.Context, html string, fn TabFunc) ([]byte, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	browser, err := p.handle.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	tab, err := browser.NewTab(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.handle.Invalidate(browser)
		}
		return nil, categorizeError(err, "failed to open rendering context")
	}
	p.handle.TabOpened()

	defer func() {
		if closeErr := tab.Close(); closeErr != nil {
			slog.Warn("cleanup: failed to close rendering context", "error", closeErr)
		}
		p.handle.TabClosed()
	}()

	if err := tab.Load(ctx, html); err != nil {
		return nil, categorizeError(err, "failed to load HTML content")
	}

	data, err := fn(ctx, tab)
	if err != nil {
		return nil, categorizeError(err, "failed to export rendered document")
	}
	return data, nil
}

// categorizeError wraps raw errors into typed RenderErrors so the API layer
// can map them to appropriate HTTP status codes. Errors that already carry
// a code pass through untouched.
func categorizeError(err error, msg string) error {
	var re *models.RenderError
	switch {
	case errors.As(err, &re):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewRenderError(models.ErrCodeTimeout, "conversion timed out", err)
	case errors.Is(err, context.Canceled):
		return models.NewRenderError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewRenderError(models.ErrCodeRender, msg, err)
	}
}
