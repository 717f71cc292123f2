package engine

import (
	"context"
)

// Browser is a running rendering-engine process.
type Browser interface {
	// NewTab opens an isolated rendering session.
	NewTab(ctx context.Context) (Tab, error)

	// PID returns the OS process id, or 0 when unknown.
	PID() int

	// Close terminates the process.
	Close() error
}

// Tab is a single-use rendering session (one browser tab).
// A Tab is owned by exactly one conversion and must be closed by it.
type Tab interface {
	// Load sets the document content and blocks until network activity
	// settles or ctx is done.
	Load(ctx context.Context, html string) error

	// PDF prints the loaded document.
	PDF(ctx context.Context, p PDFParams) ([]byte, error)

	// Screenshot captures the loaded document.
	Screenshot(ctx context.Context, p ScreenshotParams) ([]byte, error)

	Close() error
}

// Launcher starts a new Browser. Handle calls it at most once per running
// process.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context) (Browser, error)

func (f LauncherFunc) Launch(ctx context.Context) (Browser, error) { return f(ctx) }

// PDFParams are the resolved print settings. Lengths are in inches.
type PDFParams struct {
	PaperWidth   float64
	PaperHeight  float64
	MarginTop    float64
	MarginRight  float64
	MarginBottom float64
	MarginLeft   float64
	Landscape    bool

	// PrintBackground is always set by the PDF service.
	PrintBackground bool
}

// ImageFormat is the screenshot encoding.
type ImageFormat string

const (
	FormatPNG  ImageFormat = "png"
	FormatJPEG ImageFormat = "jpeg"
)

// ScreenshotParams are the resolved capture settings.
type ScreenshotParams struct {
	Format         ImageFormat
	FullPage       bool
	OmitBackground bool
	Quality        int // 0 means engine default; JPEG only
}
