package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/htmlrender/config"
	"github.com/ysmood/gson"
)

const tabCloseTimeout = 5 * time.Second

// RodLauncher starts headless Chromium through go-rod.
type RodLauncher struct {
	cfg config.BrowserConfig
}

// NewRodLauncher creates a RodLauncher. The process is not started until
// Launch is called.
func NewRodLauncher(cfg config.BrowserConfig) *RodLauncher {
	return &RodLauncher{cfg: cfg}
}

// Launch starts Chromium with the fixed container-friendly flag set and
// connects to it over CDP.
func (r *RodLauncher) Launch(ctx context.Context) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := launcher.New().
		Headless(r.cfg.Headless).
		NoSandbox(true).
		Leakless(r.cfg.Leakless)

	if r.cfg.BrowserBin != "" {
		l = l.Bin(r.cfg.BrowserBin)
	}

	l.Set(flags.Flag("disable-setuid-sandbox"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-accelerated-2d-canvas"))
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", r.cfg.WindowWidth, r.cfg.WindowHeight))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	slog.Debug("chromium started", "controlURL", controlURL, "pid", l.PID())

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("connect to chromium: %w", err)
	}

	return &rodBrowser{
		browser:    browser.NoDefaultDevice(),
		launcher:   l,
		idleWindow: r.cfg.IdleWindow,
	}, nil
}

type rodBrowser struct {
	browser    *rod.Browser
	launcher   *launcher.Launcher
	idleWindow time.Duration
}

func (b *rodBrowser) NewTab(ctx context.Context) (Tab, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}
	return &rodTab{page: page, idleWindow: b.idleWindow}, nil
}

func (b *rodBrowser) PID() int { return b.launcher.PID() }

// Close asks Chromium to exit, kills it if that fails, then removes the
// temporary profile directory.
func (b *rodBrowser) Close() error {
	err := b.browser.Close()
	if err != nil {
		b.launcher.Kill()
	}
	b.launcher.Cleanup()
	return err
}

type rodTab struct {
	page       *rod.Page
	idleWindow time.Duration
}

// Load installs the request-idle listener before setting content so that
// subresource requests fired by the new document are all observed.
func (t *rodTab) Load(ctx context.Context, html string) error {
	p := t.page.Context(ctx)

	waitIdle := p.WaitRequestIdle(t.idleWindow, nil, nil, nil)
	if err := p.SetDocumentContent(html); err != nil {
		return err
	}
	waitIdle()

	if err := p.WaitLoad(); err != nil {
		return err
	}
	return ctx.Err()
}

func (t *rodTab) PDF(ctx context.Context, params PDFParams) ([]byte, error) {
	r, err := t.page.Context(ctx).PDF(&proto.PagePrintToPDF{
		Landscape:       params.Landscape,
		PrintBackground: params.PrintBackground,
		PaperWidth:      floatPtr(params.PaperWidth),
		PaperHeight:     floatPtr(params.PaperHeight),
		MarginTop:       floatPtr(params.MarginTop),
		MarginRight:     floatPtr(params.MarginRight),
		MarginBottom:    floatPtr(params.MarginBottom),
		MarginLeft:      floatPtr(params.MarginLeft),
	})
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading PDF stream: %w", err)
	}
	return data, nil
}

func (t *rodTab) Screenshot(ctx context.Context, params ScreenshotParams) ([]byte, error) {
	p := t.page.Context(ctx)

	req := &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatPng}
	if params.Format == FormatJPEG {
		req.Format = proto.PageCaptureScreenshotFormatJpeg
		if params.Quality > 0 {
			req.Quality = gson.Int(params.Quality)
		}
	}

	// JPEG has no alpha channel, so the override only applies to PNG.
	if params.OmitBackground && params.Format == FormatPNG {
		err := proto.EmulationSetDefaultBackgroundColorOverride{
			Color: &proto.DOMRGBA{R: 0, G: 0, B: 0, A: floatPtr(0)},
		}.Call(p)
		if err != nil {
			return nil, fmt.Errorf("clear default background: %w", err)
		}
	}

	return p.Screenshot(params.FullPage, req)
}

// Close uses a fresh deadline so an expired request context cannot leave
// the tab open.
func (t *rodTab) Close() error {
	p := t.page.Context(context.Background()).Timeout(tabCloseTimeout)
	defer p.CancelTimeout()
	return p.Close()
}

func floatPtr(v float64) *float64 {
	return &v
}
