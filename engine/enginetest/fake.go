// Package enginetest provides an in-memory engine for tests that must not
// start Chromium.
package enginetest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/use-agent/htmlrender/engine"
)

// Signatures returned by the fake exports.
var (
	PDFSignature  = []byte("%PDF-1.7\n")
	PNGSignature  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	JPEGSignature = []byte{0xff, 0xd8, 0xff}
)

// ErrBrowserClosed is returned by NewTab on a closed fake browser.
var ErrBrowserClosed = errors.New("enginetest: browser closed")

// Launcher is a fake engine.Launcher. Set the exported fields before use
// to inject failures and do not change them while calls are in flight.
type Launcher struct {
	LaunchErr   error
	LaunchDelay time.Duration

	NewTabErr  error
	LoadErr    error
	ExportErr  error
	CloseErr   error
	BlockLoad  bool // Load waits for ctx to be done
	closeCalls atomic.Int64

	mu       sync.Mutex
	browsers []*Browser
	tabs     []*Tab
	launches atomic.Int64
}

// Launch implements engine.Launcher.
func (l *Launcher) Launch(ctx context.Context) (engine.Browser, error) {
	if l.LaunchDelay > 0 {
		time.Sleep(l.LaunchDelay)
	}
	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}

	n := l.launches.Add(1)
	b := &Browser{l: l, pid: 1000 + int(n)}

	l.mu.Lock()
	l.browsers = append(l.browsers, b)
	l.mu.Unlock()
	return b, nil
}

// Launches returns how many browsers were started.
func (l *Launcher) Launches() int { return int(l.launches.Load()) }

// Browsers returns every browser started so far.
func (l *Launcher) Browsers() []*Browser {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Browser(nil), l.browsers...)
}

// Tabs returns every tab opened so far.
func (l *Launcher) Tabs() []*Tab {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Tab(nil), l.tabs...)
}

// TabCloseCalls returns the total number of Tab.Close calls.
func (l *Launcher) TabCloseCalls() int { return int(l.closeCalls.Load()) }

// Browser is a fake engine.Browser.
type Browser struct {
	l      *Launcher
	pid    int
	closes atomic.Int64
}

func (b *Browser) NewTab(ctx context.Context) (engine.Tab, error) {
	if b.Closes() > 0 {
		return nil, ErrBrowserClosed
	}
	if b.l.NewTabErr != nil {
		return nil, b.l.NewTabErr
	}
	t := &Tab{l: b.l}
	b.l.mu.Lock()
	b.l.tabs = append(b.l.tabs, t)
	b.l.mu.Unlock()
	return t, nil
}

func (b *Browser) PID() int { return b.pid }

func (b *Browser) Close() error {
	b.closes.Add(1)
	return nil
}

// Closes returns how many times Close was called.
func (b *Browser) Closes() int { return int(b.closes.Load()) }

// Tab is a fake engine.Tab that records what it was asked to do.
type Tab struct {
	l *Launcher

	mu         sync.Mutex
	html       string
	pdfParams  *engine.PDFParams
	shotParams *engine.ScreenshotParams
	closes     int
}

func (t *Tab) Load(ctx context.Context, html string) error {
	t.mu.Lock()
	t.html = html
	t.mu.Unlock()

	if t.l.BlockLoad {
		<-ctx.Done()
		return ctx.Err()
	}
	return t.l.LoadErr
}

func (t *Tab) PDF(ctx context.Context, p engine.PDFParams) ([]byte, error) {
	t.mu.Lock()
	t.pdfParams = &p
	t.mu.Unlock()

	if t.l.ExportErr != nil {
		return nil, t.l.ExportErr
	}
	return append(append([]byte(nil), PDFSignature...), "fake document"...), nil
}

func (t *Tab) Screenshot(ctx context.Context, p engine.ScreenshotParams) ([]byte, error) {
	t.mu.Lock()
	t.shotParams = &p
	t.mu.Unlock()

	if t.l.ExportErr != nil {
		return nil, t.l.ExportErr
	}
	sig := PNGSignature
	if p.Format == engine.FormatJPEG {
		sig = JPEGSignature
	}
	return append(append([]byte(nil), sig...), "fake image"...), nil
}

func (t *Tab) Close() error {
	t.mu.Lock()
	t.closes++
	t.mu.Unlock()
	t.l.closeCalls.Add(1)
	return t.l.CloseErr
}

// HTML returns the content passed to Load.
func (t *Tab) HTML() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.html
}

// PDFParams returns the params of the last PDF call, or nil.
func (t *Tab) PDFParams() *engine.PDFParams {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pdfParams
}

// ScreenshotParams returns the params of the last Screenshot call, or nil.
func (t *Tab) ScreenshotParams() *engine.ScreenshotParams {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.shotParams
}

// Closes returns how many times Close was called on this tab.
func (t *Tab) Closes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closes
}
