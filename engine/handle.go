package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/use-agent/htmlrender/models"
)

// Handle owns the lifecycle of the single rendering-engine process.
// The process is launched on first Acquire and reused until Shutdown or
// Invalidate. It is safe for concurrent use.
type Handle struct {
	launcher Launcher

	mu       sync.Mutex
	browser  Browser
	launches atomic.Int64
	active   atomic.Int32
}

// NewHandle creates a Handle that starts processes with l. No process is
// started until the first Acquire.
func NewHandle(l Launcher) *Handle {
	return &Handle{launcher: l}
}

// Acquire returns the running browser, launching one if needed. Concurrent
// callers on a cold handle observe a single launch. A failed launch leaves
// the handle cold so the next call retries.
func (h *Handle) Acquire(ctx context.Context) (Browser, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.browser != nil {
		return h.browser, nil
	}

	b, err := h.launcher.Launch(ctx)
	if err != nil {
		slog.Error("engine launch failed", "error", err)
		return nil, models.NewRenderError(
			models.ErrCodeEngineLaunch,
			"failed to launch rendering engine",
			err,
		)
	}
	h.browser = b
	n := h.launches.Add(1)
	slog.Info("engine launched", "pid", b.PID(), "launches", n)
	return b, nil
}

// Shutdown terminates the running browser, if any, and clears the
// reference. Calling it on a cold handle is a no-op.
func (h *Handle) Shutdown() error {
	h.mu.Lock()
	b := h.browser
	h.browser = nil
	h.mu.Unlock()

	if b == nil {
		return nil
	}
	slog.Info("engine shutting down", "pid", b.PID())
	return b.Close()
}

// Invalidate tears down b if it is still the running browser. The pipeline
// calls it when b can no longer open tabs; a stale b that was already
// replaced is left alone.
func (h *Handle) Invalidate(b Browser) {
	h.mu.Lock()
	if h.browser != b {
		h.mu.Unlock()
		return
	}
	h.browser = nil
	h.mu.Unlock()

	slog.Warn("engine invalidated after fatal error", "pid", b.PID())
	if err := b.Close(); err != nil {
		slog.Warn("closing invalidated engine", "error", err)
	}
}

// TabOpened and TabClosed maintain the active-tab gauge reported by Stats.
func (h *Handle) TabOpened() { h.active.Add(1) }
func (h *Handle) TabClosed() { h.active.Add(-1) }

// Stats returns a snapshot of the engine state.
func (h *Handle) Stats() models.EngineStats {
	h.mu.Lock()
	b := h.browser
	h.mu.Unlock()

	s := models.EngineStats{
		Running:    b != nil,
		Launches:   h.launches.Load(),
		ActiveTabs: int(h.active.Load()),
	}
	if b != nil {
		s.PID = b.PID()
	}
	return s
}
