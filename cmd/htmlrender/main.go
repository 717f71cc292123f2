package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/use-agent/htmlrender/api"
	"github.com/use-agent/htmlrender/api/handler"
	"github.com/use-agent/htmlrender/config"
	"github.com/use-agent/htmlrender/engine"
	"github.com/use-agent/htmlrender/invoice"
	"github.com/use-agent/htmlrender/renderer"
	"go.uber.org/automaxprocs/maxprocs"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	// ── 1. Flags ────────────────────────────────────────────────────
	fs := pflag.NewFlagSet("htmlrender", pflag.ExitOnError)
	configPath := fs.StringP("config", "c", os.Getenv("RENDER_CONFIG"), "path to a YAML config file")
	host := fs.String("host", "", "listen host (overrides config)")
	port := fs.IntP("port", "p", 0, "listen port (overrides config)")
	logLevel := fs.String("log-level", "", "debug, info, warn or error (overrides config)")
	showVersion := fs.BoolP("version", "v", false, "print version and exit")
	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Println(Version)
		return
	}

	// ── 2. Load configuration ───────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// ── 3. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		slog.Debug(fmt.Sprintf(format, args...))
	}))
	slog.Info("htmlrender starting",
		"version", Version,
		"addr", cfg.Server.Addr(),
		"mode", cfg.Server.Mode,
		"renderTimeout", cfg.Render.Timeout,
	)

	// ── 4. Engine handle (browser starts on first conversion) ──────
	handle := engine.NewHandle(engine.NewRodLauncher(cfg.Browser))
	defer func() {
		if err := handle.Shutdown(); err != nil {
			slog.Error("engine shutdown failed", "error", err)
		}
		slog.Info("htmlrender stopped")
	}()

	pipeline := renderer.NewPipeline(handle, cfg.Render.Timeout)
	pdfSvc := renderer.NewPDFService(pipeline)
	imgSvc := renderer.NewImageService(pipeline)
	invSvc := invoice.NewService(pdfSvc, imgSvc, cfg.Invoice)

	// ── 5. Setup router ─────────────────────────────────────────────
	routerCtx, stopRouter := context.WithCancel(context.Background())
	defer stopRouter()

	handler.Version = Version
	router := api.NewRouter(routerCtx, pdfSvc, imgSvc, invSvc, handle, cfg, time.Now())

	// ── 6. Start HTTP server ────────────────────────────────────────
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		slog.Error("HTTP server error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// handle.Shutdown runs via defer and kills Chromium.
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.Format == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(h))
}
