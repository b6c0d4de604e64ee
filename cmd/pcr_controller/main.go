package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/dgnsrekt/pcr_agent/internal/api"
	"github.com/dgnsrekt/pcr_agent/internal/browser"
	"github.com/dgnsrekt/pcr_agent/internal/config"
	"github.com/dgnsrekt/pcr_agent/internal/controller"
	"github.com/dgnsrekt/pcr_agent/internal/market"
	"github.com/dgnsrekt/pcr_agent/internal/netutil"
	"github.com/dgnsrekt/pcr_agent/internal/notify"
	"github.com/dgnsrekt/pcr_agent/internal/relay"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(1)
	}

	slog.Info("pcr controller config loaded",
		"bind_addr", cfg.BindAddr,
		"port_auto_fallback", cfg.PortAutoFallback,
		"port_candidates", cfg.PortCandidates,
		"source", cfg.Source,
		"index", cfg.DefaultIndex,
		"indices", cfg.Indices,
		"refresh", cfg.RefreshInterval,
		"window_radius", cfg.WindowRadius,
		"max_pain", cfg.MaxPainEnabled,
		"profile", cfg.ProfileName,
		"alerts", cfg.AlertsEnabled,
		"browser_bootstrap", cfg.BrowserBootstrap,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cookies market.CookieSource
	if cfg.Source == market.KindNSE && cfg.BrowserBootstrap {
		if cfg.BrowserLaunch {
			launcher := browser.NewLauncher(browser.Config{
				CDPAddress: cfg.CDPAddress,
				CDPPort:    cfg.CDPPort,
				StartURL:   cfg.NSEBaseURL,
				ProfileDir: cfg.BrowserProfile,
				Headless:   cfg.BrowserHeadless,
			})
			if err := launcher.Launch(ctx); err != nil {
				slog.Error("failed to launch browser", "cdp_url", cfg.CDPURL(), "error", err)
				os.Exit(1)
			}
			defer launcher.Stop()
		}
		cookies = market.NewBrowserSession(cfg.CDPURL(), cfg.NSEBaseURL, 3*time.Second, 0)
	}

	src, err := market.Open(cfg.MarketOptions(cookies))
	if err != nil {
		slog.Error("failed to open data source", "source", cfg.Source, "error", err)
		os.Exit(1)
	}
	if cfg.Source == market.KindSim {
		slog.Warn("simulation mode: all published data is synthetic")
	}

	broker := relay.NewBroker()
	var alerter controller.Notifier
	if cfg.AlertsEnabled {
		alerter = notify.NewClient(&http.Client{Timeout: 10 * time.Second}, cfg.NTFYEndpoint)
	}

	svc := controller.NewService(src, broker, alerter, controller.Options{
		Indices:          cfg.Indices,
		DefaultIndex:     cfg.DefaultIndex,
		Analyzer:         cfg.AnalyzerOptions(),
		RefreshInterval:  cfg.RefreshInterval,
		ErrorBackoff:     cfg.ErrorBackoff,
		HistoryCap:       cfg.HistoryCap,
		Location:         cfg.Location(),
		AlertOnAnyChange: cfg.AlertOnAnyChange,
	})

	ln, err := netutil.Listen(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}
	bindAddr := ln.Addr().String()

	// Stream handlers end with ctx so Shutdown does not wait on open dashboards.
	srv := &http.Server{
		Addr:              bindAddr,
		Handler:           api.NewServer(svc, broker),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("poll loop exited", "error", err)
		}
	}()

	go func() {
		slog.Info("pcr controller listening",
			"addr", bindAddr,
			"dashboard", "http://"+bindAddr+"/",
			"docs", "http://"+bindAddr+"/docs",
		)
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("controller server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("controller shutdown failed", "error", err)
	}
	wg.Wait()
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
