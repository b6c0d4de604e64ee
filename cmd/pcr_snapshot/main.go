package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dgnsrekt/pcr_agent/internal/analyzer"
	"github.com/dgnsrekt/pcr_agent/internal/config"
	"github.com/dgnsrekt/pcr_agent/internal/controller"
	"github.com/dgnsrekt/pcr_agent/internal/market"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	index := flag.String("index", "", "index to fetch (defaults to PCR_INDEX)")
	source := flag.String("source", "", "data source: nse|sim (defaults to PCR_SOURCE)")
	radius := flag.Int("radius", 0, "strikes either side of ATM (defaults to PCR_WINDOW_RADIUS)")
	asJSON := flag.Bool("json", false, "print the snapshot as JSON")
	flag.Parse()

	if *source != "" {
		_ = os.Setenv("PCR_SOURCE", *source)
	}
	if *index != "" {
		_ = os.Setenv("PCR_INDEX", strings.ToUpper(*index))
	}
	if *radius > 0 {
		_ = os.Setenv("PCR_WINDOW_RADIUS", fmt.Sprint(*radius))
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := setupLogger(cfg.LogLevel, strings.Replace(cfg.LogFile, "pcr_controller", "pcr_snapshot", 1)); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cookies market.CookieSource
	if cfg.Source == market.KindNSE && cfg.BrowserBootstrap {
		cookies = market.NewBrowserSession(cfg.CDPURL(), cfg.NSEBaseURL, 3*time.Second, 0)
	}
	src, err := market.Open(cfg.MarketOptions(cookies))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "source: %v\n", err)
		os.Exit(1)
	}

	svc := controller.NewService(src, nil, nil, controller.Options{
		Indices:      cfg.Indices,
		DefaultIndex: cfg.DefaultIndex,
		Analyzer:     cfg.AnalyzerOptions(),
		HistoryCap:   cfg.HistoryCap,
		Location:     cfg.Location(),
	})
	snap, err := svc.RunOnce(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "snapshot failed: %v\n", err)
		if market.IsDataUnavailable(err) {
			_, _ = fmt.Fprintln(os.Stderr, "hint: the provider is blocking or throttling this network; retry later or from another connection")
		}
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "encode: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if err := printSnapshot(os.Stdout, snap); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "print: %v\n", err)
		os.Exit(1)
	}
}

func printSnapshot(w io.Writer, snap controller.Snapshot) error {
	r := snap.Report
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	label := snap.Source
	if snap.Simulated {
		label += " (SIMULATED)"
	}
	fmt.Fprintf(tw, "%s\t%s\t\n", "Index", snap.Symbol)
	fmt.Fprintf(tw, "%s\t%s\t\n", "Source", label)
	fmt.Fprintf(tw, "%s\t%s\t\n", "Last sync", snap.SyncLabel)
	if snap.Expiry != "" {
		fmt.Fprintf(tw, "%s\t%s\t\n", "Expiry", snap.Expiry)
	}
	fmt.Fprintf(tw, "%s\t%.2f\t\n", "Spot", r.Spot)
	fmt.Fprintf(tw, "%s\t%.2f\t\n", "PCR", r.PCR)
	fmt.Fprintf(tw, "%s\t%+.2f\t\n", "PCR vs 1.0", r.PCRDelta)
	fmt.Fprintf(tw, "%s\t%d\t\n", "Chain put OI", r.ChainPutOI)
	fmt.Fprintf(tw, "%s\t%d\t\n", "Chain call OI", r.ChainCallOI)
	fmt.Fprintf(tw, "%s\t%.2f\t\n", "Chain PCR", r.ChainPCR)
	if r.MaxPain != nil {
		fmt.Fprintf(tw, "%s\t%.0f\t\n", "Max pain", *r.MaxPain)
	}
	fmt.Fprintf(tw, "%s\t%d\t\n", "Put OI", r.PutOI)
	fmt.Fprintf(tw, "%s\t%d\t\n", "Call OI", r.CallOI)
	fmt.Fprintf(tw, "%s\t%s\t\n", "Signal", r.Sentiment)
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return printLadder(w, r)
}

func printLadder(w io.Writer, r analyzer.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "\tStrike\tCall OI\tPut OI\tCall Chg\tPut Chg\t")
	for _, row := range r.Window {
		marker := ""
		if row.Strike == r.ATMStrike {
			marker = "ATM"
		}
		fmt.Fprintf(tw, "%s\t%.0f\t%d\t%d\t%d\t%d\t\n", marker, row.Strike, row.CallOI, row.PutOI, row.CallOIChange, row.PutOIChange)
	}
	return tw.Flush()
}

// setupLogger writes to stderr and the rotating file so stdout stays clean
// for the table or JSON.
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

	h := slog.NewTextHandler(io.MultiWriter(os.Stderr, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
