package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/pcr_agent/internal/analyzer"
	"github.com/dgnsrekt/pcr_agent/internal/history"
	"github.com/dgnsrekt/pcr_agent/internal/market"
	"github.com/dgnsrekt/pcr_agent/internal/notify"
	"github.com/google/uuid"
)

const (
	FeedReport = "report"
	FeedStatus = "status"

	syncLabelLayout = "15:04:05"
)

// Publisher receives every snapshot and status change.
type Publisher interface {
	PublishJSON(feed string, v any) error
}

// Notifier delivers signal alerts.
type Notifier interface {
	Notify(ctx context.Context, msg notify.Message) error
}

// Options configures a Service.
type Options struct {
	Indices          []string
	DefaultIndex     string
	Analyzer         analyzer.Options
	RefreshInterval  time.Duration
	ErrorBackoff     time.Duration
	HistoryCap       int
	Location         *time.Location
	AlertOnAnyChange bool
}

// Snapshot is the published result of one successful cycle.
type Snapshot struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Source    string          `json:"source"`
	Simulated bool            `json:"simulated"`
	Expiry    string          `json:"expiry,omitempty"`
	SyncedAt  time.Time       `json:"synced_at"`
	SyncLabel string          `json:"sync_label"`
	Report    analyzer.Report `json:"report"`
}

// TrendPoint is one (timestamp, pcr) pair for the trend chart.
type TrendPoint struct {
	At    time.Time `json:"at"`
	Label string    `json:"label"`
	PCR   float64   `json:"pcr"`
}

// Status describes the poll loop.
type Status struct {
	ActiveIndex   string    `json:"active_index"`
	Source        string    `json:"source"`
	Running       bool      `json:"running"`
	Cycles        int64     `json:"cycles"`
	Failures      int64     `json:"failures"`
	LastSync      time.Time `json:"last_sync,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
	LastErrorCode string    `json:"last_error_code,omitempty"`
	LastErrorAt   time.Time `json:"last_error_at,omitempty"`
	Connection    string    `json:"connection"`
}

// Service is the poll-loop actor: it owns the rolling history and the latest
// snapshot per index, and serves read-only copies to the HTTP surface.
type Service struct {
	src       market.Source
	publisher Publisher
	notifier  Notifier
	opts      Options
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error

	mu         sync.RWMutex
	active     string
	book       *history.Book
	latest     map[string]Snapshot
	lastSignal map[string]analyzer.Signal
	status     Status
}

// NewService builds a Service. publisher and notifier may be nil.
func NewService(src market.Source, publisher Publisher, notifier Notifier, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if len(opts.Indices) == 0 {
		opts.Indices = market.Indices
	}
	indices := make([]string, len(opts.Indices))
	for i, idx := range opts.Indices {
		indices[i] = strings.ToUpper(strings.TrimSpace(idx))
	}
	opts.Indices = indices
	active := strings.ToUpper(strings.TrimSpace(opts.DefaultIndex))
	if active == "" {
		active = opts.Indices[0]
	}
	if opts.HistoryCap < 1 {
		opts.HistoryCap = history.DefaultCap
	}
	return &Service{
		src:        src,
		publisher:  publisher,
		notifier:   notifier,
		opts:       opts,
		now:        time.Now,
		sleep:      sleepCtx,
		active:     active,
		book:       history.NewBook(opts.HistoryCap),
		latest:     make(map[string]Snapshot),
		lastSignal: make(map[string]analyzer.Signal),
		status:     Status{ActiveIndex: active, Source: src.Name(), Connection: "pending"},
	}
}

func (s *Service) requireNonEmpty(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return &market.CodedError{Code: market.CodeValidation, Message: fieldName + " is required"}
	}
	return nil
}

// Run polls until ctx is done. Failed cycles are logged and retried after
// RefreshInterval plus ErrorBackoff; they never end the loop.
func (s *Service) Run(ctx context.Context) error {
	s.setRunning(true)
	defer s.setRunning(false)

	slog.Info("poll loop started", "source", s.src.Name(), "index", s.ActiveIndex(), "refresh", s.opts.RefreshInterval)
	for {
		wait := s.opts.RefreshInterval
		if _, err := s.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			wait += s.opts.ErrorBackoff
			if market.IsDataUnavailable(err) {
				slog.Warn("poll cycle skipped, data unavailable",
					"error", err,
					"retry_in", wait,
					"remedy", "switch network (mobile hotspot) or raise PCR_REFRESH_INTERVAL",
				)
			} else {
				slog.Error("poll cycle failed", "error", err, "retry_in", wait)
			}
		}
		if err := s.sleep(ctx, wait); err != nil {
			break
		}
	}
	slog.Info("poll loop stopped")
	return ctx.Err()
}

// RunOnce performs one fetch → analyze → record → publish cycle for the
// active index.
func (s *Service) RunOnce(ctx context.Context) (Snapshot, error) {
	symbol := s.ActiveIndex()
	start := s.now()

	chain, err := s.src.Fetch(ctx, symbol)
	if err != nil {
		s.recordFailure(symbol, err)
		return Snapshot{}, err
	}

	report, err := analyzer.Analyze(chain.Ladder, chain.Spot, s.opts.Analyzer)
	if err != nil {
		if errors.Is(err, analyzer.ErrEmptyLadder) {
			err = &market.CodedError{Code: market.CodeDataUnavailable, Message: "provider returned an empty ladder", Cause: err}
		}
		s.recordFailure(symbol, err)
		return Snapshot{}, err
	}

	syncedAt := chain.Timestamp
	if syncedAt.IsZero() {
		syncedAt = start
	}
	syncedAt = syncedAt.In(s.opts.Location)

	s.mu.Lock()
	values := s.book.Append(symbol, history.Entry{At: syncedAt, PCR: report.PCR})
	report.Momentum = analyzer.ClassifyMomentum(values)
	snap := Snapshot{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Source:    chain.Source,
		Simulated: chain.Simulated,
		Expiry:    chain.Expiry,
		SyncedAt:  syncedAt,
		SyncLabel: syncedAt.Format(syncLabelLayout),
		Report:    report,
	}
	s.latest[symbol] = snap
	prevSignal, hadSignal := s.lastSignal[symbol]
	s.lastSignal[symbol] = report.Signal
	s.status.Cycles++
	s.status.LastSync = syncedAt
	s.status.Connection = "stable"
	if chain.Simulated {
		s.status.Connection = "simulated"
	}
	status := s.status
	s.mu.Unlock()

	slog.Info("poll cycle complete",
		"symbol", symbol,
		"source", chain.Source,
		"spot", report.Spot,
		"pcr", report.PCR,
		"max_pain", report.MaxPain,
		"signal", report.Signal,
		"momentum", report.Momentum,
		"window_rows", len(report.Window),
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)

	s.publish(FeedReport, snap)
	s.publish(FeedStatus, status)
	if s.shouldAlert(hadSignal, prevSignal, report.Signal) {
		s.alert(ctx, snap, prevSignal)
	}
	return snap, nil
}

func (s *Service) recordFailure(symbol string, err error) {
	s.mu.Lock()
	s.status.Failures++
	s.status.LastError = err.Error()
	s.status.LastErrorCode = ""
	var coded *market.CodedError
	if errors.As(err, &coded) {
		s.status.LastErrorCode = coded.Code
	}
	s.status.LastErrorAt = s.now().In(s.opts.Location)
	s.status.Connection = "unavailable"
	status := s.status
	s.mu.Unlock()

	slog.Debug("poll cycle failure recorded", "symbol", symbol, "code", status.LastErrorCode)
	s.publish(FeedStatus, status)
}

func (s *Service) publish(feed string, v any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishJSON(feed, v); err != nil {
		slog.Warn("publish failed", "feed", feed, "error", err)
	}
}

func (s *Service) shouldAlert(hadSignal bool, prev, cur analyzer.Signal) bool {
	if s.notifier == nil {
		return false
	}
	if !hadSignal {
		return cur.Strong()
	}
	if prev == cur {
		return false
	}
	return s.opts.AlertOnAnyChange || cur.Strong()
}

func (s *Service) alert(ctx context.Context, snap Snapshot, prev analyzer.Signal) {
	r := snap.Report
	priority := "default"
	if r.Signal.Strong() {
		priority = "high"
	}
	body := fmt.Sprintf("%s %s at %s: PCR %.2f (%s), spot %.2f", snap.Symbol, r.Sentiment, snap.SyncLabel, r.PCR, r.Momentum, r.Spot)
	if prev != "" {
		body += fmt.Sprintf(", was %s", prev.Sentiment())
	}
	if r.MaxPain != nil {
		body += fmt.Sprintf(", max pain %.0f", *r.MaxPain)
	}
	if snap.Simulated {
		body += " [simulated]"
	}
	msg := notify.Message{
		Title:    fmt.Sprintf("%s PCR %.2f", snap.Symbol, r.PCR),
		Body:     body,
		Priority: priority,
		Tags:     []string{strings.ToLower(snap.Symbol), string(r.Signal)},
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		slog.Warn("signal alert failed", "symbol", snap.Symbol, "signal", r.Signal, "error", err)
		return
	}
	slog.Info("signal alert sent", "symbol", snap.Symbol, "signal", r.Signal, "previous", prev)
}

func (s *Service) setRunning(v bool) {
	s.mu.Lock()
	s.status.Running = v
	s.mu.Unlock()
}

// ActiveIndex returns the index the next cycle will poll.
func (s *Service) ActiveIndex() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Indices returns the configured index symbols.
func (s *Service) Indices() []string {
	return append([]string(nil), s.opts.Indices...)
}

// SetIndex switches the active index from the next cycle on. History of the
// previous index is kept.
func (s *Service) SetIndex(symbol string) (string, error) {
	if err := s.requireNonEmpty(symbol, "symbol"); err != nil {
		return "", err
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !s.knownIndex(symbol) {
		return "", &market.CodedError{Code: market.CodeValidation, Message: fmt.Sprintf("unknown index %q (want one of %s)", symbol, strings.Join(s.opts.Indices, ", "))}
	}
	s.mu.Lock()
	prev := s.active
	s.active = symbol
	s.status.ActiveIndex = symbol
	status := s.status
	s.mu.Unlock()
	if prev != symbol {
		slog.Info("active index switched", "from", prev, "to", symbol)
		s.publish(FeedStatus, status)
	}
	return symbol, nil
}

func (s *Service) knownIndex(symbol string) bool {
	for _, idx := range s.opts.Indices {
		if idx == symbol {
			return true
		}
	}
	return false
}

// Status returns a copy of the poll-loop status.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Latest returns the newest snapshot for symbol.
func (s *Service) Latest(symbol string) (Snapshot, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !s.knownIndex(symbol) {
		return Snapshot{}, &market.CodedError{Code: market.CodeNotFound, Message: "unknown index: " + symbol}
	}
	s.mu.RLock()
	snap, ok := s.latest[symbol]
	s.mu.RUnlock()
	if !ok {
		return Snapshot{}, &market.CodedError{Code: market.CodeNotFound, Message: "no snapshot yet for " + symbol}
	}
	return snap, nil
}

// History returns the rolling PCR trend for symbol, oldest first.
func (s *Service) History(symbol string) ([]TrendPoint, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !s.knownIndex(symbol) {
		return nil, &market.CodedError{Code: market.CodeNotFound, Message: "unknown index: " + symbol}
	}
	entries := s.book.Entries(symbol)
	points := make([]TrendPoint, len(entries))
	for i, e := range entries {
		at := e.At.In(s.opts.Location)
		points[i] = TrendPoint{At: at, Label: at.Format(syncLabelLayout), PCR: e.PCR}
	}
	return points, nil
}

// Analyze runs the analyzer on a caller-supplied ladder. Rows are sorted by
// strike first. radius <= 0 and a nil maxPain fall back to the configured
// options. History is not touched.
func (s *Service) Analyze(ladder analyzer.Ladder, spot float64, radius int, maxPain *bool) (analyzer.Report, error) {
	if len(ladder) == 0 {
		return analyzer.Report{}, &market.CodedError{Code: market.CodeValidation, Message: "ladder must contain at least one strike", Cause: analyzer.ErrEmptyLadder}
	}
	sorted := append(analyzer.Ladder(nil), ladder...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Strike < sorted[j].Strike })

	opts := s.opts.Analyzer
	if radius > 0 {
		opts.Radius = radius
	}
	if maxPain != nil {
		opts.MaxPain = *maxPain
	}
	return analyzer.Analyze(sorted, spot, opts)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
