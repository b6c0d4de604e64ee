package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/dgnsrekt/pcr_agent/internal/analyzer"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const (
	DefaultNSEBaseURL = "https://www.nseindia.com"
	optionChainPath   = "/api/option-chain-indices"
	maxPayloadBytes   = 16 << 20
)

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
}

// CookieSource seeds the session jar before the first handshake.
type CookieSource interface {
	Cookies(ctx context.Context) ([]*http.Cookie, error)
}

// NSEConfig configures the live NSE source.
type NSEConfig struct {
	BaseURL       string
	UserAgents    []string
	HandshakeMin  time.Duration
	HandshakeMax  time.Duration
	HomeTimeout   time.Duration
	APITimeout    time.Duration
	MinInterval   time.Duration
	CookieSource  CookieSource
	HTTPTransport http.RoundTripper
	SkipHandshake bool
}

// NSE fetches index option chains from the NSE website, replaying the
// home-page visit a browser makes before calling the JSON API.
type NSE struct {
	cfg     NSEConfig
	client  *http.Client
	limiter *rate.Limiter
	base    *url.URL
	seeded  bool
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewNSE builds a live source with a private cookie jar.
func NewNSE(cfg NSEConfig) (*NSE, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultNSEBaseURL
	}
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = defaultUserAgents
	}
	if cfg.HandshakeMax < cfg.HandshakeMin {
		cfg.HandshakeMax = cfg.HandshakeMin
	}
	if cfg.HomeTimeout <= 0 {
		cfg.HomeTimeout = 10 * time.Second
	}
	if cfg.APITimeout <= 0 {
		cfg.APITimeout = 15 * time.Second
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("nse: parse base url: %w", err)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("nse: cookie jar: %w", err)
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	return &NSE{
		cfg:     cfg,
		client:  &http.Client{Jar: jar, Transport: cfg.HTTPTransport},
		limiter: rate.NewLimiter(limit, 1),
		base:    base,
		sleep:   sleepCtx,
	}, nil
}

func (n *NSE) Name() string { return "nse" }

// Fetch performs the home-page handshake and returns the filtered chain of
// the nearest expiry for symbol.
func (n *NSE) Fetch(ctx context.Context, symbol string) (Chain, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Chain{}, newError(CodeValidation, "symbol is required", nil)
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return Chain{}, newError(CodeDataUnavailable, "rate limiter wait", err)
	}
	n.seedCookies(ctx)

	headers := n.headers()
	if !n.cfg.SkipHandshake {
		if err := n.visitHome(ctx, headers); err != nil {
			return Chain{}, err
		}
		if err := n.sleep(ctx, n.handshakeDelay()); err != nil {
			return Chain{}, newError(CodeDataUnavailable, "handshake wait", err)
		}
	}

	payload, err := n.getOptionChain(ctx, symbol, headers)
	if err != nil {
		return Chain{}, err
	}
	chain, err := payload.toChain(symbol)
	if err != nil {
		return Chain{}, err
	}
	slog.Debug("nse option chain fetched", "symbol", symbol, "spot", chain.Spot, "rows", len(chain.Ladder), "expiry", chain.Expiry)
	return chain, nil
}

func (n *NSE) seedCookies(ctx context.Context) {
	if n.seeded || n.cfg.CookieSource == nil {
		return
	}
	cookies, err := n.cfg.CookieSource.Cookies(ctx)
	if err != nil {
		slog.Warn("nse cookie bootstrap failed, continuing with plain handshake", "error", err)
		return
	}
	n.client.Jar.SetCookies(n.base, cookies)
	n.seeded = true
	slog.Info("nse cookie jar seeded from browser", "cookies", len(cookies))
}

func (n *NSE) headers() http.Header {
	h := make(http.Header)
	h.Set("User-Agent", n.cfg.UserAgents[rand.IntN(len(n.cfg.UserAgents))])
	h.Set("Accept", "application/json, text/plain, */*")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Referer", n.base.String()+"/option-chain")
	return h
}

func (n *NSE) handshakeDelay() time.Duration {
	spread := n.cfg.HandshakeMax - n.cfg.HandshakeMin
	if spread <= 0 {
		return n.cfg.HandshakeMin
	}
	return n.cfg.HandshakeMin + rand.N(spread)
}

func (n *NSE) visitHome(ctx context.Context, headers http.Header) error {
	reqCtx, cancel := context.WithTimeout(ctx, n.cfg.HomeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, n.base.String(), nil)
	if err != nil {
		return newError(CodeDataUnavailable, "build home request", err)
	}
	req.Header = headers.Clone()
	resp, err := n.client.Do(req)
	if err != nil {
		return newError(CodeDataUnavailable, "network error", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Debug("nse home body close failed", "error", err)
		}
	}()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		slog.Debug("nse home body drain failed", "error", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return newError(CodeAccessDenied, "NSE denied access; the IP is likely temporarily blocked", nil)
	}
	return nil
}

func (n *NSE) getOptionChain(ctx context.Context, symbol string, headers http.Header) (*nsePayload, error) {
	reqCtx, cancel := context.WithTimeout(ctx, n.cfg.APITimeout)
	defer cancel()

	endpoint := n.base.String() + optionChainPath + "?symbol=" + url.QueryEscape(symbol)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, newError(CodeDataUnavailable, "build option chain request", err)
	}
	req.Header = headers.Clone()
	resp, err := n.client.Do(req)
	if err != nil {
		return nil, newError(CodeDataUnavailable, "network error", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Debug("nse option chain body close failed", "error", err)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, newError(CodeAccessDenied, "NSE denied access; the IP is likely temporarily blocked", nil)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, newError(CodeDataUnavailable, fmt.Sprintf("option chain status=%d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, newError(CodeDataUnavailable, "read option chain body", err)
	}
	var payload nsePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, newError(CodeDataUnavailable, "malformed option chain payload", err)
	}
	if payload.Records == nil {
		return nil, newError(CodeThrottled, "NSE sent an empty response", nil)
	}
	return &payload, nil
}

type nseLeg struct {
	OpenInterest         float64 `json:"openInterest"`
	ChangeinOpenInterest float64 `json:"changeinOpenInterest"`
}

type nseRow struct {
	StrikePrice float64 `json:"strikePrice"`
	ExpiryDate  string  `json:"expiryDate"`
	CE          *nseLeg `json:"CE"`
	PE          *nseLeg `json:"PE"`
}

type nsePayload struct {
	Records *struct {
		UnderlyingValue float64  `json:"underlyingValue"`
		Timestamp       string   `json:"timestamp"`
		ExpiryDates     []string `json:"expiryDates"`
	} `json:"records"`
	Filtered *struct {
		Data []nseRow `json:"data"`
	} `json:"filtered"`
}

func (p *nsePayload) toChain(symbol string) (Chain, error) {
	if p.Filtered == nil || len(p.Filtered.Data) == 0 {
		return Chain{}, newError(CodeDataUnavailable, "option chain has no strikes", nil)
	}
	ladder := make(analyzer.Ladder, 0, len(p.Filtered.Data))
	for _, row := range p.Filtered.Data {
		sr := analyzer.StrikeRow{Strike: row.StrikePrice}
		if row.CE != nil {
			sr.CallOI = toContracts(row.CE.OpenInterest)
			sr.CallOIChange = toContracts(row.CE.ChangeinOpenInterest)
		}
		if row.PE != nil {
			sr.PutOI = toContracts(row.PE.OpenInterest)
			sr.PutOIChange = toContracts(row.PE.ChangeinOpenInterest)
		}
		ladder = append(ladder, sr)
	}
	sort.SliceStable(ladder, func(i, j int) bool { return ladder[i].Strike < ladder[j].Strike })

	chain := Chain{
		Symbol:    symbol,
		Spot:      p.Records.UnderlyingValue,
		Ladder:    ladder,
		Timestamp: time.Now(),
		Source:    "nse",
	}
	if len(p.Records.ExpiryDates) > 0 {
		chain.Expiry = p.Records.ExpiryDates[0]
	} else if p.Filtered.Data[0].ExpiryDate != "" {
		chain.Expiry = p.Filtered.Data[0].ExpiryDate
	}
	return chain, nil
}

func toContracts(v float64) int64 {
	return int64(math.Round(v))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
