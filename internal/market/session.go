package market

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// BrowserSession harvests NSE cookies from a real Chromium tab over CDP.
// The site sets its bot-mitigation cookies from JavaScript, which a plain
// HTTP handshake cannot run.
type BrowserSession struct {
	cdpURL  string
	homeURL string
	settle  time.Duration
	timeout time.Duration
}

// NewBrowserSession targets the Chromium remote-debugging endpoint at cdpURL.
func NewBrowserSession(cdpURL, homeURL string, settle, timeout time.Duration) *BrowserSession {
	if homeURL == "" {
		homeURL = DefaultNSEBaseURL
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &BrowserSession{cdpURL: cdpURL, homeURL: homeURL, settle: settle, timeout: timeout}
}

// Cookies opens a fresh tab on the home page and returns its cookies.
func (b *BrowserSession) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, b.cdpURL)
	defer allocCancel()

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()

	runCtx, cancel := context.WithTimeout(tabCtx, b.timeout)
	defer cancel()

	var raw []*network.Cookie
	err := chromedp.Run(runCtx,
		network.Enable(),
		chromedp.Navigate(b.homeURL),
		chromedp.Sleep(b.settle),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			raw, err = network.GetCookies().Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("browser session: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		})
	}
	slog.Debug("browser session cookies harvested", "url", b.homeURL, "count", len(cookies))
	return cookies, nil
}
