package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Message is a single ntfy notification.
type Message struct {
	Title    string
	Body     string
	Priority string
	Tags     []string
}

// Client posts messages to an ntfy topic URL.
type Client struct {
	http     *http.Client
	endpoint string
}

// NewClient returns a Client for endpoint. A nil httpClient uses http.DefaultClient.
func NewClient(httpClient *http.Client, endpoint string) *Client {
	return &Client{http: httpClient, endpoint: endpoint}
}

// Notify sends msg to the configured endpoint.
func (c *Client) Notify(ctx context.Context, msg Message) error {
	return Send(ctx, c.http, c.endpoint, msg)
}

// Send sends a message to the requested endpoint using HTTP POST.
func Send(ctx context.Context, client *http.Client, endpoint string, msg Message) error {
	if strings.TrimSpace(endpoint) == "" {
		return errors.New("ntfy endpoint is required")
	}
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(msg.Body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "text/plain")
	if msg.Title != "" {
		req.Header.Set("Title", msg.Title)
	}
	if msg.Priority != "" {
		req.Header.Set("Priority", msg.Priority)
	}
	if len(msg.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.Tags, ","))
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy notification failed: status=%d", resp.StatusCode)
	}
	return nil
}
