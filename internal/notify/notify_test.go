package notify

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestNotifyPostsMessage(t *testing.T) {
	ctx := context.Background()

	var receivedMethod string
	var receivedPath string
	var receivedBody string
	var receivedTitle string
	var receivedPriority string
	var receivedTags string

	client := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			receivedMethod = r.Method
			receivedPath = r.URL.Path
			receivedTitle = r.Header.Get("Title")
			receivedPriority = r.Header.Get("Priority")
			receivedTags = r.Header.Get("Tags")
			rawBody, err := io.ReadAll(r.Body)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			receivedBody = string(rawBody)
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader("ok")),
				Header:     make(http.Header),
			}, nil
		}),
	}

	msg := Message{Title: "NIFTY PCR 1.52", Body: "Strong Bullish (Overbought)", Priority: "high", Tags: []string{"chart_with_upwards_trend", "nifty"}}
	if err := NewClient(client, "http://example.com/pcr").Notify(ctx, msg); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if got, want := receivedMethod, http.MethodPost; got != want {
		t.Fatalf("method = %q; want %q", got, want)
	}
	if got, want := receivedPath, "/pcr"; got != want {
		t.Fatalf("path = %q; want %q", got, want)
	}
	if got, want := receivedBody, msg.Body; got != want {
		t.Fatalf("body = %q; want %q", got, want)
	}
	if receivedTitle != msg.Title || receivedPriority != "high" {
		t.Fatalf("headers title=%q priority=%q", receivedTitle, receivedPriority)
	}
	if got, want := receivedTags, "chart_with_upwards_trend,nifty"; got != want {
		t.Fatalf("tags = %q; want %q", got, want)
	}
}

func TestSendReturnsErrorForServerError(t *testing.T) {
	ctx := context.Background()

	client := &http.Client{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusInternalServerError,
				Body:       io.NopCloser(strings.NewReader("server failure")),
				Header:     make(http.Header),
			}, nil
		}),
	}

	err := Send(ctx, client, "http://example.com/pcr", Message{Body: "x"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "ntfy notification failed") {
		t.Fatalf("error = %q; want to contain %q", err, "ntfy notification failed")
	}
}

func TestSendDisallowsMissingEndpoint(t *testing.T) {
	ctx := context.Background()
	err := Send(ctx, http.DefaultClient, "", Message{Body: "x"})
	if err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}
