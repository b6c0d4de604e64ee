package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/pcr_agent/internal/analyzer"
	"github.com/dgnsrekt/pcr_agent/internal/controller"
	"github.com/dgnsrekt/pcr_agent/internal/market"
	"github.com/dgnsrekt/pcr_agent/internal/relay"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Service interface {
	Status() controller.Status
	Indices() []string
	ActiveIndex() string
	SetIndex(symbol string) (string, error)
	Latest(symbol string) (controller.Snapshot, error)
	History(symbol string) ([]controller.TrendPoint, error)
	Analyze(ladder analyzer.Ladder, spot float64, radius int, maxPain *bool) (analyzer.Report, error)
}

type symbolInput struct {
	Symbol string `path:"symbol" example:"NIFTY" doc:"Index symbol (NIFTY, BANKNIFTY, FINNIFTY, MIDCPNIFTY)"`
}

// NewServer builds the HTTP surface. broker may be nil, in which case the
// stream endpoints are not mounted.
func NewServer(svc Service, broker *relay.Broker) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("PCR Agent API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", htmlPage(docsHTML, "docs"))
	router.Get("/docs/stream", htmlPage(streamDocsHTML, "stream docs"))
	router.Get("/", htmlPage(dashboardHTML, "dashboard"))

	if broker != nil {
		router.Get("/api/v1/stream", relay.SSEHandler(broker))
		router.Get("/api/v1/ws", relay.WSHandler(broker))
	}

	registerStatusHandlers(api, svc)
	registerPCRHandlers(api, svc)

	return router
}

func htmlPage(body, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write([]byte(body)); err != nil {
			slog.Debug("html response write failed", "page", name, "error", err)
		}
	}
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *market.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case market.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case market.CodeNotFound:
			return huma.Error404NotFound(coded.Message)
		case market.CodeDataUnavailable, market.CodeAccessDenied:
			return huma.Error502BadGateway(coded.Message)
		case market.CodeThrottled:
			return huma.Error503ServiceUnavailable(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	if errors.Is(err, analyzer.ErrEmptyLadder) {
		return huma.Error400BadRequest(err.Error())
	}
	return huma.Error500InternalServerError(err.Error())
}
