package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/pcr_agent/internal/controller"
)

func registerStatusHandlers(api huma.API, svc Service) {
	type healthOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			return out, nil
		})

	type statusOutput struct {
		Body controller.Status
	}
	huma.Register(api, huma.Operation{OperationID: "get-status", Method: http.MethodGet, Path: "/api/v1/status", Summary: "Poll loop status", Tags: []string{"Status"}},
		func(ctx context.Context, input *struct{}) (*statusOutput, error) {
			return &statusOutput{Body: svc.Status()}, nil
		})

	type indicesOutput struct {
		Body struct {
			Active  string   `json:"active"`
			Indices []string `json:"indices"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-indices", Method: http.MethodGet, Path: "/api/v1/indices", Summary: "List indices and the active one", Tags: []string{"Index"}},
		func(ctx context.Context, input *struct{}) (*indicesOutput, error) {
			out := &indicesOutput{}
			out.Body.Active = svc.ActiveIndex()
			out.Body.Indices = svc.Indices()
			return out, nil
		})

	type setIndexInput struct {
		Body struct {
			Symbol string `json:"symbol" example:"BANKNIFTY" doc:"Index to poll from the next cycle on"`
		}
	}
	type setIndexOutput struct {
		Body struct {
			Active string `json:"active"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "set-index", Method: http.MethodPut, Path: "/api/v1/index", Summary: "Switch the active index", Tags: []string{"Index"}},
		func(ctx context.Context, input *setIndexInput) (*setIndexOutput, error) {
			active, err := svc.SetIndex(input.Body.Symbol)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &setIndexOutput{}
			out.Body.Active = active
			return out, nil
		})
}
