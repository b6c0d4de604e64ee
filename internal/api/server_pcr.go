package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/pcr_agent/internal/analyzer"
	"github.com/dgnsrekt/pcr_agent/internal/controller"
)

// ladderColumns are the dashboard column headings for ladder rows.
var ladderColumns = []string{"Strike", "Call OI", "Put OI", "Call Chg", "Put Chg"}

type metrics struct {
	ID          string            `json:"id"`
	Symbol      string            `json:"symbol"`
	Source      string            `json:"source"`
	Simulated   bool              `json:"simulated"`
	Expiry      string            `json:"expiry,omitempty"`
	SyncedAt    time.Time         `json:"synced_at"`
	SyncLabel   string            `json:"sync_label"`
	Spot        float64           `json:"spot"`
	ATMStrike   float64           `json:"atm_strike"`
	PCR         float64           `json:"pcr"`
	PCRDelta    float64           `json:"pcr_delta"`
	MaxPain     *float64          `json:"max_pain,omitempty"`
	PutOI       int64             `json:"put_oi"`
	CallOI      int64             `json:"call_oi"`
	ChainPutOI  int64             `json:"chain_put_oi"`
	ChainCallOI int64             `json:"chain_call_oi"`
	ChainPCR    float64           `json:"chain_pcr"`
	Signal      analyzer.Signal   `json:"signal"`
	Sentiment   string            `json:"sentiment"`
	Momentum    analyzer.Momentum `json:"momentum"`
}

func metricsFromSnapshot(snap controller.Snapshot) metrics {
	r := snap.Report
	return metrics{
		ID:          snap.ID,
		Symbol:      snap.Symbol,
		Source:      snap.Source,
		Simulated:   snap.Simulated,
		Expiry:      snap.Expiry,
		SyncedAt:    snap.SyncedAt,
		SyncLabel:   snap.SyncLabel,
		Spot:        r.Spot,
		ATMStrike:   r.ATMStrike,
		PCR:         r.PCR,
		PCRDelta:    r.PCRDelta,
		MaxPain:     r.MaxPain,
		PutOI:       r.PutOI,
		CallOI:      r.CallOI,
		ChainPutOI:  r.ChainPutOI,
		ChainCallOI: r.ChainCallOI,
		ChainPCR:    r.ChainPCR,
		Signal:      r.Signal,
		Sentiment:   r.Sentiment,
		Momentum:    r.Momentum,
	}
}

type ladderTable struct {
	Symbol    string      `json:"symbol"`
	ATMStrike float64     `json:"atm_strike"`
	Columns   []string    `json:"columns"`
	Rows      [][]float64 `json:"rows"`
}

func ladderTableFrom(symbol string, r analyzer.Report) ladderTable {
	rows := make([][]float64, len(r.Window))
	for i, row := range r.Window {
		rows[i] = []float64{
			row.Strike,
			float64(row.CallOI),
			float64(row.PutOI),
			float64(row.CallOIChange),
			float64(row.PutOIChange),
		}
	}
	return ladderTable{Symbol: symbol, ATMStrike: r.ATMStrike, Columns: ladderColumns, Rows: rows}
}

type analyzeRow struct {
	Strike       float64 `json:"strike" example:"22000"`
	CallOI       int64   `json:"call_oi" minimum:"0"`
	PutOI        int64   `json:"put_oi" minimum:"0"`
	CallOIChange int64   `json:"call_oi_change,omitempty"`
	PutOIChange  int64   `json:"put_oi_change,omitempty"`
}

func registerPCRHandlers(api huma.API, svc Service) {
	type metricsOutput struct {
		Body metrics
	}
	huma.Register(api, huma.Operation{OperationID: "get-pcr", Method: http.MethodGet, Path: "/api/v1/pcr/{symbol}", Summary: "Latest PCR metrics for an index", Tags: []string{"PCR"}},
		func(ctx context.Context, input *symbolInput) (*metricsOutput, error) {
			snap, err := svc.Latest(input.Symbol)
			if err != nil {
				return nil, mapErr(err)
			}
			return &metricsOutput{Body: metricsFromSnapshot(snap)}, nil
		})

	type historyOutput struct {
		Body struct {
			Symbol string                  `json:"symbol"`
			Points []controller.TrendPoint `json:"points"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "get-pcr-history", Method: http.MethodGet, Path: "/api/v1/pcr/{symbol}/history", Summary: "Rolling PCR trend, oldest first", Tags: []string{"PCR"}},
		func(ctx context.Context, input *symbolInput) (*historyOutput, error) {
			points, err := svc.History(input.Symbol)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &historyOutput{}
			out.Body.Symbol = strings.ToUpper(input.Symbol)
			out.Body.Points = points
			return out, nil
		})

	type ladderOutput struct {
		Body ladderTable
	}
	huma.Register(api, huma.Operation{OperationID: "get-pcr-ladder", Method: http.MethodGet, Path: "/api/v1/pcr/{symbol}/ladder", Summary: "Strike window around ATM from the latest snapshot", Tags: []string{"PCR"}},
		func(ctx context.Context, input *symbolInput) (*ladderOutput, error) {
			snap, err := svc.Latest(input.Symbol)
			if err != nil {
				return nil, mapErr(err)
			}
			return &ladderOutput{Body: ladderTableFrom(snap.Symbol, snap.Report)}, nil
		})

	type analyzeInput struct {
		Body struct {
			Spot    float64      `json:"spot" example:"22013.5" doc:"Underlying spot price"`
			Radius  int          `json:"radius,omitempty" minimum:"0" doc:"Strikes either side of ATM; 0 uses the configured radius"`
			MaxPain *bool        `json:"max_pain,omitempty" doc:"Compute max pain; omitted uses the configured toggle"`
			Ladder  []analyzeRow `json:"ladder" doc:"Strike rows in any order"`
		}
	}
	type analyzeOutput struct {
		Body analyzer.Report
	}
	huma.Register(api, huma.Operation{OperationID: "analyze-ladder", Method: http.MethodPost, Path: "/api/v1/analyze", Summary: "Analyze a posted ladder without touching history", Tags: []string{"PCR"}},
		func(ctx context.Context, input *analyzeInput) (*analyzeOutput, error) {
			ladder := make(analyzer.Ladder, len(input.Body.Ladder))
			for i, row := range input.Body.Ladder {
				ladder[i] = analyzer.StrikeRow(row)
			}
			report, err := svc.Analyze(ladder, input.Body.Spot, input.Body.Radius, input.Body.MaxPain)
			if err != nil {
				return nil, mapErr(err)
			}
			return &analyzeOutput{Body: report}, nil
		})
}
