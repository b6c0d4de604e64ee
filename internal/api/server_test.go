package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/pcr_agent/internal/analyzer"
	"github.com/dgnsrekt/pcr_agent/internal/controller"
	"github.com/dgnsrekt/pcr_agent/internal/market"
	"github.com/dgnsrekt/pcr_agent/internal/relay"
)

type stubService struct {
	active     string
	snap       *controller.Snapshot
	points     []controller.TrendPoint
	latestErr  error
	gotRadius  int
	gotMaxPain *bool
	gotLadder  analyzer.Ladder
}

func (s *stubService) Status() controller.Status {
	return controller.Status{ActiveIndex: s.ActiveIndex(), Source: "sim", Cycles: 3, Connection: "simulated"}
}

func (s *stubService) Indices() []string { return market.Indices }

func (s *stubService) ActiveIndex() string {
	if s.active == "" {
		return "NIFTY"
	}
	return s.active
}

func (s *stubService) SetIndex(symbol string) (string, error) {
	symbol = strings.ToUpper(symbol)
	for _, idx := range market.Indices {
		if idx == symbol {
			s.active = symbol
			return symbol, nil
		}
	}
	return "", &market.CodedError{Code: market.CodeValidation, Message: "unknown index " + symbol}
}

func (s *stubService) Latest(symbol string) (controller.Snapshot, error) {
	if s.latestErr != nil {
		return controller.Snapshot{}, s.latestErr
	}
	if s.snap == nil {
		return controller.Snapshot{}, &market.CodedError{Code: market.CodeNotFound, Message: "no snapshot yet for " + symbol}
	}
	return *s.snap, nil
}

func (s *stubService) History(symbol string) ([]controller.TrendPoint, error) {
	return s.points, nil
}

func (s *stubService) Analyze(ladder analyzer.Ladder, spot float64, radius int, maxPain *bool) (analyzer.Report, error) {
	s.gotLadder, s.gotRadius, s.gotMaxPain = ladder, radius, maxPain
	if len(ladder) == 0 {
		return analyzer.Report{}, &market.CodedError{Code: market.CodeValidation, Message: "ladder must contain at least one strike"}
	}
	return analyzer.Analyze(ladder, spot, analyzer.DefaultOptions())
}

func sampleSnapshot() *controller.Snapshot {
	ladder := analyzer.Ladder{
		{Strike: 22000, CallOI: 100, PutOI: 150, CallOIChange: 5, PutOIChange: -3},
		{Strike: 22050, CallOI: 120, PutOI: 90},
	}
	report, _ := analyzer.Analyze(ladder, 22010, analyzer.DefaultOptions())
	return &controller.Snapshot{
		ID:        "snap-1",
		Symbol:    "NIFTY",
		Source:    "nse",
		SyncedAt:  time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		SyncLabel: "09:30:00",
		Report:    report,
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthAndStatus(t *testing.T) {
	h := NewServer(&stubService{}, nil)

	if w := do(t, h, http.MethodGet, "/health", ""); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("GET /health = %d %s", w.Code, w.Body.String())
	}

	w := do(t, h, http.MethodGet, "/api/v1/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/status = %d", w.Code)
	}
	var st controller.Status
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.ActiveIndex != "NIFTY" || st.Cycles != 3 {
		t.Fatalf("status = %+v", st)
	}
}

func TestSetIndex(t *testing.T) {
	svc := &stubService{}
	h := NewServer(svc, nil)

	w := do(t, h, http.MethodPut, "/api/v1/index", `{"symbol":"banknifty"}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"BANKNIFTY"`) {
		t.Fatalf("PUT /api/v1/index = %d %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/api/v1/indices", "")
	var out struct {
		Active  string   `json:"active"`
		Indices []string `json:"indices"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode indices: %v", err)
	}
	if out.Active != "BANKNIFTY" || len(out.Indices) != 4 {
		t.Fatalf("indices = %+v", out)
	}

	if w := do(t, h, http.MethodPut, "/api/v1/index", `{"symbol":"SENSEX"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("PUT unknown index = %d; want 400", w.Code)
	}
}

func TestPCRMetricsAndLadder(t *testing.T) {
	svc := &stubService{snap: sampleSnapshot()}
	h := NewServer(svc, nil)

	w := do(t, h, http.MethodGet, "/api/v1/pcr/NIFTY", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET pcr = %d %s", w.Code, w.Body.String())
	}
	var m metrics
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	if m.PCR != 1.09 || m.PCRDelta != 0.09 || m.ATMStrike != 22000 || m.MaxPain == nil {
		t.Fatalf("metrics = %+v", m)
	}
	if m.ChainPutOI != 240 || m.ChainCallOI != 220 {
		t.Fatalf("chain totals = put %d call %d; want 240/220", m.ChainPutOI, m.ChainCallOI)
	}

	w = do(t, h, http.MethodGet, "/api/v1/pcr/NIFTY/ladder", "")
	var table ladderTable
	if err := json.Unmarshal(w.Body.Bytes(), &table); err != nil {
		t.Fatalf("decode ladder: %v", err)
	}
	if strings.Join(table.Columns, "|") != "Strike|Call OI|Put OI|Call Chg|Put Chg" {
		t.Fatalf("columns = %v", table.Columns)
	}
	if len(table.Rows) != 2 || table.Rows[0][0] != 22000 || table.Rows[0][4] != -3 {
		t.Fatalf("rows = %v", table.Rows)
	}
}

func TestPCRHistory(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	svc := &stubService{points: []controller.TrendPoint{{At: at, Label: "09:30:00", PCR: 0.9}, {At: at.Add(time.Minute), Label: "09:31:00", PCR: 1.1}}}
	h := NewServer(svc, nil)

	w := do(t, h, http.MethodGet, "/api/v1/pcr/nifty/history", "")
	var out struct {
		Symbol string                  `json:"symbol"`
		Points []controller.TrendPoint `json:"points"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if out.Symbol != "NIFTY" || len(out.Points) != 2 || out.Points[1].PCR != 1.1 {
		t.Fatalf("history = %+v", out)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", &market.CodedError{Code: market.CodeNotFound, Message: "none"}, http.StatusNotFound},
		{"validation", &market.CodedError{Code: market.CodeValidation, Message: "bad"}, http.StatusBadRequest},
		{"access denied", &market.CodedError{Code: market.CodeAccessDenied, Message: "403"}, http.StatusBadGateway},
		{"data unavailable", &market.CodedError{Code: market.CodeDataUnavailable, Message: "empty"}, http.StatusBadGateway},
		{"throttled", &market.CodedError{Code: market.CodeThrottled, Message: "slow down"}, http.StatusServiceUnavailable},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewServer(&stubService{latestErr: tt.err}, nil)
			if w := do(t, h, http.MethodGet, "/api/v1/pcr/NIFTY", ""); w.Code != tt.want {
				t.Fatalf("status = %d; want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	svc := &stubService{}
	h := NewServer(svc, nil)

	body := `{"spot":101,"radius":2,"max_pain":false,"ladder":[
		{"strike":110,"call_oi":10,"put_oi":10},
		{"strike":100,"call_oi":10,"put_oi":40,"put_oi_change":7}
	]}`
	w := do(t, h, http.MethodPost, "/api/v1/analyze", body)
	if w.Code != http.StatusOK {
		t.Fatalf("POST analyze = %d %s", w.Code, w.Body.String())
	}
	if svc.gotRadius != 2 || svc.gotMaxPain == nil || *svc.gotMaxPain {
		t.Fatalf("forwarded radius=%d maxPain=%v", svc.gotRadius, svc.gotMaxPain)
	}
	if len(svc.gotLadder) != 2 || svc.gotLadder[1].PutOIChange != 7 {
		t.Fatalf("forwarded ladder = %+v", svc.gotLadder)
	}

	if w := do(t, h, http.MethodPost, "/api/v1/analyze", `{"spot":100,"ladder":[]}`); w.Code != http.StatusBadRequest {
		t.Fatalf("POST empty ladder = %d; want 400", w.Code)
	}
}

func TestStreamMounted(t *testing.T) {
	broker := relay.NewBroker()
	if err := broker.PublishJSON("report", map[string]float64{"pcr": 1.05}); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(NewServer(&stubService{}, broker))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		if line := sc.Text(); strings.HasPrefix(line, "data: ") {
			if line != `data: {"pcr":1.05}` {
				t.Fatalf("data line = %q", line)
			}
			return
		}
	}
	t.Fatalf("stream ended without data: %v", sc.Err())
}
