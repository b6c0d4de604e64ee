package analyzer

import "errors"

// ErrEmptyLadder is returned when an operation needs at least one strike row.
var ErrEmptyLadder = errors.New("analyzer: empty ladder")

// StrikeRow is one traded strike of an expiry snapshot.
type StrikeRow struct {
	Strike       float64 `json:"strike"`
	CallOI       int64   `json:"call_oi"`
	PutOI        int64   `json:"put_oi"`
	CallOIChange int64   `json:"call_oi_change"`
	PutOIChange  int64   `json:"put_oi_change"`
}

// Ladder is a sequence of strike rows ordered by strike ascending.
type Ladder []StrikeRow

// Totals returns the aggregate call and put open interest of the ladder.
func (l Ladder) Totals() (callOI, putOI int64) {
	for _, row := range l {
		callOI += row.CallOI
		putOI += row.PutOI
	}
	return callOI, putOI
}

// Report is the derived view of one poll cycle.
type Report struct {
	Spot        float64  `json:"spot"`
	ATMIndex    int      `json:"atm_index"`
	ATMStrike   float64  `json:"atm_strike"`
	Window      Ladder   `json:"window"`
	PCR         float64  `json:"pcr"`
	PCRDelta    float64  `json:"pcr_delta" doc:"PCR minus 1.0"`
	MaxPain     *float64 `json:"max_pain,omitempty"`
	PutOI       int64    `json:"put_oi" doc:"Aggregate put OI over the window"`
	CallOI      int64    `json:"call_oi" doc:"Aggregate call OI over the window"`
	ChainPutOI  int64    `json:"chain_put_oi" doc:"Aggregate put OI over the whole ladder"`
	ChainCallOI int64    `json:"chain_call_oi" doc:"Aggregate call OI over the whole ladder"`
	ChainPCR    float64  `json:"chain_pcr" doc:"PCR over the whole ladder"`
	Signal      Signal   `json:"signal"`
	Sentiment   string   `json:"sentiment"`
	Momentum    Momentum `json:"momentum"`
}

// Options selects the optional parts of Analyze.
type Options struct {
	Radius     int
	MaxPain    bool
	Thresholds Thresholds
}

// DefaultOptions mirrors the dashboard defaults: five strikes either side of ATM.
func DefaultOptions() Options {
	return Options{
		Radius:     5,
		MaxPain:    true,
		Thresholds: DefaultThresholds(),
	}
}
