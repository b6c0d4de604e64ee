package market

import (
	"context"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/pcr_agent/internal/analyzer"
)

type simProfile struct {
	spot float64
	step float64
}

var simProfiles = map[string]simProfile{
	"NIFTY":      {spot: 22150, step: 50},
	"BANKNIFTY":  {spot: 47800, step: 100},
	"FINNIFTY":   {spot: 21400, step: 50},
	"MIDCPNIFTY": {spot: 10950, step: 25},
}

// simStrikesPerSide matches the width of the filtered NSE chain.
const simStrikesPerSide = 25

// Sim generates synthetic option chains. Every chain it returns is labelled
// Simulated so a consumer can never mistake it for live data.
type Sim struct {
	mu    sync.Mutex
	rng   *rand.Rand
	spots map[string]float64
	now   func() time.Time
}

// NewSim returns a simulated source. The same seed yields the same sequence.
func NewSim(seed uint64) *Sim {
	return &Sim{
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		spots: make(map[string]float64),
		now:   time.Now,
	}
}

func (s *Sim) Name() string { return "sim" }

// Fetch random-walks the spot for symbol and builds a ladder around it.
func (s *Sim) Fetch(ctx context.Context, symbol string) (Chain, error) {
	if err := ctx.Err(); err != nil {
		return Chain{}, newError(CodeDataUnavailable, "simulation cancelled", err)
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	profile, ok := simProfiles[symbol]
	if !ok {
		return Chain{}, newError(CodeValidation, "unknown index: "+symbol, nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	spot, ok := s.spots[symbol]
	if !ok {
		spot = profile.spot
	}
	spot *= 1 + (s.rng.Float64()-0.5)*0.006
	spot = math.Round(spot*100) / 100
	s.spots[symbol] = spot

	atm := math.Round(spot/profile.step) * profile.step
	ladder := make(analyzer.Ladder, 0, 2*simStrikesPerSide+1)
	for i := -simStrikesPerSide; i <= simStrikesPerSide; i++ {
		strike := atm + float64(i)*profile.step
		dist := math.Abs(float64(i))
		// OI peaks near ATM; puts pile up below spot, calls above.
		base := 200000 / (1 + dist*0.35)
		callOI := base * (0.6 + s.rng.Float64()*0.8)
		putOI := base * (0.6 + s.rng.Float64()*0.8)
		if i < 0 {
			putOI *= 1.3
		} else if i > 0 {
			callOI *= 1.3
		}
		ladder = append(ladder, analyzer.StrikeRow{
			Strike:       strike,
			CallOI:       int64(callOI),
			PutOI:        int64(putOI),
			CallOIChange: int64((s.rng.Float64() - 0.5) * callOI * 0.2),
			PutOIChange:  int64((s.rng.Float64() - 0.5) * putOI * 0.2),
		})
	}

	return Chain{
		Symbol:    symbol,
		Spot:      spot,
		Ladder:    ladder,
		Timestamp: s.now(),
		Source:    "sim",
		Simulated: true,
	}, nil
}
