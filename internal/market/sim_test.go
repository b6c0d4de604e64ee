package market

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSimFetchIsLabelledAndSorted(t *testing.T) {
	s := NewSim(42)
	chain, err := s.Fetch(context.Background(), "banknifty")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !chain.Simulated || chain.Source != KindSim {
		t.Fatalf("chain not labelled simulated: %+v", chain)
	}
	if chain.Symbol != "BANKNIFTY" {
		t.Fatalf("Symbol = %q; want BANKNIFTY", chain.Symbol)
	}
	if len(chain.Ladder) != 2*simStrikesPerSide+1 {
		t.Fatalf("len(Ladder) = %d; want %d", len(chain.Ladder), 2*simStrikesPerSide+1)
	}
	for i := 1; i < len(chain.Ladder); i++ {
		if chain.Ladder[i].Strike-chain.Ladder[i-1].Strike != 100 {
			t.Fatalf("strike step at %d = %v; want 100", i, chain.Ladder[i].Strike-chain.Ladder[i-1].Strike)
		}
	}
	mid := chain.Ladder[simStrikesPerSide].Strike
	if d := mid - chain.Spot; d > 50 || d < -50 {
		t.Fatalf("centre strike %v too far from spot %v", mid, chain.Spot)
	}
}

func TestSimFetchDeterministic(t *testing.T) {
	fixed := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	a, b := NewSim(7), NewSim(7)
	a.now = func() time.Time { return fixed }
	b.now = func() time.Time { return fixed }
	for i := 0; i < 3; i++ {
		ca, err := a.Fetch(context.Background(), "NIFTY")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		cb, err := b.Fetch(context.Background(), "NIFTY")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if ca.Spot != cb.Spot || ca.Ladder[10] != cb.Ladder[10] {
			t.Fatalf("cycle %d diverged: %v vs %v", i, ca.Spot, cb.Spot)
		}
	}
}

func TestSimFetchUnknownIndex(t *testing.T) {
	_, err := NewSim(1).Fetch(context.Background(), "SENSEX")
	var coded *CodedError
	if !errors.As(err, &coded) || coded.Code != CodeValidation {
		t.Fatalf("Fetch(SENSEX) error = %v; want VALIDATION", err)
	}
}

func TestSimFetchHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewSim(1).Fetch(ctx, "NIFTY"); !IsDataUnavailable(err) {
		t.Fatalf("Fetch(cancelled) error = %v; want data unavailable", err)
	}
}
