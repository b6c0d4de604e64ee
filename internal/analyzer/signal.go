package analyzer

import "fmt"

// Signal is a qualitative PCR band.
type Signal string

const (
	SignalStrongBullish Signal = "strong_bullish"
	SignalBullish       Signal = "bullish"
	SignalNeutral       Signal = "neutral"
	SignalBearish       Signal = "bearish"
	SignalStrongBearish Signal = "strong_bearish"
)

// Signals lists the bands from most bullish to most bearish.
var Signals = []Signal{SignalStrongBullish, SignalBullish, SignalNeutral, SignalBearish, SignalStrongBearish}

// Strong reports whether the band is one of the two extremes.
func (s Signal) Strong() bool {
	return s == SignalStrongBullish || s == SignalStrongBearish
}

// Sentiment returns the display string for the band.
func (s Signal) Sentiment() string {
	switch s {
	case SignalStrongBullish:
		return "Strong Bullish (Overbought)"
	case SignalBullish:
		return "Bullish Bias"
	case SignalBearish:
		return "Bearish Bias"
	case SignalStrongBearish:
		return "Strong Bearish (Oversold)"
	default:
		return "Neutral"
	}
}

// Thresholds are the band cutoffs. A PCR strictly above StrongBullish or
// strictly below StrongBearish is a strong signal; the closed interval
// [Bearish, Bullish] is neutral.
type Thresholds struct {
	StrongBullish float64 `json:"strong_bullish" yaml:"strong_bullish"`
	Bullish       float64 `json:"bullish" yaml:"bullish"`
	Bearish       float64 `json:"bearish" yaml:"bearish"`
	StrongBearish float64 `json:"strong_bearish" yaml:"strong_bearish"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{StrongBullish: 1.4, Bullish: 1.15, Bearish: 0.85, StrongBearish: 0.6}
}

// Validate checks that the cutoffs are ordered.
func (t Thresholds) Validate() error {
	if !(t.StrongBearish <= t.Bearish && t.Bearish <= t.Bullish && t.Bullish <= t.StrongBullish) {
		return fmt.Errorf("thresholds out of order: strong_bearish=%v bearish=%v bullish=%v strong_bullish=%v",
			t.StrongBearish, t.Bearish, t.Bullish, t.StrongBullish)
	}
	return nil
}

// Classify maps a PCR onto its band.
func (t Thresholds) Classify(pcr float64) Signal {
	switch {
	case pcr > t.StrongBullish:
		return SignalStrongBullish
	case pcr > t.Bullish:
		return SignalBullish
	case pcr < t.StrongBearish:
		return SignalStrongBearish
	case pcr < t.Bearish:
		return SignalBearish
	default:
		return SignalNeutral
	}
}

// Momentum labels the direction of the latest PCR move.
type Momentum string

const (
	MomentumUndefined Momentum = "undefined"
	MomentumRising    Momentum = "rising"
	MomentumFalling   Momentum = "falling"
	MomentumFlat      Momentum = "flat"
)

// ClassifyMomentum compares the newest PCR in history with the one before it.
// History is ordered oldest first and already contains the current value.
func ClassifyMomentum(history []float64) Momentum {
	n := len(history)
	if n < 2 {
		return MomentumUndefined
	}
	cur, prev := history[n-1], history[n-2]
	switch {
	case cur > prev:
		return MomentumRising
	case cur < prev:
		return MomentumFalling
	default:
		return MomentumFlat
	}
}
