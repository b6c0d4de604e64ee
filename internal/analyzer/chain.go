package analyzer

import (
	"math"

	"github.com/shopspring/decimal"
)

// FindATMIndex returns the index of the strike closest to spot. The first
// minimal index wins when several strikes are equidistant.
func FindATMIndex(ladder Ladder, spot float64) (int, error) {
	if len(ladder) == 0 {
		return -1, ErrEmptyLadder
	}
	best := 0
	bestDiff := math.Abs(ladder[0].Strike - spot)
	for i := 1; i < len(ladder); i++ {
		if d := math.Abs(ladder[i].Strike - spot); d < bestDiff {
			best, bestDiff = i, d
		}
	}
	return best, nil
}

// WindowAround returns ladder[max(0,index-radius) : index+radius+1], clipped
// to the ladder. Near either end the window is shorter than 2*radius+1.
func WindowAround(ladder Ladder, index, radius int) Ladder {
	if len(ladder) == 0 || radius < 0 {
		return Ladder{}
	}
	lo := max(0, index-radius)
	hi := min(len(ladder), index+radius+1)
	if lo >= hi {
		return Ladder{}
	}
	out := make(Ladder, hi-lo)
	copy(out, ladder[lo:hi])
	return out
}

// ComputePCR returns sum(putOI)/sum(callOI) rounded to two decimals, or 0
// when the call side sums to zero.
func ComputePCR(window Ladder) float64 {
	callOI, putOI := window.Totals()
	return ratio(putOI, callOI)
}

func ratio(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return decimal.NewFromInt(num).Div(decimal.NewFromInt(den)).Round(2).InexactFloat64()
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// ComputeMaxPain returns the strike at which total option-buyer payout is
// lowest if the window expired there. Lowest strike wins ties.
func ComputeMaxPain(window Ladder) (float64, error) {
	if len(window) == 0 {
		return 0, ErrEmptyLadder
	}
	best := window[0].Strike
	bestPain := math.Inf(1)
	for _, candidate := range window {
		s := candidate.Strike
		var pain float64
		for _, row := range window {
			switch {
			case row.Strike < s:
				pain += (s - row.Strike) * float64(row.CallOI)
			case row.Strike > s:
				pain += (row.Strike - s) * float64(row.PutOI)
			}
		}
		if pain < bestPain {
			best, bestPain = s, pain
		}
	}
	return best, nil
}

// Analyze runs the full pipeline over a ladder and spot price.
func Analyze(ladder Ladder, spot float64, opts Options) (Report, error) {
	idx, err := FindATMIndex(ladder, spot)
	if err != nil {
		return Report{}, err
	}
	window := WindowAround(ladder, idx, opts.Radius)
	callOI, putOI := window.Totals()
	pcr := ratio(putOI, callOI)
	chainCall, chainPut := ladder.Totals()
	signal := opts.Thresholds.Classify(pcr)

	report := Report{
		Spot:        spot,
		ATMIndex:    idx,
		ATMStrike:   ladder[idx].Strike,
		Window:      window,
		PCR:         pcr,
		PCRDelta:    round2(pcr - 1.0),
		PutOI:       putOI,
		CallOI:      callOI,
		ChainPutOI:  chainPut,
		ChainCallOI: chainCall,
		ChainPCR:    ratio(chainPut, chainCall),
		Signal:      signal,
		Sentiment:   signal.Sentiment(),
		Momentum:    MomentumUndefined,
	}
	if opts.MaxPain {
		mp, err := ComputeMaxPain(window)
		if err != nil {
			return Report{}, err
		}
		report.MaxPain = &mp
	}
	return report, nil
}
