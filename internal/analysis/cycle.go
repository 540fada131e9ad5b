package analysis

import (
	"smc-advisor/internal/market"
)

// WyckoffPhase is the price/volume cycle label
type WyckoffPhase string

const (
	PhaseAccumulation WyckoffPhase = "accumulation"
	PhaseDistribution WyckoffPhase = "distribution"
	PhaseMarkup       WyckoffPhase = "markup"
	PhaseMarkdown     WyckoffPhase = "markdown"
	PhaseUnknown      WyckoffPhase = "unknown"
)

// Direction returns the bias of a trending phase and a lean for ranging ones.
// Strong reports whether the phase is trending.
func (w WyckoffPhase) Direction() (d market.Direction, strong bool, ok bool) {
	switch w {
	case PhaseMarkup:
		return market.Bullish, true, true
	case PhaseMarkdown:
		return market.Bearish, true, true
	case PhaseAccumulation:
		return market.Bullish, false, true
	case PhaseDistribution:
		return market.Bearish, false, true
	}
	return "", false, false
}

// InstitutionalCycle is the smart-money cycle label
type InstitutionalCycle string

const (
	CycleAccumulation InstitutionalCycle = "accumulation"
	CycleDistribution InstitutionalCycle = "distribution"
	CycleManipulation InstitutionalCycle = "manipulation"
)

const (
	wyckoffFlatPct       = 3.0
	wyckoffVolumeRisePct = 20.0
	wyckoffVolumeFallPct = -10.0
	cycleCloseWindow     = 5
)

// ClassifyWyckoff splits the last window candles in half and compares average
// close and volume of the two halves
func ClassifyWyckoff(candles []market.Candle, window int) WyckoffPhase {
	if window < 2 || len(candles) < window {
		return PhaseUnknown
	}

	recent := candles[len(candles)-window:]
	mid := window / 2
	var firstPrice, secondPrice, firstVol, secondVol float64
	for i, c := range recent {
		if i < mid {
			firstPrice += c.Close
			firstVol += c.Volume
		} else {
			secondPrice += c.Close
			secondVol += c.Volume
		}
	}
	firstPrice /= float64(mid)
	firstVol /= float64(mid)
	secondPrice /= float64(window - mid)
	secondVol /= float64(window - mid)

	if firstPrice <= 0 {
		return PhaseUnknown
	}
	priceChange := (secondPrice - firstPrice) / firstPrice * 100
	volumeChange := 0.0
	if firstVol > 0 {
		volumeChange = (secondVol - firstVol) / firstVol * 100
	}

	flat := priceChange > -wyckoffFlatPct && priceChange < wyckoffFlatPct
	switch {
	case flat && volumeChange > wyckoffVolumeRisePct:
		return PhaseAccumulation
	case flat && volumeChange < wyckoffVolumeFallPct:
		return PhaseDistribution
	case priceChange > wyckoffFlatPct && volumeChange > 0:
		return PhaseMarkup
	case priceChange < -wyckoffFlatPct && volumeChange > 0:
		return PhaseMarkdown
	}
	return PhaseUnknown
}

// ClassifyInstitutionalCycle labels the cycle: active manipulation wins, no
// break of structure means accumulation, otherwise the average of the last
// five closes is compared with the most recent BOS level.
func ClassifyInstitutionalCycle(candles []market.Candle, bos []StructureBreak, manip ManipulationSignal) InstitutionalCycle {
	if manip.Detected {
		return CycleManipulation
	}
	if len(bos) == 0 || len(candles) == 0 {
		return CycleAccumulation
	}

	start := len(candles) - cycleCloseWindow
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for _, c := range candles[start:] {
		sum += c.Close
	}
	avg := sum / float64(len(candles)-start)

	if avg > bos[len(bos)-1].Price {
		return CycleDistribution
	}
	return CycleAccumulation
}
