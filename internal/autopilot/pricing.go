package autopilot

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"smc-advisor/internal/market"
)

// pricePrecision returns the decimal places used for a price of this magnitude
func pricePrecision(price float64) int32 {
	switch p := math.Abs(price); {
	case p >= 1000:
		return 2
	case p >= 1:
		return 4
	case p >= 0.01:
		return 6
	default:
		return 8
	}
}

// roundPrice rounds half away from zero at the precision of ref
func roundPrice(price, ref float64) float64 {
	return decimal.NewFromFloat(price).Round(pricePrecision(ref)).InexactFloat64()
}

// tradeLevels holds entry, targets and stop of a trade
type tradeLevels struct {
	entry, tp1, tp2, tp3, stop float64
}

// roundLevels snaps the levels to tick precision. Targets round away from
// entry and the stop rounds toward it, so reward:risk and TP ordering survive
// rounding; collapsed levels are pushed apart by one tick.
func roundLevels(side market.Side, lv tradeLevels) tradeLevels {
	places := pricePrecision(lv.entry)
	tick := decimal.New(1, -places)
	long := side == market.Long

	snap := func(v float64) decimal.Decimal {
		d := decimal.NewFromFloat(v)
		if long {
			return d.RoundCeil(places)
		}
		return d.RoundFloor(places)
	}
	step := tick
	if !long {
		step = tick.Neg()
	}
	// dist is the signed distance from entry in the trade direction
	entry := decimal.NewFromFloat(lv.entry).Round(places)
	dist := func(v decimal.Decimal) decimal.Decimal {
		if long {
			return v.Sub(entry)
		}
		return entry.Sub(v)
	}

	stop := snap(lv.stop)
	if dist(stop).GreaterThan(tick.Neg()) {
		stop = entry.Sub(step)
	}
	risk := dist(stop).Neg()

	tp1 := snap(lv.tp1)
	if minReward := risk.Mul(decimal.NewFromInt(minRewardRisk)); dist(tp1).LessThan(minReward) {
		if long {
			tp1 = entry.Add(minReward)
		} else {
			tp1 = entry.Sub(minReward)
		}
	}
	// 1:2 must also hold on the float64 values handed out
	entryF, stopF := entry.InexactFloat64(), stop.InexactFloat64()
	for math.Abs(tp1.InexactFloat64()-entryF) < minRewardRisk*math.Abs(stopF-entryF) {
		tp1 = tp1.Add(step)
	}
	tp2 := snap(lv.tp2)
	if !dist(tp2).GreaterThan(dist(tp1)) {
		tp2 = tp1.Add(step)
	}
	tp3 := snap(lv.tp3)
	if !dist(tp3).GreaterThan(dist(tp2)) {
		tp3 = tp2.Add(step)
	}

	return tradeLevels{
		entry: entry.InexactFloat64(),
		tp1:   tp1.InexactFloat64(),
		tp2:   tp2.InexactFloat64(),
		tp3:   tp3.InexactFloat64(),
		stop:  stop.InexactFloat64(),
	}
}

// GetVolatilityLevel returns a human-readable volatility level
func GetVolatilityLevel(volatilityPercent float64) string {
	switch {
	case volatilityPercent < 0.5:
		return "very_low"
	case volatilityPercent < 1.0:
		return "low"
	case volatilityPercent < 2.0:
		return "moderate"
	case volatilityPercent < 3.0:
		return "high"
	default:
		return "very_high"
	}
}

func formatPercent(value float64) string {
	return strconv.FormatFloat(math.Round(value*100)/100, 'f', 2, 64) + "%"
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', int(pricePrecision(price)), 64)
}
