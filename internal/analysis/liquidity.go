package analysis

// LiquidityKind tells whether a zone sits above (equal highs) or below
// (equal lows) price
type LiquidityKind string

const (
	EqualHighs LiquidityKind = "equal_highs"
	EqualLows  LiquidityKind = "equal_lows"
)

// LiquidityZone is a cluster of near-equal swing extremes
type LiquidityZone struct {
	Price     float64       `json:"price"`
	Kind      LiquidityKind `json:"kind"`
	Strength  int           `json:"strength"`
	Touches   int           `json:"touches"`
	LastIndex int           `json:"last_index"`
}

const maxLiquidityStrength = 3

// DetectLiquidityZones groups swing highs and swing lows lying within
// tolerancePct of each other. A level needs at least one other matching swing;
// strength is the number of extra matches capped at 3.
func DetectLiquidityZones(swings []SwingPoint, tolerancePct float64) []LiquidityZone {
	var zones []LiquidityZone
	for _, kind := range []SwingKind{SwingHigh, SwingLow} {
		zk := EqualHighs
		if kind == SwingLow {
			zk = EqualLows
		}
		for _, c := range clusterSwings(FilterSwings(swings, kind), tolerancePct) {
			if c.touches < 2 {
				continue
			}
			strength := c.touches - 1
			if strength > maxLiquidityStrength {
				strength = maxLiquidityStrength
			}
			zones = append(zones, LiquidityZone{
				Price:     c.price,
				Kind:      zk,
				Strength:  strength,
				Touches:   c.touches,
				LastIndex: c.lastIndex,
			})
		}
	}
	return zones
}
