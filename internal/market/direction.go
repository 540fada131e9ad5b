package market

// Direction is the bias of a structural signal or zone.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
)

// Opposite returns the mirrored direction.
func (d Direction) Opposite() Direction {
	if d == Bullish {
		return Bearish
	}
	return Bullish
}

// Sign is +1 for bullish and -1 for bearish. Mirror-image checks multiply by it
// instead of duplicating code per direction.
func (d Direction) Sign() float64 {
	if d == Bullish {
		return 1
	}
	return -1
}

// Trend is the indicator-derived trend label.
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
)

// Side is the direction of a trade or open position.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// Direction maps a position side onto the direction it profits from.
func (s Side) Direction() Direction {
	if s == Short {
		return Bearish
	}
	return Bullish
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Short {
		return Long
	}
	return Short
}

// Valid reports whether s is LONG or SHORT.
func (s Side) Valid() bool {
	return s == Long || s == Short
}
