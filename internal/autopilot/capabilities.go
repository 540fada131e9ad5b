package autopilot

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"smc-advisor/internal/market"
)

// RandomSource draws integers; injected so leverage selection is reproducible
type RandomSource interface {
	// IntInRange returns an integer in [min, max]
	IntInRange(min, max int) int
}

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// CandleSource delivers time-ordered candles for a symbol and interval
type CandleSource interface {
	Candles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error)
}

// PriceSource delivers the latest traded price of a symbol
type PriceSource interface {
	Price(ctx context.Context, symbol string) (float64, error)
}

// MathRandSource is a RandomSource backed by math/rand
type MathRandSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewMathRandSource creates a source seeded with seed
func NewMathRandSource(seed int64) *MathRandSource {
	return &MathRandSource{rnd: rand.New(rand.NewSource(seed))}
}

// IntInRange returns an integer in [min, max]; swapped bounds are reordered
func (s *MathRandSource) IntInRange(min, max int) int {
	if max < min {
		min, max = max, min
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return min + s.rnd.Intn(max-min+1)
}

// SystemClock reads the wall clock in UTC
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
