package analysis

import (
	"smc-advisor/internal/market"
)

// Snapshot bundles every structural reading derived from one candle set
type Snapshot struct {
	Swings       []SwingPoint       `json:"swings"`
	Structure    SwingStructure     `json:"structure"`
	BOS          []StructureBreak   `json:"bos"`
	CHOCH        []StructureBreak   `json:"choch"`
	OrderBlocks  []OrderBlock       `json:"order_blocks"`
	Breakers     []BreakerBlock     `json:"breakers"`
	FVGs         []FairValueGap     `json:"fvgs"`
	Liquidity    []LiquidityZone    `json:"liquidity"`
	Manipulation ManipulationSignal `json:"manipulation"`
	Wyckoff      WyckoffPhase       `json:"wyckoff"`
	Cycle        InstitutionalCycle `json:"cycle"`
	Volume       VolumeProfile      `json:"volume"`
}

// Analyze validates candles and derives swings, structure, zones,
// manipulation and cycle labels in dependency order
func Analyze(candles []market.Candle, p Params) (Snapshot, error) {
	if err := market.Validate(candles); err != nil {
		return Snapshot{}, err
	}
	p = p.Normalize()

	swings := DetectSwings(candles, p.SwingLookback)
	bos := DetectBOS(candles, swings, p)
	blocks := DetectOrderBlocks(candles, bos, p)
	manip := DetectManipulation(candles, swings, p)

	return Snapshot{
		Swings:       swings,
		Structure:    SummarizeSwings(swings, p.LiquidityTolerancePct),
		BOS:          bos,
		CHOCH:        DetectCHOCH(candles, swings, p),
		OrderBlocks:  blocks,
		Breakers:     DetectBreakerBlocks(candles, blocks),
		FVGs:         DetectFVGs(candles, p.FVGMinGapPct),
		Liquidity:    DetectLiquidityZones(swings, p.LiquidityTolerancePct),
		Manipulation: manip,
		Wyckoff:      ClassifyWyckoff(candles, p.WyckoffWindow),
		Cycle:        ClassifyInstitutionalCycle(candles, bos, manip),
		Volume:       NewVolumeAnalyzer(p.VolumeAvgPeriod).AnalyzeVolume(candles),
	}, nil
}

// HasCHOCH reports a change of character in direction d
func (s Snapshot) HasCHOCH(d market.Direction) bool {
	_, ok := LatestBreak(s.CHOCH, d)
	return ok
}

// HasBreaker reports a breaker block flipped to direction d
func (s Snapshot) HasBreaker(d market.Direction) bool {
	for _, b := range s.Breakers {
		if b.Direction == d {
			return true
		}
	}
	return false
}

// HasBOS reports a break of structure in direction d
func (s Snapshot) HasBOS(d market.Direction) bool {
	_, ok := LatestBreak(s.BOS, d)
	return ok
}
