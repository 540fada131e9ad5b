package analysis

// Params holds the structural thresholds. Percentages are expressed in
// percent (0.1 means 0.1%).
type Params struct {
	SwingLookback         int     `json:"swing_lookback" yaml:"swingLookback"`
	BOSSwingCount         int     `json:"bos_swing_count" yaml:"bosSwingCount"`
	BOSDisplacementPct    float64 `json:"bos_displacement_pct" yaml:"bosDisplacementPct"`
	CHOCHDisplacementPct  float64 `json:"choch_displacement_pct" yaml:"chochDisplacementPct"`
	OrderBlockLookback    int     `json:"order_block_lookback" yaml:"orderBlockLookback"`
	MitigationWindow      int     `json:"mitigation_window" yaml:"mitigationWindow"`
	FVGMinGapPct          float64 `json:"fvg_min_gap_pct" yaml:"fvgMinGapPct"`
	LiquidityTolerancePct float64 `json:"liquidity_tolerance_pct" yaml:"liquidityTolerancePct"`
	ManipulationWindow    int     `json:"manipulation_window" yaml:"manipulationWindow"`
	StopHuntWickPct       float64 `json:"stop_hunt_wick_pct" yaml:"stopHuntWickPct"`
	WyckoffWindow         int     `json:"wyckoff_window" yaml:"wyckoffWindow"`
	VolumeAvgPeriod       int     `json:"volume_avg_period" yaml:"volumeAvgPeriod"`
}

// DefaultParams returns the stock thresholds.
func DefaultParams() Params {
	return Params{
		SwingLookback:         3,
		BOSSwingCount:         5,
		BOSDisplacementPct:    0.1,
		CHOCHDisplacementPct:  0.15,
		OrderBlockLookback:    10,
		MitigationWindow:      5,
		FVGMinGapPct:          0,
		LiquidityTolerancePct: 0.3,
		ManipulationWindow:    10,
		StopHuntWickPct:       0.3,
		WyckoffWindow:         20,
		VolumeAvgPeriod:       20,
	}
}

// Normalize fills zero or negative fields with their defaults so a partially
// written profile still yields a usable parameter set.
func (p Params) Normalize() Params {
	d := DefaultParams()
	if p.SwingLookback <= 0 {
		p.SwingLookback = d.SwingLookback
	}
	if p.BOSSwingCount <= 0 {
		p.BOSSwingCount = d.BOSSwingCount
	}
	if p.BOSDisplacementPct <= 0 {
		p.BOSDisplacementPct = d.BOSDisplacementPct
	}
	if p.CHOCHDisplacementPct <= 0 {
		p.CHOCHDisplacementPct = d.CHOCHDisplacementPct
	}
	if p.OrderBlockLookback <= 0 {
		p.OrderBlockLookback = d.OrderBlockLookback
	}
	if p.MitigationWindow <= 0 {
		p.MitigationWindow = d.MitigationWindow
	}
	if p.FVGMinGapPct < 0 {
		p.FVGMinGapPct = 0
	}
	if p.LiquidityTolerancePct <= 0 {
		p.LiquidityTolerancePct = d.LiquidityTolerancePct
	}
	if p.ManipulationWindow <= 0 {
		p.ManipulationWindow = d.ManipulationWindow
	}
	if p.StopHuntWickPct <= 0 {
		p.StopHuntWickPct = d.StopHuntWickPct
	}
	if p.WyckoffWindow <= 0 {
		p.WyckoffWindow = d.WyckoffWindow
	}
	if p.VolumeAvgPeriod <= 0 {
		p.VolumeAvgPeriod = d.VolumeAvgPeriod
	}
	return p
}
