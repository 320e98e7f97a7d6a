package risk

// Band is a display classification. Risk-bearing nodes use Low/Medium/High;
// barriers use Good/Fair/Poor. Bands are presentation hints only.
type Band string

const (
	BandLow    Band = "low"
	BandMedium Band = "medium"
	BandHigh   Band = "high"

	BandGood Band = "good"
	BandFair Band = "fair"
	BandPoor Band = "poor"
)

// Residual risk thresholds.
const (
	HighRiskThreshold   = 20.0
	MediumRiskThreshold = 12.0
)

// Barrier effectiveness thresholds (percent).
const (
	GoodBarrierThreshold = 75
	FairBarrierThreshold = 40
)

// RiskBandFor classifies a residual risk value.
func RiskBandFor(residual float64) Band {
	switch {
	case residual >= HighRiskThreshold:
		return BandHigh
	case residual >= MediumRiskThreshold:
		return BandMedium
	default:
		return BandLow
	}
}

// BarrierBandFor classifies a barrier by its effectiveness alone.
func BarrierBandFor(effectiveness int) Band {
	switch {
	case effectiveness >= GoodBarrierThreshold:
		return BandGood
	case effectiveness >= FairBarrierThreshold:
		return BandFair
	default:
		return BandPoor
	}
}

// Color returns the background colour diagram editors paint for the band.
func (b Band) Color() string {
	switch b {
	case BandHigh:
		return "#fecaca"
	case BandMedium, BandFair:
		return "#fde68a"
	case BandLow, BandGood:
		return "#dcfce7"
	case BandPoor:
		return "#fee2e2"
	}
	return "#ffffff"
}

func (b Band) String() string {
	return string(b)
}
