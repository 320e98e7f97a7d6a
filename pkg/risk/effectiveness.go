package risk

import (
	"github.com/timagonch/bowtie-diagram/pkg/bowtie"
)

// CombinedEffectiveness blends independent barrier effectiveness percentages
// into one reduction factor in [0,1]: 1 - Π(1 - e_i/100). Each percentage is
// clamped to [0,100] first; no input yields 0.
func CombinedEffectiveness(pcts ...int) float64 {
	if len(pcts) == 0 {
		return 0
	}
	pass := 1.0
	for _, p := range pcts {
		pass *= 1 - float64(bowtie.ClampEffectiveness(p))/100
	}
	combined := 1 - pass
	// 1 - Π can land a hair outside [0,1] only through rounding; keep the
	// documented range exact.
	if combined < 0 {
		return 0
	}
	if combined > 1 {
		return 1
	}
	return combined
}
