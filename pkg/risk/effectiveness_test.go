package risk

import (
	"math"
	"testing"
)

func TestCombinedEffectiveness(t *testing.T) {
	tests := []struct {
		name string
		pcts []int
		want float64
	}{
		{"none", nil, 0},
		{"single zero", []int{0}, 0},
		{"single full", []int{100}, 1},
		{"single half", []int{50}, 0.5},
		{"two halves", []int{50, 50}, 0.75},
		{"three", []int{50, 50, 50}, 0.875},
		{"clamped high", []int{150}, 1},
		{"clamped low", []int{-20, 50}, 0.5},
		{"full dominates", []int{10, 100, 30}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CombinedEffectiveness(tt.pcts...)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("CombinedEffectiveness(%v) = %v, want %v", tt.pcts, got, tt.want)
			}
		})
	}
}

func TestCombinedEffectiveness_OrderIndependent(t *testing.T) {
	a := CombinedEffectiveness(20, 35, 80)
	b := CombinedEffectiveness(80, 20, 35)
	if math.Abs(a-b) > 1e-12 {
		t.Errorf("order changed result: %v vs %v", a, b)
	}
}

func TestRiskBandFor(t *testing.T) {
	tests := []struct {
		residual float64
		want     Band
		color    string
	}{
		{25, BandHigh, "#fecaca"},
		{20, BandHigh, "#fecaca"},
		{19.99, BandMedium, "#fde68a"},
		{15, BandMedium, "#fde68a"},
		{12, BandMedium, "#fde68a"},
		{11.9, BandLow, "#dcfce7"},
		{5, BandLow, "#dcfce7"},
		{0, BandLow, "#dcfce7"},
	}

	for _, tt := range tests {
		got := RiskBandFor(tt.residual)
		if got != tt.want {
			t.Errorf("RiskBandFor(%v) = %s, want %s", tt.residual, got, tt.want)
		}
		if got.Color() != tt.color {
			t.Errorf("%s.Color() = %s, want %s", got, got.Color(), tt.color)
		}
	}
}

func TestBarrierBandFor(t *testing.T) {
	tests := []struct {
		eff   int
		want  Band
		color string
	}{
		{80, BandGood, "#dcfce7"},
		{75, BandGood, "#dcfce7"},
		{74, BandFair, "#fde68a"},
		{50, BandFair, "#fde68a"},
		{40, BandFair, "#fde68a"},
		{39, BandPoor, "#fee2e2"},
		{10, BandPoor, "#fee2e2"},
	}

	for _, tt := range tests {
		got := BarrierBandFor(tt.eff)
		if got != tt.want {
			t.Errorf("BarrierBandFor(%d) = %s, want %s", tt.eff, got, tt.want)
		}
		if got.Color() != tt.color {
			t.Errorf("%s.Color() = %s, want %s", got, got.Color(), tt.color)
		}
	}
}
