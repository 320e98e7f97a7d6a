package risk

import (
	"fmt"
	"math"

	"github.com/timagonch/bowtie-diagram/pkg/bowtie"
)

// NodeRisk is the derived state of one node after a propagation run.
// Barriers and ignored Top Events carry only BaseRisk; their current and
// residual values stay zero.
type NodeRisk struct {
	ID            string      `json:"id" yaml:"id"`
	Kind          bowtie.Kind `json:"kind" yaml:"kind"`
	BaseRisk      float64     `json:"baseRisk" yaml:"base_risk"`
	CurrentRisk   float64     `json:"currentRisk" yaml:"current_risk"`
	ResidualRisk  float64     `json:"residualRisk" yaml:"residual_risk"`
	Band          Band        `json:"band" yaml:"band"`
	Effectiveness int         `json:"effectiveness,omitempty" yaml:"effectiveness,omitempty"`
	// Barriers credited against this node's risk, sorted by id.
	Barriers []string `json:"barriers,omitempty" yaml:"barriers,omitempty"`
}

// Round rounds a risk value for display, half to even.
func Round(v float64) int {
	return int(math.RoundToEven(v))
}

// Badge renders the one-line summary diagram editors show under a node.
func (nr NodeRisk) Badge() string {
	switch nr.Kind {
	case bowtie.KindThreat:
		return fmt.Sprintf("Base: %d → Residual: %d", Round(nr.BaseRisk), Round(nr.ResidualRisk))
	case bowtie.KindTopEvent:
		return fmt.Sprintf("Base: %d | Current (Σ threats): %d → Residual: %d",
			Round(nr.BaseRisk), Round(nr.CurrentRisk), Round(nr.ResidualRisk))
	case bowtie.KindConsequence:
		return fmt.Sprintf("Base: %d | Current(from Top): %d → Residual: %d",
			Round(nr.BaseRisk), Round(nr.CurrentRisk), Round(nr.ResidualRisk))
	case bowtie.KindBarrier:
		return fmt.Sprintf("Effectiveness: %d%%", nr.Effectiveness)
	}
	return ""
}

// Report is the output of one propagation run. It is a value owned by the
// caller; the graph it was computed from is never modified.
type Report struct {
	Nodes map[string]NodeRisk `json:"nodes" yaml:"nodes"`
	// Order lists node ids in creation order.
	Order             []string `json:"order" yaml:"order"`
	TopEventID        string   `json:"topEventId,omitempty" yaml:"top_event_id,omitempty"`
	IgnoredTopEvents  []string `json:"ignoredTopEvents,omitempty" yaml:"ignored_top_events,omitempty"`
	ThreatResidualSum float64  `json:"threatResidualSum" yaml:"threat_residual_sum"`
	TopEventResidual  float64  `json:"topEventResidual" yaml:"top_event_residual"`
	DanglingEdges     []string `json:"danglingEdges,omitempty" yaml:"dangling_edges,omitempty"`
}

// Get returns the derived state for id.
func (r *Report) Get(id string) (NodeRisk, bool) {
	nr, ok := r.Nodes[id]
	return nr, ok
}

// Each calls fn for every node in creation order.
func (r *Report) Each(fn func(NodeRisk)) {
	for _, id := range r.Order {
		fn(r.Nodes[id])
	}
}

// OfKind returns the entries of kind k in creation order.
func (r *Report) OfKind(k bowtie.Kind) []NodeRisk {
	var out []NodeRisk
	r.Each(func(nr NodeRisk) {
		if nr.Kind == k {
			out = append(out, nr)
		}
	})
	return out
}

// BandCounts tallies band assignments across the report.
func (r *Report) BandCounts() map[Band]int {
	counts := make(map[Band]int)
	for _, nr := range r.Nodes {
		counts[nr.Band]++
	}
	return counts
}

// Equal reports whether two reports are bit-for-bit identical.
func (r *Report) Equal(o *Report) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.TopEventID != o.TopEventID ||
		r.ThreatResidualSum != o.ThreatResidualSum ||
		r.TopEventResidual != o.TopEventResidual ||
		!equalStrings(r.Order, o.Order) ||
		!equalStrings(r.IgnoredTopEvents, o.IgnoredTopEvents) ||
		!equalStrings(r.DanglingEdges, o.DanglingEdges) ||
		len(r.Nodes) != len(o.Nodes) {
		return false
	}
	for id, a := range r.Nodes {
		b, ok := o.Nodes[id]
		if !ok {
			return false
		}
		if a.ID != b.ID || a.Kind != b.Kind || a.Band != b.Band ||
			a.BaseRisk != b.BaseRisk || a.CurrentRisk != b.CurrentRisk ||
			a.ResidualRisk != b.ResidualRisk || a.Effectiveness != b.Effectiveness ||
			!equalStrings(a.Barriers, b.Barriers) {
			return false
		}
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
