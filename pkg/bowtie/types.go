// Package bowtie holds the bow-tie diagram model: typed nodes (Top Event,
// Threats, Consequences, Barriers), directed edges, and the Graph that owns
// them in creation order.
package bowtie

import (
	"fmt"
	"strings"
)

// Kind discriminates the node variants of a bow-tie diagram. It is fixed when
// a node is constructed and never derived from the node's identifier.
type Kind string

const (
	KindTopEvent    Kind = "top_event"
	KindThreat      Kind = "threat"
	KindConsequence Kind = "consequence"
	KindBarrier     Kind = "barrier"
)

// Kinds lists every valid kind in diagram order (left to right).
var Kinds = []Kind{KindThreat, KindBarrier, KindTopEvent, KindConsequence}

// Valid reports whether k is one of the four node kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindTopEvent, KindThreat, KindConsequence, KindBarrier:
		return true
	}
	return false
}

// RiskBearing reports whether nodes of this kind receive base/current/residual risk.
func (k Kind) RiskBearing() bool {
	return k == KindTopEvent || k == KindThreat || k == KindConsequence
}

// IDPrefix is the prefix used when generating identifiers for this kind.
// The prefixes match the identifiers written by earlier diagram editors.
func (k Kind) IDPrefix() string {
	switch k {
	case KindTopEvent:
		return "center"
	case KindThreat:
		return "threat"
	case KindConsequence:
		return "conseq"
	case KindBarrier:
		return "barrier"
	}
	return "n"
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind accepts the canonical kind names plus the aliases found in
// persisted diagrams ("center", "conseq", "top-event", ...).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top_event", "topevent", "top-event", "center", "centre":
		return KindTopEvent, nil
	case "threat":
		return KindThreat, nil
	case "consequence", "conseq":
		return KindConsequence, nil
	case "barrier":
		return KindBarrier, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// KindFromIDPrefix recognises legacy identifiers such as "threat_1a2b3c4d".
// Only decoders of old documents use it; the model itself never does.
func KindFromIDPrefix(id string) (Kind, bool) {
	for _, k := range []Kind{KindTopEvent, KindThreat, KindConsequence, KindBarrier} {
		if strings.HasPrefix(id, k.IDPrefix()+"_") {
			return k, true
		}
	}
	return "", false
}

// BarrierType says which side of the Top Event a barrier acts on.
type BarrierType string

const (
	Preventive BarrierType = "preventive"
	Mitigative BarrierType = "mitigative"
)

// ParseBarrierType parses a barrier type; the empty string means Preventive.
func ParseBarrierType(s string) (BarrierType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "preventive":
		return Preventive, nil
	case "mitigative":
		return Mitigative, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidBarrierType, s)
}

// Attribute domains and defaults.
const (
	MinScale          = 1
	MaxScale          = 5
	DefaultSeverity   = 3
	DefaultLikelihood = 3

	MinEffectiveness = 0
	MaxEffectiveness = 100
)

// BarrierAttributes are meaningful only on KindBarrier nodes; every other
// kind carries the zero value.
type BarrierAttributes struct {
	Effectiveness int         // percent, 0..100
	Type          BarrierType // preventive unless set

	// DeclaredType holds an unrecognised barrier type read from a document.
	// Type falls back to Preventive and Diagnose reports it.
	DeclaredType string
}

// Node is a single vertex of the diagram.
type Node struct {
	ID         string
	Kind       Kind
	Label      string
	Severity   int // 1..5
	Likelihood int // 1..5
	Barrier    BarrierAttributes

	// Seq is the creation sequence assigned by the owning Graph. A higher Seq
	// means the node was created later.
	Seq uint64

	// Presentation is owned by the editing surface (position, style, markdown
	// content). It is carried through save/load untouched and never read by
	// the risk engine.
	Presentation map[string]any
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID           string
	Source       string
	Target       string
	Presentation map[string]any
}
