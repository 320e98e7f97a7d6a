package bowtie

// NewTopEvent returns a Top Event node with default attributes.
func NewTopEvent(label string) Node {
	return newNode(KindTopEvent, label, 0, 0)
}

// NewThreat returns a Threat node. Zero severity or likelihood mean "not set"
// and take the mid-scale default.
func NewThreat(label string, severity, likelihood int) Node {
	return newNode(KindThreat, label, severity, likelihood)
}

// NewConsequence returns a Consequence node.
func NewConsequence(label string, severity, likelihood int) Node {
	return newNode(KindConsequence, label, severity, likelihood)
}

// NewBarrier returns a Barrier node of the given type and effectiveness.
func NewBarrier(label string, typ BarrierType, effectiveness int) Node {
	n := newNode(KindBarrier, label, 0, 0)
	n.Barrier = BarrierAttributes{Effectiveness: effectiveness, Type: typ}
	n.Normalize()
	return n
}

func newNode(kind Kind, label string, severity, likelihood int) Node {
	n := Node{
		Kind:       kind,
		Label:      label,
		Severity:   severity,
		Likelihood: likelihood,
	}
	n.Normalize()
	return n
}

// Normalize applies attribute defaults and clamps values into their domains.
// It is applied once when a node is constructed, decoded or edited so readers
// never have to re-derive defaults.
func (n *Node) Normalize() {
	n.Severity = normalizeScale(n.Severity, DefaultSeverity)
	n.Likelihood = normalizeScale(n.Likelihood, DefaultLikelihood)

	if n.Kind != KindBarrier {
		n.Barrier = BarrierAttributes{}
		return
	}
	n.Barrier.Effectiveness = ClampEffectiveness(n.Barrier.Effectiveness)
	if n.Barrier.Type != Mitigative {
		n.Barrier.Type = Preventive
	}
}

func normalizeScale(v, def int) int {
	switch {
	case v == 0:
		return def
	case v < MinScale:
		return MinScale
	case v > MaxScale:
		return MaxScale
	}
	return v
}

// ClampEffectiveness clamps a barrier effectiveness percentage to [0,100].
func ClampEffectiveness(pct int) int {
	if pct < MinEffectiveness {
		return MinEffectiveness
	}
	if pct > MaxEffectiveness {
		return MaxEffectiveness
	}
	return pct
}

// BaseRisk is severity × likelihood.
func (n *Node) BaseRisk() float64 {
	return float64(n.Severity) * float64(n.Likelihood)
}

// IsBarrier reports whether n is a barrier of the given type.
func (n *Node) IsBarrier(typ BarrierType) bool {
	return n.Kind == KindBarrier && n.Barrier.Type == typ
}

// Clone returns a copy of the node. The presentation bag is copied one level
// deep, which is enough because the model never mutates nested values.
func (n *Node) Clone() *Node {
	c := *n
	c.Presentation = cloneBag(n.Presentation)
	return &c
}

// Clone returns a copy of the edge.
func (e *Edge) Clone() *Edge {
	c := *e
	c.Presentation = cloneBag(e.Presentation)
	return &c
}

func cloneBag(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
