package bowtie

import (
	"fmt"
	"strings"
)

// DiagnosticCode identifies a topology finding.
type DiagnosticCode string

const (
	DiagDanglingEdge      DiagnosticCode = "dangling_edge"
	DiagMissingTopEvent   DiagnosticCode = "missing_top_event"
	DiagAmbiguousTopEvent DiagnosticCode = "ambiguous_top_event"
	DiagOrphanBarrier     DiagnosticCode = "orphan_barrier"
	DiagMisplacedBarrier  DiagnosticCode = "misplaced_barrier"
	DiagUnlinkedThreat    DiagnosticCode = "unlinked_threat"
	DiagCycle             DiagnosticCode = "cycle"
	DiagUnknownBarrier    DiagnosticCode = "unknown_barrier_type"
)

// DiagnosticLevel grades a finding. None of them stop risk computation.
type DiagnosticLevel string

const (
	LevelInfo    DiagnosticLevel = "info"
	LevelWarning DiagnosticLevel = "warning"
)

// Diagnostic is one non-fatal finding about a diagram's topology.
type Diagnostic struct {
	Code    DiagnosticCode  `json:"code" yaml:"code"`
	Level   DiagnosticLevel `json:"level" yaml:"level"`
	NodeID  string          `json:"nodeId,omitempty" yaml:"node_id,omitempty"`
	EdgeID  string          `json:"edgeId,omitempty" yaml:"edge_id,omitempty"`
	Message string          `json:"message" yaml:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s: %s", d.Level, d.Code, d.Message)
}

// HasWarnings reports whether any diagnostic is at warning level.
func HasWarnings(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Level == LevelWarning {
			return true
		}
	}
	return false
}

// Diagnose inspects the topology and reports things an editor would want to
// fix. The risk engine tolerates every one of them.
func Diagnose(g *Graph) []Diagnostic {
	var diags []Diagnostic

	for _, e := range g.edges {
		_, srcOK := g.nodeIndex[e.Source]
		_, dstOK := g.nodeIndex[e.Target]
		if !srcOK || !dstOK {
			diags = append(diags, Diagnostic{
				Code:    DiagDanglingEdge,
				Level:   LevelWarning,
				EdgeID:  e.ID,
				Message: fmt.Sprintf("edge %s -> %s references a missing node", e.Source, e.Target),
			})
		}
	}

	top, hasTop := g.TopEvent()
	if !hasTop {
		diags = append(diags, Diagnostic{
			Code:    DiagMissingTopEvent,
			Level:   LevelInfo,
			Message: "diagram has no top event; consequence risk will be zero",
		})
	}
	for _, te := range g.TopEvents() {
		if hasTop && te.ID != top.ID {
			diags = append(diags, Diagnostic{
				Code:    DiagAmbiguousTopEvent,
				Level:   LevelWarning,
				NodeID:  te.ID,
				Message: fmt.Sprintf("top event %s is ignored in favour of the newer %s", te.ID, top.ID),
			})
		}
	}

	for _, b := range g.NodesOfKind(KindBarrier) {
		if b.Barrier.DeclaredType != "" {
			diags = append(diags, Diagnostic{
				Code:    DiagUnknownBarrier,
				Level:   LevelWarning,
				NodeID:  b.ID,
				Message: fmt.Sprintf("barrier %s has unknown type %q; treated as %s", b.ID, b.Barrier.DeclaredType, b.Barrier.Type),
			})
		}
		diags = append(diags, g.diagnoseBarrier(b, top)...)
	}

	if hasTop {
		for _, t := range g.NodesOfKind(KindThreat) {
			if !g.reachable(t.ID, top.ID) {
				diags = append(diags, Diagnostic{
					Code:    DiagUnlinkedThreat,
					Level:   LevelInfo,
					NodeID:  t.ID,
					Message: fmt.Sprintf("threat %s has no path to the top event (it still counts toward the top event)", t.ID),
				})
			}
		}
	}

	for _, cycle := range g.cycles() {
		diags = append(diags, Diagnostic{
			Code:    DiagCycle,
			Level:   LevelWarning,
			NodeID:  cycle[0],
			Message: "cycle: " + strings.Join(append(cycle, cycle[0]), " -> "),
		})
	}

	return diags
}

func (g *Graph) diagnoseBarrier(b *Node, top *Node) []Diagnostic {
	var diags []Diagnostic
	contributes := false

	for _, e := range g.Outgoing(b.ID) {
		target, ok := g.nodeIndex[e.Target]
		if !ok {
			continue
		}
		switch {
		case target.Kind == KindTopEvent && b.Barrier.Type == Mitigative:
			diags = append(diags, Diagnostic{
				Code:    DiagMisplacedBarrier,
				Level:   LevelWarning,
				NodeID:  b.ID,
				EdgeID:  e.ID,
				Message: fmt.Sprintf("mitigative barrier %s feeds the top event and gives no protection there", b.ID),
			})
		case target.Kind == KindConsequence && b.Barrier.Type == Preventive:
			diags = append(diags, Diagnostic{
				Code:    DiagMisplacedBarrier,
				Level:   LevelWarning,
				NodeID:  b.ID,
				EdgeID:  e.ID,
				Message: fmt.Sprintf("preventive barrier %s feeds consequence %s and gives no protection there", b.ID, target.ID),
			})
		case target.Kind == KindConsequence && b.Barrier.Type == Mitigative:
			contributes = true
		case target.Kind == KindTopEvent && b.Barrier.Type == Preventive && top != nil && target.ID == top.ID:
			contributes = true
		}
	}
	if b.Barrier.Type == Preventive {
		for _, e := range g.Incoming(b.ID) {
			if src, ok := g.nodeIndex[e.Source]; ok && src.Kind == KindThreat {
				contributes = true
			}
		}
	}

	if !contributes {
		diags = append(diags, Diagnostic{
			Code:    DiagOrphanBarrier,
			Level:   LevelInfo,
			NodeID:  b.ID,
			Message: fmt.Sprintf("%s barrier %s is not attached where it reduces any risk", b.Barrier.Type, b.ID),
		})
	}
	return diags
}

func (g *Graph) reachable(from, to string) bool {
	seen := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			return true
		}
		for _, e := range g.Outgoing(cur) {
			if !seen[e.Target] {
				seen[e.Target] = true
				queue = append(queue, e.Target)
			}
		}
	}
	return false
}

// cycles finds cycles with a three-colour depth-first search. Each back edge
// yields one cycle, listed in traversal order.
func (g *Graph) cycles() [][]string {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(g.nodes))
	var stack []string
	var found [][]string

	var visit func(id string)
	visit = func(id string) {
		color[id] = gray
		stack = append(stack, id)

		for _, e := range g.Outgoing(id) {
			if _, ok := g.nodeIndex[e.Target]; !ok {
				continue
			}
			switch color[e.Target] {
			case white:
				visit(e.Target)
			case gray:
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == e.Target {
						cycle := make([]string, len(stack)-i)
						copy(cycle, stack[i:])
						found = append(found, cycle)
						break
					}
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = black
	}

	for _, n := range g.nodes {
		if color[n.ID] == white {
			visit(n.ID)
		}
	}
	return found
}
