package visualization

import (
	"sort"

	"github.com/timagonch/bowtie-diagram/pkg/bowtie"
)

// BowtieLayout assigns every node a column and a row.
type BowtieLayout struct {
	config *LayoutConfig
}

// NewBowtieLayout creates a layout; zero gaps take the defaults.
func NewBowtieLayout(config *LayoutConfig) *BowtieLayout {
	def := DefaultLayoutConfig()
	if config == nil {
		config = def
	}
	if config.ColumnGap == 0 {
		config.ColumnGap = def.ColumnGap
	}
	if config.RowGap == 0 {
		config.RowGap = def.RowGap
	}
	return &BowtieLayout{config: config}
}

// levels walks from the Top Event with BFS, following edges backwards
// (forward=false) or forwards, and returns each reached node's distance.
func levels(g *bowtie.Graph, topID string, forward bool) map[string]int {
	dist := map[string]int{topID: 0}
	current := []string{topID}

	for depth := 1; len(current) > 0; depth++ {
		var next []string
		for _, id := range current {
			var edges []*bowtie.Edge
			if forward {
				edges = g.Outgoing(id)
			} else {
				edges = g.Incoming(id)
			}
			for _, e := range edges {
				other := e.Source
				if forward {
					other = e.Target
				}
				if _, seen := dist[other]; seen {
					continue
				}
				if _, ok := g.Node(other); !ok {
					continue
				}
				dist[other] = depth
				next = append(next, other)
			}
		}
		current = next
	}
	delete(dist, topID)
	return dist
}

// Columns returns each node's column: 0 for the Top Event, negative on the
// threat side and positive on the consequence side. Threats share the
// leftmost column and consequences the rightmost.
func (l *BowtieLayout) Columns(g *bowtie.Graph) map[string]int {
	cols := make(map[string]int, g.NodeCount())

	top, hasTop := g.TopEvent()
	left, right := map[string]int{}, map[string]int{}
	if hasTop {
		left = levels(g, top.ID, false)
		right = levels(g, top.ID, true)
	}

	// The outermost barrier on each side sets where threats and consequences go.
	deepLeft, deepRight := 0, 0
	for _, n := range g.NodesOfKind(bowtie.KindBarrier) {
		if d, ok := left[n.ID]; ok && n.Barrier.Type == bowtie.Preventive && d > deepLeft {
			deepLeft = d
		}
		if d, ok := right[n.ID]; ok && n.Barrier.Type == bowtie.Mitigative && d > deepRight {
			deepRight = d
		}
	}
	if deepLeft == 0 {
		deepLeft = 1
	}
	if deepRight == 0 {
		deepRight = 1
	}

	for _, n := range g.Nodes() {
		switch n.Kind {
		case bowtie.KindTopEvent:
			cols[n.ID] = 0
		case bowtie.KindThreat:
			cols[n.ID] = -(deepLeft + 1)
		case bowtie.KindConsequence:
			cols[n.ID] = deepRight + 1
		case bowtie.KindBarrier:
			if n.Barrier.Type == bowtie.Mitigative {
				cols[n.ID] = clampColumn(right[n.ID], deepRight)
			} else {
				cols[n.ID] = -clampColumn(left[n.ID], deepLeft)
			}
		}
	}
	return cols
}

// clampColumn keeps an unreached or misplaced barrier inside its side.
func clampColumn(d, deepest int) int {
	if d < 1 {
		return 1
	}
	if d > deepest {
		return deepest
	}
	return d
}

// ComputeLayout positions every node. Nodes of one column are stacked in
// creation order and centred on the Top Event's row.
func (l *BowtieLayout) ComputeLayout(g *bowtie.Graph) map[string]Position {
	cols := l.Columns(g)

	byColumn := make(map[int][]*bowtie.Node)
	for _, n := range g.Nodes() {
		c := cols[n.ID]
		byColumn[c] = append(byColumn[c], n)
	}

	positions := make(map[string]Position, len(cols))
	for c, nodes := range byColumn {
		sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Seq < nodes[j].Seq })
		mid := float64(len(nodes)-1) / 2
		for i, n := range nodes {
			positions[n.ID] = Position{
				X: float64(c) * l.config.ColumnGap,
				Y: (float64(i) - mid) * l.config.RowGap,
			}
		}
	}
	return positions
}
