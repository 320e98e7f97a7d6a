package risk

import (
	"sort"

	"github.com/timagonch/bowtie-diagram/pkg/bowtie"
)

// topology is a per-run adjacency snapshot of a graph. Edges whose endpoints
// do not both exist are left out and recorded as dangling.
type topology struct {
	nodes    map[string]*bowtie.Node
	out      map[string][]string
	in       map[string][]string
	dangling []string
	top      *bowtie.Node
}

func newTopology(g *bowtie.Graph) *topology {
	t := &topology{
		nodes: make(map[string]*bowtie.Node, g.NodeCount()),
		out:   make(map[string][]string),
		in:    make(map[string][]string),
	}
	for _, n := range g.Nodes() {
		t.nodes[n.ID] = n
	}
	for _, e := range g.Edges() {
		if _, ok := t.nodes[e.Source]; !ok {
			t.dangling = append(t.dangling, e.ID)
			continue
		}
		if _, ok := t.nodes[e.Target]; !ok {
			t.dangling = append(t.dangling, e.ID)
			continue
		}
		t.out[e.Source] = append(t.out[e.Source], e.Target)
		t.in[e.Target] = append(t.in[e.Target], e.Source)
	}
	t.top, _ = g.TopEvent()
	return t
}

// barriersInto returns the distinct barriers of type typ with an edge into
// target, sorted by id.
func (t *topology) barriersInto(target string, typ bowtie.BarrierType) []string {
	set := make(map[string]struct{})
	for _, src := range t.in[target] {
		if n := t.nodes[src]; n.IsBarrier(typ) {
			set[src] = struct{}{}
		}
	}
	return sortedKeys(set)
}

func (t *topology) effectiveness(ids []string) []int {
	effs := make([]int, len(ids))
	for i, id := range ids {
		effs[i] = t.nodes[id].Barrier.Effectiveness
	}
	return effs
}

// OwnershipResolver decides which preventive barriers protect a threat. It
// holds a read-only topology snapshot and nothing else, so repeated calls are
// independent of each other.
type OwnershipResolver struct {
	topo               *topology
	sharedCenterCredit bool
}

// NewOwnershipResolver snapshots g's topology. With sharedCenterCredit set,
// preventive barriers feeding the Top Event are credited to every threat.
func NewOwnershipResolver(g *bowtie.Graph, sharedCenterCredit bool) *OwnershipResolver {
	return &OwnershipResolver{topo: newTopology(g), sharedCenterCredit: sharedCenterCredit}
}

func newResolver(t *topology, sharedCenterCredit bool) *OwnershipResolver {
	return &OwnershipResolver{topo: t, sharedCenterCredit: sharedCenterCredit}
}

// OwnedPreventiveBarriers returns, sorted by id, the preventive barriers that
// belong to threatID: barriers the threat points at directly, plus (with
// shared center credit) every preventive barrier pointing at the Top Event,
// whichever threat it sits behind. Mitigative barriers never qualify.
func (r *OwnershipResolver) OwnedPreventiveBarriers(threatID string) []string {
	t := r.topo
	set := make(map[string]struct{})

	for _, target := range t.out[threatID] {
		if n := t.nodes[target]; n.IsBarrier(bowtie.Preventive) {
			set[target] = struct{}{}
		}
	}

	if r.sharedCenterCredit && t.top != nil {
		for _, id := range t.barriersInto(t.top.ID, bowtie.Preventive) {
			set[id] = struct{}{}
		}
	}

	return sortedKeys(set)
}

// OwnedPreventiveBarriers is a one-shot form of OwnershipResolver with shared
// center credit enabled.
func OwnedPreventiveBarriers(g *bowtie.Graph, threatID string) []string {
	return NewOwnershipResolver(g, true).OwnedPreventiveBarriers(threatID)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
