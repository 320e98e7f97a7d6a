package risk

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/timagonch/bowtie-diagram/pkg/bowtie"
	"github.com/timagonch/bowtie-diagram/pkg/logging"
	"github.com/timagonch/bowtie-diagram/pkg/metrics"
)

type fixture struct {
	t   *testing.T
	g   *bowtie.Graph
	ids map[string]string
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, g: bowtie.NewGraph(), ids: make(map[string]string)}
}

func (f *fixture) add(name string, n bowtie.Node) *fixture {
	f.t.Helper()
	stored, err := f.g.AddNode(n)
	if err != nil {
		f.t.Fatalf("AddNode(%s): %v", name, err)
	}
	f.ids[name] = stored.ID
	return f
}

func (f *fixture) link(a, b string) *fixture {
	f.t.Helper()
	if _, err := f.g.Connect(f.ids[a], f.ids[b]); err != nil {
		f.t.Fatalf("Connect(%s,%s): %v", a, b, err)
	}
	return f
}

func (f *fixture) risk(r *Report, name string) NodeRisk {
	f.t.Helper()
	nr, ok := r.Get(f.ids[name])
	if !ok {
		f.t.Fatalf("report has no entry for %s", name)
	}
	return nr
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCompute_ThreatWithoutBarriers(t *testing.T) {
	f := newFixture(t).add("t", bowtie.NewThreat("Overpressure", 4, 5))

	nr := f.risk(Compute(f.g), "t")
	if nr.BaseRisk != 20 || nr.ResidualRisk != 20 || nr.CurrentRisk != 20 {
		t.Errorf("threat = %+v, want base/current/residual 20", nr)
	}
	if nr.Band != BandHigh {
		t.Errorf("band = %s, want high", nr.Band)
	}
}

func TestCompute_ThreatWithOwnedBarrier(t *testing.T) {
	f := newFixture(t).
		add("t", bowtie.NewThreat("Overpressure", 4, 5)).
		add("b", bowtie.NewBarrier("Relief valve", bowtie.Preventive, 50)).
		link("t", "b")

	nr := f.risk(Compute(f.g), "t")
	if !approx(nr.ResidualRisk, 10) {
		t.Errorf("residual = %v, want 10", nr.ResidualRisk)
	}
	if nr.Band != BandLow {
		t.Errorf("band = %s, want low", nr.Band)
	}
	if len(nr.Barriers) != 1 || nr.Barriers[0] != f.ids["b"] {
		t.Errorf("barriers = %v, want [%s]", nr.Barriers, f.ids["b"])
	}
}

func TestCompute_MitigativeBarrierNeverProtectsThreat(t *testing.T) {
	f := newFixture(t).
		add("t", bowtie.NewThreat("Overpressure", 4, 5)).
		add("m", bowtie.NewBarrier("Deluge", bowtie.Mitigative, 90)).
		link("t", "m")

	if nr := f.risk(Compute(f.g), "t"); nr.ResidualRisk != 20 {
		t.Errorf("residual = %v, want 20", nr.ResidualRisk)
	}
}

func TestCompute_SharedCenterCredit(t *testing.T) {
	build := func() *fixture {
		return newFixture(t).
			add("top", bowtie.NewTopEvent("Loss of containment")).
			add("t1", bowtie.NewThreat("Overfill", 4, 5)).
			add("t2", bowtie.NewThreat("Corrosion", 3, 3)).
			add("b", bowtie.NewBarrier("Level trip", bowtie.Preventive, 50)).
			link("t1", "b").
			link("b", "top")
	}

	t.Run("enabled", func(t *testing.T) {
		f := build()
		r := Compute(f.g)
		if got := f.risk(r, "t1").ResidualRisk; !approx(got, 10) {
			t.Errorf("t1 residual = %v, want 10", got)
		}
		// t2 has no edge to b but b feeds the Top Event.
		if got := f.risk(r, "t2").ResidualRisk; !approx(got, 4.5) {
			t.Errorf("t2 residual = %v, want 4.5", got)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		f := build()
		r := NewEngine(WithSharedCenterCredit(false)).Compute(f.g)
		if got := f.risk(r, "t1").ResidualRisk; !approx(got, 10) {
			t.Errorf("t1 residual = %v, want 10", got)
		}
		if got := f.risk(r, "t2").ResidualRisk; got != 9 {
			t.Errorf("t2 residual = %v, want 9", got)
		}
	})
}

func TestCompute_TopEventSumsAllThreats(t *testing.T) {
	f := newFixture(t).
		add("top", bowtie.NewTopEvent("Loss of containment")).
		add("t1", bowtie.NewThreat("Overfill", 3, 3)).
		add("t2", bowtie.NewThreat("Corrosion", 3, 4))
	// t2 is not connected to anything and still counts.
	f.link("t1", "top")

	r := Compute(f.g)
	top := f.risk(r, "top")
	if top.CurrentRisk != 21 || top.ResidualRisk != 21 {
		t.Errorf("top = %+v, want current/residual 21", top)
	}
	if top.Band != BandHigh {
		t.Errorf("band = %s, want high", top.Band)
	}
	if r.ThreatResidualSum != 21 || r.TopEventResidual != 21 {
		t.Errorf("sum=%v residual=%v, want 21/21", r.ThreatResidualSum, r.TopEventResidual)
	}
	if top.BaseRisk != 9 {
		t.Errorf("top base = %v, want 9 (defaults 3×3)", top.BaseRisk)
	}
}

func TestCompute_TopEventBarriers(t *testing.T) {
	f := newFixture(t).
		add("top", bowtie.NewTopEvent("Loss of containment")).
		add("t", bowtie.NewThreat("Overfill", 4, 5)).
		add("p", bowtie.NewBarrier("Interlock", bowtie.Preventive, 50)).
		add("m", bowtie.NewBarrier("Bund", bowtie.Mitigative, 90)).
		link("t", "p").
		link("p", "top").
		link("m", "top")

	r := Compute(f.g)
	// threat: 20 × 0.5; top: 10 × 0.5, the mitigative barrier is ignored.
	if got := f.risk(r, "t").ResidualRisk; !approx(got, 10) {
		t.Errorf("threat residual = %v, want 10", got)
	}
	top := f.risk(r, "top")
	if !approx(top.CurrentRisk, 10) || !approx(top.ResidualRisk, 5) {
		t.Errorf("top = %+v, want current 10 residual 5", top)
	}
}

func TestCompute_ConsequenceFromTopEvent(t *testing.T) {
	f := newFixture(t).
		add("top", bowtie.NewTopEvent("Loss of containment")).
		add("t", bowtie.NewThreat("Overfill", 4, 5)).
		add("p", bowtie.NewBarrier("Level alarm", bowtie.Preventive, 50)).
		add("m", bowtie.NewBarrier("Bund", bowtie.Mitigative, 75)).
		add("c", bowtie.NewConsequence("Pool fire", 2, 3)).
		link("t", "p").
		link("top", "m").
		link("m", "c")

	r := Compute(f.g)
	if !approx(r.TopEventResidual, 10) {
		t.Fatalf("top residual = %v, want 10", r.TopEventResidual)
	}
	c := f.risk(r, "c")
	if c.BaseRisk != 6 || !approx(c.CurrentRisk, 60) || !approx(c.ResidualRisk, 15) {
		t.Errorf("consequence = %+v, want base 6 current 60 residual 15", c)
	}
	if c.Band != BandMedium {
		t.Errorf("band = %s, want medium", c.Band)
	}
}

func TestCompute_PreventiveBarrierIgnoredForConsequence(t *testing.T) {
	f := newFixture(t).
		add("top", bowtie.NewTopEvent("Loss of containment")).
		add("t", bowtie.NewThreat("Overfill", 2, 2)).
		add("p", bowtie.NewBarrier("Misplaced", bowtie.Preventive, 90)).
		add("c", bowtie.NewConsequence("Spill", 1, 2)).
		link("p", "c")

	r := Compute(f.g)
	if got := f.risk(r, "c").ResidualRisk; !approx(got, f.risk(r, "c").CurrentRisk) {
		t.Errorf("preventive barrier reduced consequence: %v", got)
	}
}

func TestCompute_NoTopEvent(t *testing.T) {
	f := newFixture(t).
		add("t", bowtie.NewThreat("Overfill", 5, 5)).
		add("m", bowtie.NewBarrier("Bund", bowtie.Mitigative, 50)).
		add("c", bowtie.NewConsequence("Fire", 5, 5)).
		link("m", "c")

	r := Compute(f.g)
	if r.TopEventID != "" || r.TopEventResidual != 0 {
		t.Errorf("top = %q / %v, want none", r.TopEventID, r.TopEventResidual)
	}
	c := f.risk(r, "c")
	if c.CurrentRisk != 0 || c.ResidualRisk != 0 {
		t.Errorf("consequence = %+v, want zero current/residual", c)
	}
	if c.BaseRisk != 25 {
		t.Errorf("base = %v, want 25", c.BaseRisk)
	}
	if got := f.risk(r, "t").ResidualRisk; got != 25 {
		t.Errorf("threat residual = %v, want 25", got)
	}
}

func TestCompute_LatestTopEventWins(t *testing.T) {
	g := bowtie.NewGraph()
	old, _ := g.RestoreNode(bowtie.Node{ID: "center_old", Kind: bowtie.KindTopEvent, Label: "old"})
	cur, _ := g.RestoreNode(bowtie.Node{ID: "center_new", Kind: bowtie.KindTopEvent, Label: "new"})
	g.RestoreNode(bowtie.Node{ID: "threat_a", Kind: bowtie.KindThreat, Severity: 2, Likelihood: 2})
	g.RestoreNode(bowtie.Node{ID: "barrier_a", Kind: bowtie.KindBarrier,
		Barrier: bowtie.BarrierAttributes{Type: bowtie.Preventive, Effectiveness: 50}})
	g.RestoreEdge(bowtie.Edge{ID: "e1", Source: "barrier_a", Target: "center_old"})

	var buf bytes.Buffer
	r := NewEngine(WithLogger(logging.NewJSONLogger(&buf, logging.WarnLevel))).Compute(g)

	if r.TopEventID != cur.ID {
		t.Errorf("TopEventID = %s, want %s", r.TopEventID, cur.ID)
	}
	if len(r.IgnoredTopEvents) != 1 || r.IgnoredTopEvents[0] != old.ID {
		t.Errorf("IgnoredTopEvents = %v, want [%s]", r.IgnoredTopEvents, old.ID)
	}
	// The barrier feeds the ignored Top Event, so it earns no shared credit.
	if got := r.Nodes["threat_a"].ResidualRisk; got != 4 {
		t.Errorf("threat residual = %v, want 4", got)
	}
	if got := r.Nodes[old.ID]; got.ResidualRisk != 0 || got.CurrentRisk != 0 {
		t.Errorf("ignored top event = %+v, want zero", got)
	}
	if !strings.Contains(buf.String(), "several top events") {
		t.Errorf("expected warning, got log %q", buf.String())
	}
}

func TestCompute_DanglingEdgesIgnored(t *testing.T) {
	build := func(dangling bool) *bowtie.Graph {
		g := bowtie.NewGraph()
		g.RestoreNode(bowtie.Node{ID: "threat_a", Kind: bowtie.KindThreat, Severity: 4, Likelihood: 4})
		g.RestoreNode(bowtie.Node{ID: "center_a", Kind: bowtie.KindTopEvent})
		g.RestoreEdge(bowtie.Edge{ID: "e1", Source: "threat_a", Target: "center_a"})
		if dangling {
			g.RestoreEdge(bowtie.Edge{ID: "e2", Source: "threat_a", Target: "barrier_gone"})
			g.RestoreEdge(bowtie.Edge{ID: "e3", Source: "barrier_gone", Target: "center_a"})
		}
		return g
	}

	clean := Compute(build(false))
	reg := metrics.NewRegistry()
	messy := NewEngine(WithMetrics(reg)).Compute(build(true))

	if len(messy.DanglingEdges) != 2 {
		t.Fatalf("DanglingEdges = %v, want 2 entries", messy.DanglingEdges)
	}
	for id, want := range clean.Nodes {
		if got := messy.Nodes[id]; got.ResidualRisk != want.ResidualRisk {
			t.Errorf("%s residual = %v, want %v", id, got.ResidualRisk, want.ResidualRisk)
		}
	}
	anomalies, _ := reg.EngineAnomaliesTotal.GetMetricWithLabelValues("dangling_edge")
	if got := testutil.ToFloat64(anomalies); got != 2 {
		t.Errorf("dangling anomalies = %v, want 2", got)
	}
	if got := testutil.ToFloat64(reg.EngineRunsTotal); got != 1 {
		t.Errorf("runs = %v, want 1", got)
	}
}

func TestCompute_BarrierEntries(t *testing.T) {
	f := newFixture(t).
		add("good", bowtie.NewBarrier("PSV", bowtie.Preventive, 80)).
		add("fair", bowtie.NewBarrier("Alarm", bowtie.Preventive, 50)).
		add("poor", bowtie.NewBarrier("Procedure", bowtie.Mitigative, 10))

	r := Compute(f.g)
	for name, want := range map[string]Band{"good": BandGood, "fair": BandFair, "poor": BandPoor} {
		nr := f.risk(r, name)
		if nr.Band != want {
			t.Errorf("%s band = %s, want %s", name, nr.Band, want)
		}
		if nr.BaseRisk != 9 || nr.ResidualRisk != 0 {
			t.Errorf("%s = %+v, want base 9 and no residual", name, nr)
		}
	}
}

func TestCompute_Deterministic(t *testing.T) {
	f := newFixture(t).
		add("top", bowtie.NewTopEvent("Loss of containment")).
		add("t1", bowtie.NewThreat("A", 5, 4)).
		add("t2", bowtie.NewThreat("B", 3, 2)).
		add("t3", bowtie.NewThreat("C", 1, 5)).
		add("b1", bowtie.NewBarrier("X", bowtie.Preventive, 33)).
		add("b2", bowtie.NewBarrier("Y", bowtie.Preventive, 67)).
		add("c", bowtie.NewConsequence("Z", 4, 4)).
		link("t1", "b1").link("t2", "b1").link("b2", "top").link("top", "c")

	first := Compute(f.g)
	second := Compute(f.g)
	if !first.Equal(second) {
		t.Error("two runs over the same graph differ")
	}
	if !first.Equal(Compute(f.g.Clone())) {
		t.Error("run over a clone differs")
	}
}

func TestCompute_DoesNotMutateGraph(t *testing.T) {
	f := newFixture(t).
		add("t", bowtie.NewThreat("A", 4, 5)).
		add("b", bowtie.NewBarrier("B", bowtie.Preventive, 50)).
		link("t", "b")
	before := f.g.Clone()

	Compute(f.g)

	for _, n := range before.Nodes() {
		after, _ := f.g.Node(n.ID)
		if after.Severity != n.Severity || after.Likelihood != n.Likelihood ||
			after.Barrier != n.Barrier || after.Label != n.Label {
			t.Errorf("node %s changed: %+v -> %+v", n.ID, n, after)
		}
	}
}

func TestCompute_OrderFollowsCreation(t *testing.T) {
	f := newFixture(t).
		add("c", bowtie.NewConsequence("C", 1, 1)).
		add("t", bowtie.NewThreat("T", 1, 1)).
		add("top", bowtie.NewTopEvent("X"))

	r := Compute(f.g)
	want := []string{f.ids["c"], f.ids["t"], f.ids["top"]}
	if strings.Join(r.Order, ",") != strings.Join(want, ",") {
		t.Errorf("Order = %v, want %v", r.Order, want)
	}
	if got := len(r.OfKind(bowtie.KindThreat)); got != 1 {
		t.Errorf("OfKind(threat) = %d, want 1", got)
	}
}

func TestNodeRisk_Badge(t *testing.T) {
	tests := []struct {
		nr   NodeRisk
		want string
	}{
		{NodeRisk{Kind: bowtie.KindThreat, BaseRisk: 20, ResidualRisk: 10}, "Base: 20 → Residual: 10"},
		{NodeRisk{Kind: bowtie.KindThreat, BaseRisk: 9, ResidualRisk: 4.5}, "Base: 9 → Residual: 4"},
		{NodeRisk{Kind: bowtie.KindTopEvent, BaseRisk: 9, CurrentRisk: 21, ResidualRisk: 10.5},
			"Base: 9 | Current (Σ threats): 21 → Residual: 10"},
		{NodeRisk{Kind: bowtie.KindConsequence, BaseRisk: 6, CurrentRisk: 60, ResidualRisk: 15},
			"Base: 6 | Current(from Top): 60 → Residual: 15"},
		{NodeRisk{Kind: bowtie.KindBarrier, Effectiveness: 75}, "Effectiveness: 75%"},
	}

	for _, tt := range tests {
		if got := tt.nr.Badge(); got != tt.want {
			t.Errorf("Badge() = %q, want %q", got, tt.want)
		}
	}
}

func TestOwnedPreventiveBarriers(t *testing.T) {
	f := newFixture(t).
		add("top", bowtie.NewTopEvent("Top")).
		add("t1", bowtie.NewThreat("T1", 3, 3)).
		add("t2", bowtie.NewThreat("T2", 3, 3)).
		add("direct", bowtie.NewBarrier("Direct", bowtie.Preventive, 40)).
		add("center", bowtie.NewBarrier("Center", bowtie.Preventive, 40)).
		add("mit", bowtie.NewBarrier("Mit", bowtie.Mitigative, 40)).
		link("t1", "direct").
		link("center", "top").
		link("t1", "mit").
		link("mit", "top")

	got := OwnedPreventiveBarriers(f.g, f.ids["t1"])
	want := []string{f.ids["center"], f.ids["direct"]}
	if want[0] > want[1] {
		want[0], want[1] = want[1], want[0]
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("t1 owned = %v, want %v", got, want)
	}

	got = OwnedPreventiveBarriers(f.g, f.ids["t2"])
	if len(got) != 1 || got[0] != f.ids["center"] {
		t.Errorf("t2 owned = %v, want [%s]", got, f.ids["center"])
	}

	resolver := NewOwnershipResolver(f.g, false)
	if got := resolver.OwnedPreventiveBarriers(f.ids["t2"]); len(got) != 0 {
		t.Errorf("without shared credit t2 owned = %v, want none", got)
	}
}
