package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timagonch/bowtie-diagram/pkg/bowtie"
	"github.com/timagonch/bowtie-diagram/pkg/risk"
)

// refinery builds a small diagram whose nodes are created out of diagram
// order, so row sorting is observable.
func refinery(t *testing.T) (*bowtie.Graph, map[string]string) {
	t.Helper()
	g := bowtie.NewGraph()
	ids := map[string]string{}

	add := func(name string, n bowtie.Node) {
		created, err := g.AddNode(n)
		require.NoError(t, err)
		ids[name] = created.ID
	}
	link := func(a, b string) {
		_, err := g.Connect(ids[a], ids[b])
		require.NoError(t, err)
	}

	add("fire", bowtie.NewConsequence("Fire", 4, 3))
	add("top", bowtie.NewTopEvent("Loss of containment"))
	add("relief", bowtie.NewBarrier("Relief valve", bowtie.Preventive, 50))
	add("overpressure", bowtie.NewThreat("Overpressure", 5, 4))
	link("overpressure", "relief")
	link("relief", "top")
	link("top", "fire")
	return g, ids
}

func TestRows_DiagramOrder(t *testing.T) {
	g, ids := refinery(t)
	rows := Rows(g, risk.Compute(g))

	require.Len(t, rows, 4)
	kinds := make([]bowtie.Kind, len(rows))
	for i, r := range rows {
		kinds[i] = r.Kind
	}
	assert.Equal(t, bowtie.Kinds, kinds)

	threat := rows[0]
	assert.Equal(t, ids["overpressure"], threat.ID)
	assert.Equal(t, "Overpressure", threat.Label)
	assert.Equal(t, "20", threat.Base)
	assert.Equal(t, "10", threat.Residual)
	assert.Equal(t, "Base: 20 → Residual: 10", threat.Badge)

	barrier := rows[1]
	assert.Equal(t, "-", barrier.Current)
	assert.Equal(t, "-", barrier.Residual)
	assert.Equal(t, risk.BandFair, barrier.Band)
	assert.Equal(t, "Effectiveness: 50%", barrier.Badge)
}

func TestRows_IgnoredTopEvent(t *testing.T) {
	g := bowtie.NewGraph()
	old, err := g.AddNode(bowtie.NewTopEvent("Old"))
	require.NoError(t, err)
	_, err = g.AddNode(bowtie.NewTopEvent("New"))
	require.NoError(t, err)

	for _, r := range Rows(g, risk.Compute(g)) {
		if r.ID == old.ID {
			assert.Equal(t, "-", r.Residual)
			assert.Contains(t, r.Badge, "ignored")
			return
		}
	}
	t.Fatalf("row for %s missing", old.ID)
}

func TestFormatRisk(t *testing.T) {
	tests := map[float64]string{
		20:    "20",
		2.5:   "2.5",
		0.126: "0.13",
		0:     "0",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatRisk(in), "formatRisk(%v)", in)
	}
}

func TestTable(t *testing.T) {
	g, _ := refinery(t)
	out := Table(g, risk.Compute(g))

	for _, col := range Columns {
		assert.Contains(t, out, col)
	}
	assert.Contains(t, out, "Relief valve")
	assert.Contains(t, out, "Loss of containment")
	assert.Less(t, strings.Index(out, "Overpressure"), strings.Index(out, "Fire"))
}

func TestSummary(t *testing.T) {
	g, _ := refinery(t)
	out := Summary(g, risk.Compute(g))
	assert.Contains(t, out, "Loss of containment")
	assert.Contains(t, out, "threats Σ 10")

	empty := bowtie.NewGraph()
	assert.Contains(t, Summary(empty, risk.Compute(empty)), "No Top Event")
}

func TestDiagnostics(t *testing.T) {
	assert.Contains(t, Diagnostics(nil), "no findings")

	out := Diagnostics([]bowtie.Diagnostic{
		{Code: bowtie.DiagUnlinkedThreat, Level: bowtie.LevelInfo, Message: "threat_1 is not linked"},
		{Code: bowtie.DiagMissingTopEvent, Level: bowtie.LevelWarning, Message: "no Top Event"},
	})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "missing_top_event")
	assert.Contains(t, lines[1], "unlinked_threat")
}
