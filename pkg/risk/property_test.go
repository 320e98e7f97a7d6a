package risk

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/timagonch/bowtie-diagram/pkg/bowtie"
)

// genDiagram describes a random diagram: attribute triples per node and
// edge endpoints as index pairs. Kinds cycle through bowtie.Kinds.
type genDiagram struct {
	Attrs []int
	Pairs []int
}

func (d genDiagram) build() *bowtie.Graph {
	g := bowtie.NewGraph()
	var ids []string
	types := []bowtie.BarrierType{bowtie.Preventive, bowtie.Mitigative}
	for i := 0; i+2 < len(d.Attrs); i += 3 {
		kind := bowtie.Kinds[(i/3)%len(bowtie.Kinds)]
		n := bowtie.Node{Kind: kind, Severity: d.Attrs[i]%6 + 1, Likelihood: d.Attrs[i+1]%6 + 1}
		if kind == bowtie.KindBarrier {
			n.Barrier = bowtie.BarrierAttributes{Effectiveness: d.Attrs[i+2] % 101, Type: types[d.Attrs[i]%2]}
		}
		stored, err := g.RestoreNode(n)
		if err != nil {
			continue
		}
		ids = append(ids, stored.ID)
	}
	if len(ids) < 2 {
		return g
	}
	for i := 0; i+1 < len(d.Pairs); i += 2 {
		g.Connect(ids[d.Pairs[i]%len(ids)], ids[d.Pairs[i+1]%len(ids)])
	}
	return g
}

func diagramGen() gopter.Gen {
	return gopter.CombineGens(
		gen.SliceOfN(24, gen.IntRange(0, 200)),
		gen.SliceOf(gen.IntRange(0, 50)),
	).Map(func(vals []interface{}) genDiagram {
		return genDiagram{Attrs: vals[0].([]int), Pairs: vals[1].([]int)}
	})
}

func TestEngineProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("residual never exceeds current and never goes negative", prop.ForAll(
		func(d genDiagram) bool {
			r := Compute(d.build())
			for _, nr := range r.Nodes {
				if nr.ResidualRisk < 0 || nr.ResidualRisk > nr.CurrentRisk+1e-9 {
					return false
				}
			}
			return true
		},
		diagramGen(),
	))

	properties.Property("threat residual stays within [0, base]", prop.ForAll(
		func(d genDiagram) bool {
			r := Compute(d.build())
			for _, nr := range r.OfKind(bowtie.KindThreat) {
				if nr.ResidualRisk < 0 || nr.ResidualRisk > nr.BaseRisk {
					return false
				}
			}
			return true
		},
		diagramGen(),
	))

	properties.Property("recomputation is idempotent", prop.ForAll(
		func(d genDiagram) bool {
			g := d.build()
			return Compute(g).Equal(Compute(g))
		},
		diagramGen(),
	))

	properties.Property("raising a barrier's effectiveness never raises residual risk", prop.ForAll(
		func(d genDiagram, pick int, bump int) bool {
			g := d.build()
			barriers := g.NodesOfKind(bowtie.KindBarrier)
			if len(barriers) == 0 {
				return true
			}
			before := Compute(g)

			b := barriers[pick%len(barriers)]
			eff := b.Barrier.Effectiveness + bump
			if err := g.UpdateRisk(b.ID, bowtie.RiskUpdate{Effectiveness: &eff}); err != nil {
				return false
			}
			after := Compute(g)

			for id, nr := range after.Nodes {
				if !nr.Kind.RiskBearing() {
					continue
				}
				if nr.ResidualRisk > before.Nodes[id].ResidualRisk+1e-9 {
					return false
				}
			}
			return true
		},
		diagramGen(),
		gen.IntRange(0, 100),
		gen.IntRange(0, 100),
	))

	properties.Property("combined effectiveness stays in [0,1]", prop.ForAll(
		func(pcts []int) bool {
			c := CombinedEffectiveness(pcts...)
			return c >= 0 && c <= 1
		},
		gen.SliceOf(gen.IntRange(-50, 150)),
	))

	properties.TestingRun(t)
}
