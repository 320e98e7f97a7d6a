package health

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/timagonch/bowtie-diagram/pkg/bowtie"
	"github.com/timagonch/bowtie-diagram/pkg/risk"
)

// StoreCheck reports whether the diagram store answers ping.
func StoreCheck(backend string, ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{
			Name:    "store",
			Details: map[string]any{"backend": backend},
		}
		if err := ping(ctx); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}
		check.Status = StatusHealthy
		check.Message = "Reachable"
		return check
	}
}

// WorkspaceCheck reports how many diagrams are held in memory.
func WorkspaceCheck(open func() int) CheckFunc {
	return func(ctx context.Context) Check {
		return Check{
			Name:    "workspace",
			Status:  StatusHealthy,
			Details: map[string]any{"open_diagrams": open()},
		}
	}
}

// expectation is one hand-computed value of the reference diagram.
type expectation struct {
	what string
	got  func(*risk.Report) float64
	want float64
}

// selfTestDiagram is one threat (4×5) behind a 50% preventive barrier and one
// consequence (4×3) behind a 50% mitigative barrier.
func selfTestDiagram() (*bowtie.Graph, []expectation, error) {
	g := bowtie.NewGraph()
	nodes := []bowtie.Node{
		bowtie.NewTopEvent("self-test"),
		bowtie.NewThreat("threat", 4, 5),
		bowtie.NewBarrier("prevent", bowtie.Preventive, 50),
		bowtie.NewConsequence("consequence", 4, 3),
		bowtie.NewBarrier("mitigate", bowtie.Mitigative, 50),
	}
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		created, err := g.AddNode(n)
		if err != nil {
			return nil, nil, err
		}
		ids[i] = created.ID
	}
	top, threat, prevent, conseq, mitigate := ids[0], ids[1], ids[2], ids[3], ids[4]
	for _, e := range [][2]string{
		{threat, prevent},
		{prevent, top},
		{top, mitigate},
		{mitigate, conseq},
	} {
		if _, err := g.Connect(e[0], e[1]); err != nil {
			return nil, nil, err
		}
	}

	residual := func(id string) func(*risk.Report) float64 {
		return func(r *risk.Report) float64 { return r.Nodes[id].ResidualRisk }
	}
	return g, []expectation{
		{"threat residual", residual(threat), 10},
		{"top event residual", func(r *risk.Report) float64 { return r.TopEventResidual }, 5},
		{"consequence current", func(r *risk.Report) float64 { return r.Nodes[conseq].CurrentRisk }, 60},
		{"consequence residual", residual(conseq), 30},
	}, nil
}

// EngineCheck runs engine on a fixed reference diagram and compares the
// result with hand-computed values.
func EngineCheck(engine *risk.Engine) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{Name: "engine"}

		g, expected, err := selfTestDiagram()
		if err != nil {
			check.Status = StatusUnhealthy
			check.Message = fmt.Sprintf("building reference diagram: %v", err)
			return check
		}
		report := engine.Compute(g)

		for _, e := range expected {
			if got := e.got(report); math.Abs(got-e.want) > 1e-9 {
				check.Status = StatusUnhealthy
				check.Message = fmt.Sprintf("%s %.4f, want %.4f", e.what, got, e.want)
				return check
			}
		}

		check.Status = StatusHealthy
		check.Message = "Reference diagram matches"
		return check
	}
}

// MemoryCheck reports degraded when the Go heap uses over 90% of the memory
// obtained from the OS.
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()
		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		usagePercent := 0.0
		if sys > 0 {
			usagePercent = float64(alloc) / float64(sys) * 100
		}
		if usagePercent > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}
		return check
	}
}

// RuntimeMemory reads heap usage from the Go runtime.
func RuntimeMemory() (alloc, sys uint64) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc, m.Sys
}
