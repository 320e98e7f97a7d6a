// Package risk propagates risk through a bow-tie graph.
//
// A run makes four passes over a snapshot of the graph: threats (base risk
// reduced by owned preventive barriers), the Top Event (sum of threat
// residuals reduced by preventive barriers feeding it), consequences (the
// Top Event residual scaled by consequence base risk and reduced by
// mitigative barriers) and finally barrier bands. Every run recomputes from
// scratch; nothing is carried between runs.
package risk

import (
	"time"

	"github.com/timagonch/bowtie-diagram/pkg/bowtie"
	"github.com/timagonch/bowtie-diagram/pkg/logging"
	"github.com/timagonch/bowtie-diagram/pkg/metrics"
)

// Engine computes reports. It is safe for concurrent use; it holds only
// configuration.
type Engine struct {
	logger             logging.Logger
	metrics            *metrics.Registry
	sharedCenterCredit bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger anomalies are reported to.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records run statistics in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(e *Engine) {
		e.metrics = reg
	}
}

// WithSharedCenterCredit toggles crediting preventive barriers that feed the
// Top Event to every threat. Enabled by default.
func WithSharedCenterCredit(enabled bool) Option {
	return func(e *Engine) {
		e.sharedCenterCredit = enabled
	}
}

// NewEngine creates an engine with the given options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger:             logging.NewNopLogger(),
		sharedCenterCredit: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute runs a propagation pass with default settings.
func Compute(g *bowtie.Graph) *Report {
	return NewEngine().Compute(g)
}

// Compute derives base, current and residual risk for every node of g.
// Anomalies (no Top Event, several Top Events, dangling edges) are tolerated
// and surfaced in the report.
func (e *Engine) Compute(g *bowtie.Graph) *Report {
	start := time.Now()

	topo := newTopology(g)
	nodes := g.Nodes()
	report := &Report{
		Nodes:         make(map[string]NodeRisk, len(nodes)),
		Order:         make([]string, 0, len(nodes)),
		DanglingEdges: topo.dangling,
	}
	for _, n := range nodes {
		report.Order = append(report.Order, n.ID)
		report.Nodes[n.ID] = NodeRisk{ID: n.ID, Kind: n.Kind, BaseRisk: n.BaseRisk()}
	}

	e.propagateThreats(topo, nodes, report)
	e.propagateTopEvent(topo, nodes, report)
	e.propagateConsequences(topo, nodes, report)
	e.classifyBarriers(nodes, report)

	e.reportAnomalies(g, report)

	elapsed := time.Since(start)
	if e.metrics != nil {
		e.metrics.RecordEngineRun(elapsed, len(nodes))
		for _, nr := range report.Nodes {
			e.metrics.RecordBand(nr.Band.String())
		}
	}
	e.logger.Debug("risk propagated",
		logging.Count(len(nodes)),
		logging.Float64("top_event_residual", report.TopEventResidual),
		logging.Latency(elapsed))

	return report
}

func (e *Engine) propagateThreats(topo *topology, nodes []*bowtie.Node, report *Report) {
	resolver := newResolver(topo, e.sharedCenterCredit)
	for _, n := range nodes {
		if n.Kind != bowtie.KindThreat {
			continue
		}
		owned := resolver.OwnedPreventiveBarriers(n.ID)
		nr := report.Nodes[n.ID]
		nr.ResidualRisk = nr.BaseRisk * (1 - CombinedEffectiveness(topo.effectiveness(owned)...))
		nr.CurrentRisk = nr.ResidualRisk
		nr.Band = RiskBandFor(nr.ResidualRisk)
		nr.Barriers = owned
		report.Nodes[n.ID] = nr
	}
}

func (e *Engine) propagateTopEvent(topo *topology, nodes []*bowtie.Node, report *Report) {
	// Threats connected or not, all contribute; summed in creation order so
	// repeated runs agree bit for bit.
	var sum float64
	for _, n := range nodes {
		if n.Kind == bowtie.KindThreat {
			sum += report.Nodes[n.ID].ResidualRisk
		}
	}
	report.ThreatResidualSum = sum

	for _, n := range nodes {
		if n.Kind != bowtie.KindTopEvent {
			continue
		}
		nr := report.Nodes[n.ID]
		if topo.top == nil || n.ID != topo.top.ID {
			nr.Band = RiskBandFor(0)
			report.IgnoredTopEvents = append(report.IgnoredTopEvents, n.ID)
			report.Nodes[n.ID] = nr
			continue
		}
		barriers := topo.barriersInto(n.ID, bowtie.Preventive)
		nr.CurrentRisk = sum
		nr.ResidualRisk = sum * (1 - CombinedEffectiveness(topo.effectiveness(barriers)...))
		nr.Band = RiskBandFor(nr.ResidualRisk)
		nr.Barriers = barriers
		report.Nodes[n.ID] = nr

		report.TopEventID = n.ID
		report.TopEventResidual = nr.ResidualRisk
	}
}

func (e *Engine) propagateConsequences(topo *topology, nodes []*bowtie.Node, report *Report) {
	for _, n := range nodes {
		if n.Kind != bowtie.KindConsequence {
			continue
		}
		barriers := topo.barriersInto(n.ID, bowtie.Mitigative)
		nr := report.Nodes[n.ID]
		nr.CurrentRisk = report.TopEventResidual * nr.BaseRisk
		nr.ResidualRisk = nr.CurrentRisk * (1 - CombinedEffectiveness(topo.effectiveness(barriers)...))
		nr.Band = RiskBandFor(nr.ResidualRisk)
		nr.Barriers = barriers
		report.Nodes[n.ID] = nr
	}
}

func (e *Engine) classifyBarriers(nodes []*bowtie.Node, report *Report) {
	for _, n := range nodes {
		if n.Kind != bowtie.KindBarrier {
			continue
		}
		nr := report.Nodes[n.ID]
		nr.Effectiveness = n.Barrier.Effectiveness
		nr.Band = BarrierBandFor(n.Barrier.Effectiveness)
		report.Nodes[n.ID] = nr
	}
}

func (e *Engine) reportAnomalies(g *bowtie.Graph, report *Report) {
	if report.TopEventID == "" {
		e.logger.Debug("no top event; consequences carry zero risk",
			logging.Count(len(g.NodesOfKind(bowtie.KindConsequence))))
		e.recordAnomaly("missing_top_event", 1)
	}
	if len(report.IgnoredTopEvents) > 0 {
		e.logger.Warn("several top events present; using the latest",
			logging.String("top_event", report.TopEventID),
			logging.Strings("ignored", report.IgnoredTopEvents))
		e.recordAnomaly("ambiguous_top_event", len(report.IgnoredTopEvents))
	}
	if len(report.DanglingEdges) > 0 {
		e.logger.Warn("ignoring dangling edges",
			logging.Strings("edges", report.DanglingEdges))
		e.recordAnomaly("dangling_edge", len(report.DanglingEdges))
	}
}

func (e *Engine) recordAnomaly(kind string, n int) {
	if e.metrics != nil {
		e.metrics.RecordEngineAnomaly(kind, n)
	}
}
