package codec

import (
	"fmt"

	"github.com/timagonch/bowtie-diagram/pkg/bowtie"
	"github.com/timagonch/bowtie-diagram/pkg/risk"
)

// Semantic keys under data.meta. Everything else in a node is presentation.
const (
	metaKind          = "kind"
	metaSeverity      = "severity"
	metaLikelihood    = "likelihood"
	metaEffectiveness = "effectiveness"
	metaBarrierType   = "barrier_type"
	metaBaseRisk      = "base_risk"
	metaCurrentRisk   = "current_risk"
	metaResidualRisk  = "residual_risk"
	metaBand          = "band"
)

var semanticMetaKeys = []string{
	metaKind, metaSeverity, metaLikelihood, metaEffectiveness, metaBarrierType,
	metaBaseRisk, metaCurrentRisk, metaResidualRisk, metaBand,
}

// DefaultMarkerEnd is the arrow head the editor draws on new edges.
const DefaultMarkerEnd = "arrowclosed"

// legacyKindTag is the data.meta.kind value editors understand.
func legacyKindTag(k bowtie.Kind) string {
	if k == bowtie.KindTopEvent {
		return "center"
	}
	return string(k)
}

// ToGraph restores a graph from a document. Nodes and edges keep document
// order; several Top Events and dangling edges are preserved as found.
func ToGraph(doc *Document) (*bowtie.Graph, error) {
	g := bowtie.NewGraph()

	for i, raw := range doc.Nodes {
		n, err := nodeFromMap(raw)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		if _, err := g.RestoreNode(n); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
	}

	for i, raw := range doc.Edges {
		e, err := edgeFromMap(raw)
		if err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
		if _, err := g.RestoreEdge(e); err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
	}

	return g, nil
}

func nodeFromMap(raw map[string]any) (bowtie.Node, error) {
	id := toString(raw["id"])
	data := asMap(raw["data"])
	meta := asMap(data["meta"])

	kind, err := resolveKind(id, meta)
	if err != nil {
		return bowtie.Node{}, err
	}

	n := bowtie.Node{ID: id, Kind: kind, Label: labelOf(data)}
	n.Severity, _ = toInt(meta[metaSeverity])
	n.Likelihood, _ = toInt(meta[metaLikelihood])

	if kind == bowtie.KindBarrier {
		eff, _ := toInt(meta[metaEffectiveness])
		n.Barrier = bowtie.BarrierAttributes{Effectiveness: eff}
		raw := toString(meta[metaBarrierType])
		typ, err := bowtie.ParseBarrierType(raw)
		if err != nil {
			typ = bowtie.Preventive
			n.Barrier.DeclaredType = raw
		}
		n.Barrier.Type = typ
	}

	n.Presentation = presentationOf(raw)
	return n, nil
}

func resolveKind(id string, meta map[string]any) (bowtie.Kind, error) {
	if tag := toString(meta[metaKind]); tag != "" {
		return bowtie.ParseKind(tag)
	}
	if k, ok := bowtie.KindFromIDPrefix(id); ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: node %q has no kind tag and an unrecognised id prefix", bowtie.ErrUnknownKind, id)
}

// labelOf picks the most specific label the editor stored.
func labelOf(data map[string]any) string {
	for _, key := range []string{"label", "baseLabel", "base_content", "content"} {
		if s := toString(data[key]); s != "" {
			return s
		}
	}
	return ""
}

// presentationOf strips id and semantic meta keys; the rest is opaque.
func presentationOf(raw map[string]any) map[string]any {
	p := copyMap(raw)
	delete(p, "id")

	data := asMap(p["data"])
	if data == nil {
		return p
	}
	data = copyMap(data)
	if meta := asMap(data["meta"]); meta != nil {
		meta = copyMap(meta)
		for _, k := range semanticMetaKeys {
			delete(meta, k)
		}
		if len(meta) == 0 {
			delete(data, "meta")
		} else {
			data["meta"] = meta
		}
	}
	p["data"] = data
	return p
}

func edgeFromMap(raw map[string]any) (bowtie.Edge, error) {
	e := bowtie.Edge{
		ID:     toString(raw["id"]),
		Source: toString(raw["source"]),
		Target: toString(raw["target"]),
	}
	if e.Source == "" || e.Target == "" {
		return bowtie.Edge{}, fmt.Errorf("%w: edge %q needs source and target", ErrMalformed, e.ID)
	}
	p := copyMap(raw)
	delete(p, "id")
	delete(p, "source")
	delete(p, "target")
	if len(p) > 0 {
		e.Presentation = p
	}
	return e, nil
}

// FromGraph builds a document from g. When report is non-nil the derived
// values are written into data.meta and the band colour into
// style.background, as the editor expects to find them.
func FromGraph(g *bowtie.Graph, report *risk.Report) *Document {
	doc := &Document{
		Nodes: make([]map[string]any, 0, g.NodeCount()),
		Edges: make([]map[string]any, 0, g.EdgeCount()),
	}

	for _, n := range g.Nodes() {
		var nr *risk.NodeRisk
		if report != nil {
			if v, ok := report.Get(n.ID); ok {
				nr = &v
			}
		}
		doc.Nodes = append(doc.Nodes, nodeToMap(n, nr))
	}
	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, edgeToMap(e))
	}
	return doc
}

func nodeToMap(n *bowtie.Node, nr *risk.NodeRisk) map[string]any {
	m := copyMap(n.Presentation)
	m["id"] = n.ID

	data := copyMap(asMap(m["data"]))
	meta := copyMap(asMap(data["meta"]))

	if n.Label != "" {
		data["label"] = n.Label
	}
	meta[metaKind] = legacyKindTag(n.Kind)
	meta[metaSeverity] = n.Severity
	meta[metaLikelihood] = n.Likelihood
	if n.Kind == bowtie.KindBarrier {
		meta[metaEffectiveness] = n.Barrier.Effectiveness
		meta[metaBarrierType] = string(n.Barrier.Type)
		if n.Barrier.DeclaredType != "" {
			meta[metaBarrierType] = n.Barrier.DeclaredType
		}
	}

	if nr != nil {
		meta[metaBaseRisk] = nr.BaseRisk
		meta[metaCurrentRisk] = nr.CurrentRisk
		meta[metaResidualRisk] = nr.ResidualRisk
		meta[metaBand] = nr.Band.String()

		style := copyMap(asMap(m["style"]))
		style["background"] = nr.Band.Color()
		m["style"] = style
	}

	data["meta"] = meta
	m["data"] = data
	return m
}

func edgeToMap(e *bowtie.Edge) map[string]any {
	m := copyMap(e.Presentation)
	m["id"] = e.ID
	m["source"] = e.Source
	m["target"] = e.Target
	if _, ok := m["markerEnd"]; !ok {
		m["markerEnd"] = DefaultMarkerEnd
	}
	return m
}

// Decode parses data in format f straight into a graph.
func Decode(data []byte, f Format) (*bowtie.Graph, error) {
	doc, err := Unmarshal(data, f)
	if err != nil {
		return nil, err
	}
	return ToGraph(doc)
}

// Encode serializes g (and optionally its report) in format f.
func Encode(g *bowtie.Graph, report *risk.Report, f Format) ([]byte, error) {
	return FromGraph(g, report).Marshal(f)
}
