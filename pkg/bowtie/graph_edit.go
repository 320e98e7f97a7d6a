package bowtie

// Editing operations. These are the validated mutations an editing surface
// performs; the risk engine never calls them.

// AddNode adds a new node. An empty id is replaced with a generated one.
// A second Top Event is rejected: use SetTopEvent to replace it.
func (g *Graph) AddNode(n Node) (*Node, error) {
	if !n.Kind.Valid() {
		return nil, NewError("AddNode").Node(n.ID).Cause(ErrUnknownKind).Build()
	}
	if n.Kind == KindTopEvent {
		if existing, ok := g.TopEvent(); ok {
			return nil, NewError("AddNode").Node(existing.ID).Cause(ErrTopEventExists).Build()
		}
	}
	if n.ID == "" {
		n.ID = g.freshNodeID(n.Kind)
	}
	if _, exists := g.nodeIndex[n.ID]; exists {
		return nil, NewError("AddNode").Node(n.ID).Cause(ErrDuplicateID).Build()
	}
	return g.insertNode(n), nil
}

// SetTopEvent replaces every existing Top Event (and the edges touching it)
// with a fresh one carrying the given label.
func (g *Graph) SetTopEvent(label string) (*Node, error) {
	for _, old := range g.TopEvents() {
		if err := g.RemoveNode(old.ID); err != nil {
			return nil, err
		}
	}
	return g.AddNode(NewTopEvent(label))
}

// RemoveNode deletes a node and every edge incident to it.
func (g *Graph) RemoveNode(id string) error {
	if _, ok := g.nodeIndex[id]; !ok {
		return NewError("RemoveNode").Node(id).Cause(ErrNodeNotFound).Build()
	}

	nodes := g.nodes[:0]
	for _, n := range g.nodes {
		if n.ID != id {
			nodes = append(nodes, n)
		}
	}
	g.nodes = nodes
	delete(g.nodeIndex, id)

	edges := g.edges[:0]
	for _, e := range g.edges {
		if e.Source == id || e.Target == id {
			delete(g.edgeIndex, e.ID)
			continue
		}
		edges = append(edges, e)
	}
	g.edges = edges
	return nil
}

// Connect adds an edge source -> target. Self-loops, duplicate pairs and
// unknown endpoints are rejected.
func (g *Graph) Connect(source, target string) (*Edge, error) {
	if source == target {
		return nil, NewError("Connect").Node(source).Cause(ErrSelfLoop).Build()
	}
	if _, ok := g.nodeIndex[source]; !ok {
		return nil, NewError("Connect").Node(source).Cause(ErrNodeNotFound).Build()
	}
	if _, ok := g.nodeIndex[target]; !ok {
		return nil, NewError("Connect").Node(target).Cause(ErrNodeNotFound).Build()
	}
	if g.HasEdge(source, target) {
		return nil, NewError("Connect").Node(source).Cause(ErrDuplicateEdge).Build()
	}
	return g.insertEdge(Edge{ID: g.freshEdgeID(), Source: source, Target: target}), nil
}

// RemoveEdge deletes an edge by id.
func (g *Graph) RemoveEdge(id string) error {
	if _, ok := g.edgeIndex[id]; !ok {
		return NewError("RemoveEdge").Edge(id).Cause(ErrEdgeNotFound).Build()
	}
	edges := g.edges[:0]
	for _, e := range g.edges {
		if e.ID != id {
			edges = append(edges, e)
		}
	}
	g.edges = edges
	delete(g.edgeIndex, id)
	return nil
}

// Rename changes a node's label.
func (g *Graph) Rename(id, label string) error {
	n, ok := g.nodeIndex[id]
	if !ok {
		return NewError("Rename").Node(id).Cause(ErrNodeNotFound).Build()
	}
	n.Label = label
	return nil
}

// SetPresentation sets one presentation key on a node, e.g. "position".
func (g *Graph) SetPresentation(id, key string, value any) error {
	n, ok := g.nodeIndex[id]
	if !ok {
		return NewError("SetPresentation").Node(id).Cause(ErrNodeNotFound).Build()
	}
	if n.Presentation == nil {
		n.Presentation = make(map[string]any)
	}
	n.Presentation[key] = value
	return nil
}

// RiskUpdate is a partial update of a node's risk attributes. Nil fields are
// left unchanged.
type RiskUpdate struct {
	Severity      *int
	Likelihood    *int
	Effectiveness *int
	BarrierType   *BarrierType
}

// UpdateRisk applies a partial attribute update. Barrier-only fields on any
// other kind return ErrNotBarrier and leave the node untouched.
func (g *Graph) UpdateRisk(id string, u RiskUpdate) error {
	n, ok := g.nodeIndex[id]
	if !ok {
		return NewError("UpdateRisk").Node(id).Cause(ErrNodeNotFound).Build()
	}
	if n.Kind != KindBarrier && (u.Effectiveness != nil || u.BarrierType != nil) {
		return NewError("UpdateRisk").Node(id).Cause(ErrNotBarrier).Build()
	}
	if u.BarrierType != nil && *u.BarrierType != Preventive && *u.BarrierType != Mitigative {
		return NewError("UpdateRisk").Node(id).Cause(ErrInvalidBarrierType).Build()
	}

	if u.Severity != nil {
		n.Severity = *u.Severity
	}
	if u.Likelihood != nil {
		n.Likelihood = *u.Likelihood
	}
	if u.Effectiveness != nil {
		n.Barrier.Effectiveness = *u.Effectiveness
	}
	if u.BarrierType != nil {
		n.Barrier.Type = *u.BarrierType
		n.Barrier.DeclaredType = ""
	}
	n.Normalize()
	return nil
}
