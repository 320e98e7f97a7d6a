package bowtie

// Graph owns the nodes and edges of one diagram. Nodes and edges are kept in
// creation order. A Graph is not safe for concurrent use; callers that share
// one across goroutines must serialise access (see package workspace).
type Graph struct {
	nodes     []*Node
	nodeIndex map[string]*Node
	edges     []*Edge
	edgeIndex map[string]*Edge
	nextSeq   uint64
}

// NewGraph returns an empty diagram.
func NewGraph() *Graph {
	return &Graph{
		nodeIndex: make(map[string]*Node),
		edgeIndex: make(map[string]*Edge),
		nextSeq:   1,
	}
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Nodes returns the nodes in creation order. The returned nodes belong to the
// graph and must be treated as read-only; use the editing operations to
// change them.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns the edges in creation order. Treat them as read-only.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Node looks up a node by id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodeIndex[id]
	return n, ok
}

// Edge looks up an edge by id.
func (g *Graph) Edge(id string) (*Edge, bool) {
	e, ok := g.edgeIndex[id]
	return e, ok
}

// Outgoing returns edges whose source is id, in creation order.
func (g *Graph) Outgoing(id string) []*Edge {
	var out []*Edge
	for _, e := range g.edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// Incoming returns edges whose target is id, in creation order.
func (g *Graph) Incoming(id string) []*Edge {
	var out []*Edge
	for _, e := range g.edges {
		if e.Target == id {
			out = append(out, e)
		}
	}
	return out
}

// HasEdge reports whether an edge source -> target exists.
func (g *Graph) HasEdge(source, target string) bool {
	for _, e := range g.edges {
		if e.Source == source && e.Target == target {
			return true
		}
	}
	return false
}

// NodesOfKind returns nodes of kind k in creation order.
func (g *Graph) NodesOfKind(k Kind) []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

// TopEvents returns every Top Event node in creation order. A well-formed
// diagram has at most one; persisted snapshots may carry more.
func (g *Graph) TopEvents() []*Node {
	return g.NodesOfKind(KindTopEvent)
}

// TopEvent returns the authoritative Top Event: the most recently created one.
func (g *Graph) TopEvent() (*Node, bool) {
	var latest *Node
	for _, n := range g.nodes {
		if n.Kind == KindTopEvent && (latest == nil || n.Seq > latest.Seq) {
			latest = n
		}
	}
	return latest, latest != nil
}

// Clone returns a deep copy of the graph, preserving creation order and
// sequence numbers.
func (g *Graph) Clone() *Graph {
	c := NewGraph()
	c.nextSeq = g.nextSeq
	for _, n := range g.nodes {
		cn := n.Clone()
		c.nodes = append(c.nodes, cn)
		c.nodeIndex[cn.ID] = cn
	}
	for _, e := range g.edges {
		ce := e.Clone()
		c.edges = append(c.edges, ce)
		c.edgeIndex[ce.ID] = ce
	}
	return c
}

// RestoreNode inserts a node exactly as persisted. Unlike AddNode it accepts
// additional Top Events, so snapshots produced by older editors load
// unchanged. Attributes are normalised and the node gets the next creation
// sequence, so restore order defines "most recently created".
func (g *Graph) RestoreNode(n Node) (*Node, error) {
	if !n.Kind.Valid() {
		return nil, NewError("RestoreNode").Node(n.ID).Cause(ErrUnknownKind).Build()
	}
	if n.ID == "" {
		n.ID = g.freshNodeID(n.Kind)
	}
	if _, exists := g.nodeIndex[n.ID]; exists {
		return nil, NewError("RestoreNode").Node(n.ID).Cause(ErrDuplicateID).Build()
	}
	return g.insertNode(n), nil
}

// RestoreEdge inserts an edge exactly as persisted. Endpoints are not checked:
// dangling edges are kept so the risk engine can ignore them.
func (g *Graph) RestoreEdge(e Edge) (*Edge, error) {
	if e.ID == "" {
		e.ID = g.freshEdgeID()
	}
	if _, exists := g.edgeIndex[e.ID]; exists {
		return nil, NewError("RestoreEdge").Edge(e.ID).Cause(ErrDuplicateID).Build()
	}
	return g.insertEdge(e), nil
}

func (g *Graph) insertNode(n Node) *Node {
	n.Normalize()
	n.Seq = g.nextSeq
	g.nextSeq++
	stored := &n
	g.nodes = append(g.nodes, stored)
	g.nodeIndex[stored.ID] = stored
	return stored
}

func (g *Graph) insertEdge(e Edge) *Edge {
	stored := &e
	g.edges = append(g.edges, stored)
	g.edgeIndex[stored.ID] = stored
	return stored
}

func (g *Graph) freshNodeID(k Kind) string {
	for {
		id := NewID(k.IDPrefix())
		if _, taken := g.nodeIndex[id]; !taken {
			return id
		}
	}
}

func (g *Graph) freshEdgeID() string {
	for {
		id := NewID(EdgeIDPrefix)
		if _, taken := g.edgeIndex[id]; !taken {
			return id
		}
	}
}
