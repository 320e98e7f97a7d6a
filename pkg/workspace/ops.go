package workspace

import (
	"context"
	"fmt"

	"github.com/timagonch/bowtie-diagram/pkg/bowtie"
	"github.com/timagonch/bowtie-diagram/pkg/codec"
	"github.com/timagonch/bowtie-diagram/pkg/logging"
	"github.com/timagonch/bowtie-diagram/pkg/visualization"
)

// NodeSpec describes a node to add. Source and Target only apply to
// barriers and name the nodes the barrier sits between.
type NodeSpec struct {
	Node     bowtie.Node
	Source   string
	Target   string
	AutoLink bool
}

// AddNode adds a node to diagram id and returns the snapshot with the new
// node's id. With AutoLink a threat is wired into the Top Event, a
// consequence out of it, and a barrier without an explicit target in front
// of it. A node without presentation gets the default layout slot for its
// kind.
func (w *Workspace) AddNode(ctx context.Context, id string, spec NodeSpec) (*Snapshot, string, error) {
	var nodeID string
	snap, err := w.Edit(ctx, id, "add_node", func(g *bowtie.Graph) error {
		n := spec.Node
		if n.Kind == bowtie.KindTopEvent {
			return fmt.Errorf("add node: %w", bowtie.ErrTopEventExists)
		}
		if n.Kind != bowtie.KindBarrier && (spec.Source != "" || spec.Target != "") {
			return fmt.Errorf("add node: source/target: %w", bowtie.ErrNotBarrier)
		}
		if len(n.Presentation) == 0 {
			n.Presentation = codec.Layout(n.Kind, len(g.NodesOfKind(n.Kind)))
		}
		n.Normalize()

		added, err := g.AddNode(n)
		if err != nil {
			return err
		}
		nodeID = added.ID
		return autoLink(g, added, spec)
	})
	if err != nil {
		return nil, "", err
	}
	w.logger.Debug("node added",
		logging.DiagramID(id),
		logging.NodeID(nodeID),
		logging.Kind(string(spec.Node.Kind)))
	return snap, nodeID, nil
}

func autoLink(g *bowtie.Graph, n *bowtie.Node, spec NodeSpec) error {
	top, hasTop := g.TopEvent()

	switch n.Kind {
	case bowtie.KindThreat:
		if spec.AutoLink && hasTop {
			_, err := g.Connect(n.ID, top.ID)
			return err
		}
	case bowtie.KindConsequence:
		if spec.AutoLink && hasTop {
			_, err := g.Connect(top.ID, n.ID)
			return err
		}
	case bowtie.KindBarrier:
		if spec.Source != "" {
			if _, err := g.Connect(spec.Source, n.ID); err != nil {
				return err
			}
		}
		target := spec.Target
		if target == "" && spec.AutoLink && hasTop {
			target = top.ID
		}
		if target != "" {
			if _, err := g.Connect(n.ID, target); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetTopEvent replaces the Top Event of diagram id. Edges that touched the
// old Top Event are dropped with it.
func (w *Workspace) SetTopEvent(ctx context.Context, id, label string) (*Snapshot, string, error) {
	var topID string
	snap, err := w.Edit(ctx, id, "set_top_event", func(g *bowtie.Graph) error {
		top, err := g.SetTopEvent(label)
		if err != nil {
			return err
		}
		top.Presentation = codec.Layout(bowtie.KindTopEvent, 0)
		topID = top.ID
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return snap, topID, nil
}

// NodeUpdate is a partial node edit. Nil fields are left unchanged.
type NodeUpdate struct {
	Label *string
	Risk  bowtie.RiskUpdate
}

// UpdateNode applies a partial update to node nodeID.
func (w *Workspace) UpdateNode(ctx context.Context, id, nodeID string, u NodeUpdate) (*Snapshot, error) {
	return w.Edit(ctx, id, "update_node", func(g *bowtie.Graph) error {
		if u.Label != nil {
			if err := g.Rename(nodeID, *u.Label); err != nil {
				return err
			}
		}
		return g.UpdateRisk(nodeID, u.Risk)
	})
}

// RemoveNode deletes node nodeID and its edges.
func (w *Workspace) RemoveNode(ctx context.Context, id, nodeID string) (*Snapshot, error) {
	return w.Edit(ctx, id, "remove_node", func(g *bowtie.Graph) error {
		return g.RemoveNode(nodeID)
	})
}

// Connect adds an edge source -> target.
func (w *Workspace) Connect(ctx context.Context, id, source, target string) (*Snapshot, string, error) {
	var edgeID string
	snap, err := w.Edit(ctx, id, "connect", func(g *bowtie.Graph) error {
		e, err := g.Connect(source, target)
		if err != nil {
			return err
		}
		edgeID = e.ID
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	w.logger.Debug("edge added", logging.DiagramID(id), logging.EdgeID(edgeID))
	return snap, edgeID, nil
}

// RemoveEdge deletes edge edgeID.
func (w *Workspace) RemoveEdge(ctx context.Context, id, edgeID string) (*Snapshot, error) {
	snap, err := w.Edit(ctx, id, "remove_edge", func(g *bowtie.Graph) error {
		return g.RemoveEdge(edgeID)
	})
	if err != nil {
		return nil, err
	}
	w.logger.Debug("edge removed", logging.DiagramID(id), logging.EdgeID(edgeID))
	return snap, nil
}

// Arrange re-positions every node in bow-tie columns.
func (w *Workspace) Arrange(ctx context.Context, id string) (*Snapshot, error) {
	return w.Edit(ctx, id, "arrange", func(g *bowtie.Graph) error {
		return visualization.Arrange(g, nil)
	})
}
