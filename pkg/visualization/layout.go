package visualization

import "github.com/timagonch/bowtie-diagram/pkg/bowtie"

// Arrange writes a fresh bow-tie layout into every node's presentation
// position. Other presentation keys are left alone.
func Arrange(g *bowtie.Graph, config *LayoutConfig) error {
	positions := NewBowtieLayout(config).ComputeLayout(g)
	for _, n := range g.Nodes() {
		p := positions[n.ID]
		if err := g.SetPresentation(n.ID, "position", map[string]any{"x": p.X, "y": p.Y}); err != nil {
			return err
		}
	}
	return nil
}
