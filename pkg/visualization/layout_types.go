// Package visualization arranges bow-tie diagrams for display: threats on the
// left, the Top Event in the middle and consequences on the right, with each
// barrier in a column by its distance from the Top Event.
package visualization

// Position represents a 2D coordinate
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LayoutConfig configures layout parameters
type LayoutConfig struct {
	ColumnGap float64 // horizontal distance between columns
	RowGap    float64 // vertical distance between nodes of one column
}

// DefaultLayoutConfig matches the editor's default spacing.
func DefaultLayoutConfig() *LayoutConfig {
	return &LayoutConfig{ColumnGap: 175, RowGap: 120}
}
