package codec

import "github.com/timagonch/bowtie-diagram/pkg/bowtie"

// Column positions and row pitch of the editor's default layout.
const (
	ThreatColumn      = -350
	BarrierColumn     = -175
	ConsequenceColumn = 350
	RowStep           = 120
)

// slotOffset maps the n-th node of a column to rows 0, +1, -1, +2, -2, ...
func slotOffset(n int) int {
	if n <= 0 {
		return 0
	}
	k := (n + 1) / 2
	if n%2 == 1 {
		return k
	}
	return -k
}

// Layout returns the presentation a new node gets when the client supplies
// none: column and row position, editor node type, handle sides and base
// style. slot is how many nodes of the same kind already exist.
func Layout(kind bowtie.Kind, slot int) map[string]any {
	y := slotOffset(slot) * RowStep

	switch kind {
	case bowtie.KindTopEvent:
		return map[string]any{
			"type":           "default",
			"position":       map[string]any{"x": 0, "y": 0},
			"sourcePosition": "right",
			"targetPosition": "left",
			"style": map[string]any{
				"padding": 14, "borderRadius": 12, "border": "2px solid #555", "background": "#ffffff",
			},
		}
	case bowtie.KindThreat:
		return map[string]any{
			"type":           "input",
			"position":       map[string]any{"x": ThreatColumn, "y": y},
			"sourcePosition": "right",
			"style":          map[string]any{"padding": 10, "borderRadius": 10, "background": "#f6f8fa"},
		}
	case bowtie.KindConsequence:
		return map[string]any{
			"type":           "output",
			"position":       map[string]any{"x": ConsequenceColumn, "y": y},
			"targetPosition": "left",
			"style":          map[string]any{"padding": 10, "borderRadius": 10, "background": "#fff7ed"},
		}
	case bowtie.KindBarrier:
		return map[string]any{
			"type":     "default",
			"position": map[string]any{"x": BarrierColumn, "y": y},
			"style": map[string]any{
				"padding": 8, "borderRadius": 10, "background": "#e8f5e9", "border": "1px solid #84cc16",
			},
		}
	}
	return map[string]any{}
}
