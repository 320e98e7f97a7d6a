// Package render formats risk reports for terminals.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/timagonch/bowtie-diagram/pkg/bowtie"
	"github.com/timagonch/bowtie-diagram/pkg/risk"
)

// Columns of the report table, left to right.
var Columns = []string{"ID", "Kind", "Label", "Base", "Current", "Residual", "Band", "Badge"}

const bandColumn = 6

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	titleStyle  = lipgloss.NewStyle().Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#b45309"))
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
)

// BandStyle paints a cell with the band's display colour.
func BandStyle(b risk.Band) lipgloss.Style {
	return cellStyle.
		Background(lipgloss.Color(b.Color())).
		Foreground(lipgloss.Color("#111827"))
}

// Row is one node of a report, formatted for display.
type Row struct {
	ID       string
	Kind     bowtie.Kind
	Label    string
	Base     string
	Current  string
	Residual string
	Band     risk.Band
	Badge    string
}

// Cells returns the row in Columns order.
func (r Row) Cells() []string {
	return []string{r.ID, string(r.Kind), r.Label, r.Base, r.Current, r.Residual, string(r.Band), r.Badge}
}

var kindRank = map[bowtie.Kind]int{}

func init() {
	for i, k := range bowtie.Kinds {
		kindRank[k] = i
	}
}

func formatRisk(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// Rows lists the report's nodes the way a bow-tie reads: threats, barriers,
// Top Event, consequences, each group in creation order. Barriers and
// ignored Top Events show "-" for the values they do not carry.
func Rows(g *bowtie.Graph, report *risk.Report) []Row {
	seq := make(map[string]int, len(report.Order))
	for i, id := range report.Order {
		seq[id] = i
	}
	ignored := make(map[string]bool, len(report.IgnoredTopEvents))
	for _, id := range report.IgnoredTopEvents {
		ignored[id] = true
	}

	rows := make([]Row, 0, len(report.Order))
	report.Each(func(nr risk.NodeRisk) {
		row := Row{
			ID:       nr.ID,
			Kind:     nr.Kind,
			Base:     formatRisk(nr.BaseRisk),
			Current:  formatRisk(nr.CurrentRisk),
			Residual: formatRisk(nr.ResidualRisk),
			Band:     nr.Band,
			Badge:    nr.Badge(),
		}
		if n, ok := g.Node(nr.ID); ok {
			row.Label = n.Label
		}
		if nr.Kind == bowtie.KindBarrier || ignored[nr.ID] {
			row.Current, row.Residual = "-", "-"
		}
		if ignored[nr.ID] {
			row.Badge = "ignored: older Top Event"
		}
		rows = append(rows, row)
	})

	sort.SliceStable(rows, func(i, j int) bool {
		ri, rj := kindRank[rows[i].Kind], kindRank[rows[j].Kind]
		if ri != rj {
			return ri < rj
		}
		return seq[rows[i].ID] < seq[rows[j].ID]
	})
	return rows
}

// Table renders the report as a bordered table with coloured bands.
func Table(g *bowtie.Graph, report *risk.Report) string {
	rows := Rows(g, report)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(Columns...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == bandColumn && row >= 0 && row < len(rows) {
				return BandStyle(rows[row].Band)
			}
			return cellStyle
		})
	for _, r := range rows {
		t.Row(r.Cells()...)
	}
	return t.String()
}

// Summary is the headline of a report: the Top Event and its residual.
func Summary(g *bowtie.Graph, report *risk.Report) string {
	var b strings.Builder
	if report.TopEventID == "" {
		b.WriteString(titleStyle.Render("No Top Event"))
		b.WriteString(fmt.Sprintf("\nthreat residual sum %s", formatRisk(report.ThreatResidualSum)))
		return b.String()
	}

	label := report.TopEventID
	if n, ok := g.Node(report.TopEventID); ok && n.Label != "" {
		label = n.Label
	}
	band := risk.RiskBandFor(report.TopEventResidual)
	b.WriteString(titleStyle.Render(label))
	b.WriteString(fmt.Sprintf("\nthreats Σ %s → residual %s ",
		formatRisk(report.ThreatResidualSum), formatRisk(report.TopEventResidual)))
	b.WriteString(BandStyle(band).Render(band.String()))

	counts := report.BandCounts()
	b.WriteString(fmt.Sprintf("\nhigh %d · medium %d · low %d",
		counts[risk.BandHigh], counts[risk.BandMedium], counts[risk.BandLow]))
	return b.String()
}

// Diagnostics renders topology findings one per line, warnings first.
func Diagnostics(diags []bowtie.Diagnostic) string {
	if len(diags) == 0 {
		return infoStyle.Render("no findings")
	}
	sorted := append([]bowtie.Diagnostic(nil), diags...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Level == bowtie.LevelWarning && sorted[j].Level != bowtie.LevelWarning
	})

	lines := make([]string, 0, len(sorted))
	for _, d := range sorted {
		style := infoStyle
		if d.Level == bowtie.LevelWarning {
			style = warnStyle
		}
		lines = append(lines, style.Render(d.String()))
	}
	return strings.Join(lines, "\n")
}
