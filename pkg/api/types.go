package api

import (
	"encoding/json"
	"time"

	"github.com/timagonch/bowtie-diagram/pkg/audit"
	"github.com/timagonch/bowtie-diagram/pkg/bowtie"
	"github.com/timagonch/bowtie-diagram/pkg/codec"
	"github.com/timagonch/bowtie-diagram/pkg/health"
	"github.com/timagonch/bowtie-diagram/pkg/risk"
	"github.com/timagonch/bowtie-diagram/pkg/validation"
	"github.com/timagonch/bowtie-diagram/pkg/workspace"
)

// API Request/Response Types

// NodeRequest adds a node to a diagram.
type NodeRequest = validation.NodeRequest

// EdgeRequest connects two nodes.
type EdgeRequest = validation.EdgeRequest

// NodeUpdateRequest partially updates a node.
type NodeUpdateRequest = validation.RiskUpdateRequest

// TopEventRequest sets or replaces the Top Event.
type TopEventRequest = validation.TopEventRequest

// CreateDiagramRequest opens a new diagram, empty or imported from a
// document.
type CreateDiagramRequest struct {
	Title    string          `json:"title"`
	Document json.RawMessage `json:"document,omitempty"`
}

// ComputeResponse is the stateless compute result.
type ComputeResponse struct {
	Report      *risk.Report        `json:"report"`
	Badges      map[string]string   `json:"badges"`
	Diagnostics []bowtie.Diagnostic `json:"diagnostics"`
	Document    *codec.Document     `json:"document"`
}

// DiagramResponse is a diagram with its derived values written back.
type DiagramResponse struct {
	ID          string              `json:"id"`
	Title       string              `json:"title,omitempty"`
	UpdatedAt   time.Time           `json:"updatedAt"`
	Document    *codec.Document     `json:"document"`
	Report      *risk.Report        `json:"report"`
	Diagnostics []bowtie.Diagnostic `json:"diagnostics"`
}

// ReportResponse is the derived state of a diagram.
type ReportResponse struct {
	DiagramID string            `json:"diagramId"`
	Report    *risk.Report      `json:"report"`
	Badges    map[string]string `json:"badges"`
}

// MutationResponse answers every edit with the fresh report. CreatedID is
// set when the edit created a node or an edge.
type MutationResponse struct {
	DiagramID string            `json:"diagramId"`
	CreatedID string            `json:"createdId,omitempty"`
	Report    *risk.Report      `json:"report"`
	Badges    map[string]string `json:"badges"`
}

// DiagramListResponse lists diagrams.
type DiagramListResponse struct {
	Diagrams []workspace.Summary `json:"diagrams"`
	Count    int                 `json:"count"`
}

// HistoryResponse lists the recorded edits of one diagram, newest first.
type HistoryResponse struct {
	Events []*audit.Event `json:"events"`
	Count  int            `json:"count"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`

	Checks map[string]health.Check `json:"checks,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func badges(r *risk.Report) map[string]string {
	out := make(map[string]string, len(r.Nodes))
	r.Each(func(nr risk.NodeRisk) {
		out[nr.ID] = nr.Badge()
	})
	return out
}

func diagramResponse(snap *workspace.Snapshot) DiagramResponse {
	doc := codec.FromGraph(snap.Graph, snap.Report)
	doc.Title = snap.Title
	diags := bowtie.Diagnose(snap.Graph)
	if diags == nil {
		diags = []bowtie.Diagnostic{}
	}
	return DiagramResponse{
		ID:          snap.ID,
		Title:       snap.Title,
		UpdatedAt:   snap.UpdatedAt,
		Document:    doc,
		Report:      snap.Report,
		Diagnostics: diags,
	}
}

func mutationResponse(snap *workspace.Snapshot, createdID string) MutationResponse {
	return MutationResponse{
		DiagramID: snap.ID,
		CreatedID: createdID,
		Report:    snap.Report,
		Badges:    badges(snap.Report),
	}
}
