package api

import (
	"net/http"

	"github.com/timagonch/bowtie-diagram/pkg/bowtie"
	"github.com/timagonch/bowtie-diagram/pkg/codec"
)

// handleCompute evaluates a posted document without storing it.
func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request) {
	var doc *codec.Document
	if s.newRequestDecoder(w, r).DecodeDocument(&doc).RespondError() {
		return
	}

	g, err := codec.ToGraph(doc)
	if err != nil {
		s.respondDomainError(w, err, "compute")
		return
	}

	report := s.engine.Compute(g)
	out := codec.FromGraph(g, report)
	out.Title = doc.Title

	diags := bowtie.Diagnose(g)
	if diags == nil {
		diags = []bowtie.Diagnostic{}
	}
	s.respondJSON(w, http.StatusOK, ComputeResponse{
		Report:      report,
		Badges:      badges(report),
		Diagnostics: diags,
		Document:    out,
	})
}
