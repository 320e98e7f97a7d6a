package api

import (
	"net/http"

	"github.com/timagonch/bowtie-diagram/pkg/validation"
)

func (s *Server) handleAddEdge(w http.ResponseWriter, r *http.Request) {
	var req EdgeRequest
	rd := s.newRequestDecoder(w, r).
		DecodeJSON(&req).
		Validate(func() error { return validation.ValidateEdgeRequest(&req) })
	if rd.RespondError() {
		return
	}

	snap, edgeID, err := s.ws.Connect(r.Context(), r.PathValue("id"), req.Source, req.Target)
	if err != nil {
		s.respondDomainError(w, err, "add edge")
		return
	}
	s.respondJSON(w, http.StatusCreated, mutationResponse(snap, edgeID))
}

func (s *Server) handleDeleteEdge(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ws.RemoveEdge(r.Context(), r.PathValue("id"), r.PathValue("edgeID"))
	if err != nil {
		s.respondDomainError(w, err, "delete edge")
		return
	}
	s.respondJSON(w, http.StatusOK, mutationResponse(snap, ""))
}
