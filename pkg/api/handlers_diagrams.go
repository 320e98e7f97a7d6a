package api

import (
	"net/http"
	"strconv"

	"github.com/timagonch/bowtie-diagram/pkg/audit"
	"github.com/timagonch/bowtie-diagram/pkg/bowtie"
	"github.com/timagonch/bowtie-diagram/pkg/codec"
	"github.com/timagonch/bowtie-diagram/pkg/validation"
)

func (s *Server) handleListDiagrams(w http.ResponseWriter, r *http.Request) {
	list, err := s.ws.List(r.Context())
	if err != nil {
		s.respondDomainError(w, err, "list diagrams")
		return
	}
	s.respondJSON(w, http.StatusOK, DiagramListResponse{Diagrams: list, Count: len(list)})
}

func (s *Server) handleCreateDiagram(w http.ResponseWriter, r *http.Request) {
	var req CreateDiagramRequest
	if r.ContentLength != 0 {
		rd := s.newRequestDecoder(w, r).
			DecodeJSON(&req).
			Validate(func() error {
				return validation.ValidateDiagramRequest(&validation.DiagramRequest{Title: req.Title})
			})
		if rd.RespondError() {
			return
		}
	}

	var g *bowtie.Graph
	if len(req.Document) > 0 && string(req.Document) != "null" {
		doc, err := codec.Unmarshal(req.Document, codec.FormatJSON)
		if err == nil {
			g, err = codec.ToGraph(doc)
		}
		if err != nil {
			s.respondDomainError(w, err, "create diagram")
			return
		}
		if req.Title == "" {
			req.Title = doc.Title
		}
	}

	snap, err := s.ws.Create(r.Context(), req.Title, g)
	if err != nil {
		s.respondDomainError(w, err, "create diagram")
		return
	}
	w.Header().Set("Location", "/v1/diagrams/"+snap.ID)
	s.respondJSON(w, http.StatusCreated, diagramResponse(snap))
}

// handleGetDiagram returns the diagram document. ?format=yaml returns the
// bare document as YAML instead of the JSON envelope.
func (s *Server) handleGetDiagram(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ws.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondDomainError(w, err, "get diagram")
		return
	}

	if q := r.URL.Query().Get("format"); q != "" {
		f, err := codec.ParseFormat(q)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if f == codec.FormatYAML {
			doc := codec.FromGraph(snap.Graph, snap.Report)
			doc.Title = snap.Title
			data, err := doc.Marshal(f)
			if err != nil {
				s.respondDomainError(w, err, "encode diagram")
				return
			}
			w.Header().Set("Content-Type", f.ContentType())
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(data)
			return
		}
	}

	s.respondJSON(w, http.StatusOK, diagramResponse(snap))
}

// handleReplaceDiagram swaps the whole graph for the posted document.
func (s *Server) handleReplaceDiagram(w http.ResponseWriter, r *http.Request) {
	var doc *codec.Document
	rd := s.newRequestDecoder(w, r).
		DecodeDocument(&doc).
		Validate(func() error {
			return validation.ValidateDiagramRequest(&validation.DiagramRequest{Title: doc.Title})
		})
	if rd.RespondError() {
		return
	}

	g, err := codec.ToGraph(doc)
	if err != nil {
		s.respondDomainError(w, err, "replace diagram")
		return
	}
	snap, err := s.ws.Replace(r.Context(), r.PathValue("id"), doc.Title, g)
	if err != nil {
		s.respondDomainError(w, err, "replace diagram")
		return
	}
	s.respondJSON(w, http.StatusOK, diagramResponse(snap))
}

func (s *Server) handleDeleteDiagram(w http.ResponseWriter, r *http.Request) {
	if err := s.ws.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.respondDomainError(w, err, "delete diagram")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ws.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondDomainError(w, err, "get report")
		return
	}
	s.respondJSON(w, http.StatusOK, ReportResponse{
		DiagramID: snap.ID,
		Report:    snap.Report,
		Badges:    badges(snap.Report),
	})
}

// handleArrangeDiagram re-lays the diagram out in bow-tie columns and returns
// the document with the new positions.
func (s *Server) handleArrangeDiagram(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ws.Arrange(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondDomainError(w, err, "arrange diagram")
		return
	}
	s.respondJSON(w, http.StatusOK, diagramResponse(snap))
}

func (s *Server) handleDiagramHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	events, err := s.ws.History(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		s.respondDomainError(w, err, "diagram history")
		return
	}
	if events == nil {
		events = []*audit.Event{}
	}
	s.respondJSON(w, http.StatusOK, HistoryResponse{Events: events, Count: len(events)})
}
