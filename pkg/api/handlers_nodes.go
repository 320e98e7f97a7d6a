package api

import (
	"net/http"

	"github.com/timagonch/bowtie-diagram/pkg/bowtie"
	"github.com/timagonch/bowtie-diagram/pkg/validation"
	"github.com/timagonch/bowtie-diagram/pkg/workspace"
)

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// nodeSpec converts a validated request. AutoLink defaults to true, as in
// the editor.
func nodeSpec(req *NodeRequest) (workspace.NodeSpec, error) {
	kind, err := bowtie.ParseKind(req.Kind)
	if err != nil {
		return workspace.NodeSpec{}, err
	}

	n := bowtie.Node{
		ID:           req.ID,
		Kind:         kind,
		Label:        req.Label,
		Severity:     derefInt(req.Severity),
		Likelihood:   derefInt(req.Likelihood),
		Presentation: req.Presentation,
	}
	if kind == bowtie.KindBarrier {
		n.Barrier.Effectiveness = derefInt(req.Effectiveness)
		if req.BarrierType != "" {
			if n.Barrier.Type, err = bowtie.ParseBarrierType(req.BarrierType); err != nil {
				return workspace.NodeSpec{}, err
			}
		}
	}

	autoLink := true
	if req.AutoLink != nil {
		autoLink = *req.AutoLink
	}
	return workspace.NodeSpec{Node: n, Source: req.Source, Target: req.Target, AutoLink: autoLink}, nil
}

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	var req NodeRequest
	rd := s.newRequestDecoder(w, r).
		DecodeJSON(&req).
		Validate(func() error { return validation.ValidateNodeRequest(&req) })
	if rd.RespondError() {
		return
	}

	spec, err := nodeSpec(&req)
	if err != nil {
		s.respondDomainError(w, err, "add node")
		return
	}
	snap, nodeID, err := s.ws.AddNode(r.Context(), r.PathValue("id"), spec)
	if err != nil {
		s.respondDomainError(w, err, "add node")
		return
	}
	s.respondJSON(w, http.StatusCreated, mutationResponse(snap, nodeID))
}

func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	var req NodeUpdateRequest
	rd := s.newRequestDecoder(w, r).
		DecodeJSON(&req).
		Validate(func() error { return validation.ValidateRiskUpdateRequest(&req) })
	if rd.RespondError() {
		return
	}

	u := workspace.NodeUpdate{
		Label: req.Label,
		Risk: bowtie.RiskUpdate{
			Severity:      req.Severity,
			Likelihood:    req.Likelihood,
			Effectiveness: req.Effectiveness,
		},
	}
	if req.BarrierType != nil {
		typ, err := bowtie.ParseBarrierType(*req.BarrierType)
		if err != nil {
			s.respondDomainError(w, err, "update node")
			return
		}
		u.Risk.BarrierType = &typ
	}

	snap, err := s.ws.UpdateNode(r.Context(), r.PathValue("id"), r.PathValue("nodeID"), u)
	if err != nil {
		s.respondDomainError(w, err, "update node")
		return
	}
	s.respondJSON(w, http.StatusOK, mutationResponse(snap, ""))
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ws.RemoveNode(r.Context(), r.PathValue("id"), r.PathValue("nodeID"))
	if err != nil {
		s.respondDomainError(w, err, "delete node")
		return
	}
	s.respondJSON(w, http.StatusOK, mutationResponse(snap, ""))
}

func (s *Server) handleSetTopEvent(w http.ResponseWriter, r *http.Request) {
	var req TopEventRequest
	rd := s.newRequestDecoder(w, r).
		DecodeJSON(&req).
		Validate(func() error { return validation.ValidateTopEventRequest(&req) })
	if rd.RespondError() {
		return
	}

	snap, topID, err := s.ws.SetTopEvent(r.Context(), r.PathValue("id"), req.Label)
	if err != nil {
		s.respondDomainError(w, err, "set top event")
		return
	}
	s.respondJSON(w, http.StatusOK, mutationResponse(snap, topID))
}
