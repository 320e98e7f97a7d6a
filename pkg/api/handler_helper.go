package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/timagonch/bowtie-diagram/pkg/bowtie"
	"github.com/timagonch/bowtie-diagram/pkg/codec"
	"github.com/timagonch/bowtie-diagram/pkg/logging"
	"github.com/timagonch/bowtie-diagram/pkg/workspace"
)

// sanitizeError logs an internal error in full and returns a message that
// is safe to show to a client.
func (s *Server) sanitizeError(err error, operation string) string {
	if err == nil {
		return ""
	}
	s.logger.Error("request failed", logging.Operation(operation), logging.Error(err))
	return fmt.Sprintf("%s failed", operation)
}

// statusFor maps domain errors to HTTP status codes. Zero means the error
// is internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, workspace.ErrDiagramNotFound),
		errors.Is(err, bowtie.ErrNodeNotFound),
		errors.Is(err, bowtie.ErrEdgeNotFound):
		return http.StatusNotFound
	case errors.Is(err, bowtie.ErrDuplicateEdge),
		errors.Is(err, bowtie.ErrDuplicateID),
		errors.Is(err, bowtie.ErrTopEventExists):
		return http.StatusConflict
	case errors.Is(err, bowtie.ErrSelfLoop),
		errors.Is(err, bowtie.ErrNotBarrier),
		errors.Is(err, bowtie.ErrUnknownKind),
		errors.Is(err, bowtie.ErrInvalidBarrierType),
		errors.Is(err, codec.ErrMalformed),
		errors.Is(err, codec.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return 0
}

// respondDomainError answers err with its mapped status, or a sanitized 500.
func (s *Server) respondDomainError(w http.ResponseWriter, err error, operation string) {
	if status := statusFor(err); status != 0 {
		s.respondError(w, status, err.Error())
		return
	}
	s.respondError(w, http.StatusInternalServerError, s.sanitizeError(err, operation))
}

// requestDecoder decodes and validates request bodies.
// It provides a fluent interface for common request handling patterns.
type requestDecoder struct {
	r          *http.Request
	w          http.ResponseWriter
	server     *Server
	err        error
	statusCode int
}

// newRequestDecoder creates a new request decoder for the given request.
func (s *Server) newRequestDecoder(w http.ResponseWriter, r *http.Request) *requestDecoder {
	return &requestDecoder{r: r, w: w, server: s}
}

func (rd *requestDecoder) fail(err error) {
	rd.err = err
	rd.statusCode = http.StatusBadRequest
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		rd.statusCode = http.StatusRequestEntityTooLarge
	}
}

// DecodeJSON decodes the request body into v. Unknown fields are rejected.
func (rd *requestDecoder) DecodeJSON(v any) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	dec := json.NewDecoder(rd.r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		rd.fail(fmt.Errorf("invalid request body: %w", err))
	}
	return rd
}

// DecodeDocument reads a diagram document in the format named by the
// Content-Type header (JSON unless it says YAML).
func (rd *requestDecoder) DecodeDocument(dst **codec.Document) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	data, err := io.ReadAll(rd.r.Body)
	if err != nil {
		rd.fail(fmt.Errorf("invalid request body: %w", err))
		return rd
	}
	doc, err := codec.Unmarshal(data, requestFormat(rd.r))
	if err != nil {
		rd.fail(err)
		return rd
	}
	*dst = doc
	return rd
}

// Validate runs fn and records its error as a 400.
func (rd *requestDecoder) Validate(fn func() error) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	if err := fn(); err != nil {
		rd.fail(err)
	}
	return rd
}

// RespondError sends the error response and returns true if there was an error.
func (rd *requestDecoder) RespondError() bool {
	if rd.err == nil {
		return false
	}
	rd.server.respondError(rd.w, rd.statusCode, rd.err.Error())
	return true
}

func requestFormat(r *http.Request) codec.Format {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err == nil {
		switch mt {
		case "application/yaml", "application/x-yaml", "text/yaml":
			return codec.FormatYAML
		}
	}
	return codec.FormatJSON
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
