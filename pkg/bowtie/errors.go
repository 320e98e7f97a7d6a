package bowtie

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by graph editing operations.
var (
	ErrNodeNotFound       = errors.New("node not found")
	ErrEdgeNotFound       = errors.New("edge not found")
	ErrDuplicateID        = errors.New("duplicate id")
	ErrSelfLoop           = errors.New("self-loop edge not allowed")
	ErrDuplicateEdge      = errors.New("edge between these nodes already exists")
	ErrTopEventExists     = errors.New("diagram already has a top event")
	ErrNotBarrier         = errors.New("barrier attribute on a non-barrier node")
	ErrUnknownKind        = errors.New("unknown node kind")
	ErrInvalidBarrierType = errors.New("invalid barrier type")
)

// GraphError carries structured context for a failed graph operation.
type GraphError struct {
	Op     string // e.g. "Connect", "RemoveNode"
	Entity string // "node" or "edge"
	ID     string
	Cause  error
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Entity, e.ID, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *GraphError) Unwrap() error {
	return e.Cause
}

// ErrorBuilder provides a fluent interface for building GraphErrors.
type ErrorBuilder struct {
	err GraphError
}

// NewError starts a GraphError for the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: GraphError{Op: op}}
}

// Node sets the entity to "node" with the given id.
func (b *ErrorBuilder) Node(id string) *ErrorBuilder {
	b.err.Entity = "node"
	b.err.ID = id
	return b
}

// Edge sets the entity to "edge" with the given id.
func (b *ErrorBuilder) Edge(id string) *ErrorBuilder {
	b.err.Entity = "edge"
	b.err.ID = id
	return b
}

// Cause sets the underlying error.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Build returns the constructed error.
func (b *ErrorBuilder) Build() error {
	e := b.err
	return &e
}
