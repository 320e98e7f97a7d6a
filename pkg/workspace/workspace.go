// Package workspace holds open diagrams and serializes edits to each one.
// Every edit runs against a private copy of the graph, and only a successful
// edit replaces the diagram. The replacement is recomputed and persisted
// before the lock is released, so readers always see a graph together with
// the report derived from it.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/timagonch/bowtie-diagram/pkg/audit"
	"github.com/timagonch/bowtie-diagram/pkg/bowtie"
	"github.com/timagonch/bowtie-diagram/pkg/codec"
	"github.com/timagonch/bowtie-diagram/pkg/logging"
	"github.com/timagonch/bowtie-diagram/pkg/metrics"
	"github.com/timagonch/bowtie-diagram/pkg/risk"
	"github.com/timagonch/bowtie-diagram/pkg/store"
)

var ErrDiagramNotFound = errors.New("diagram not found")

// DefaultTopEventLabel names the Top Event every new empty diagram starts with.
const DefaultTopEventLabel = "Top Event"

// loadConcurrency bounds parallel store reads in List.
const loadConcurrency = 4

// Snapshot is a consistent view of one diagram: a private copy of the graph
// and the report computed from exactly that graph.
type Snapshot struct {
	ID        string
	Title     string
	Graph     *bowtie.Graph
	Report    *risk.Report
	UpdatedAt time.Time
}

// Summary describes a diagram for listings.
type Summary struct {
	ID               string    `json:"id"`
	Title            string    `json:"title,omitempty"`
	Nodes            int       `json:"nodes"`
	Edges            int       `json:"edges"`
	TopEventResidual float64   `json:"topEventResidual"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type session struct {
	mu      sync.Mutex
	id      string
	title   string
	graph   *bowtie.Graph
	report  *risk.Report
	updated time.Time
	// deleted is set by Delete under mu; a deleted session is never persisted again.
	deleted bool
}

func (s *session) snapshot() *Snapshot {
	return &Snapshot{
		ID:        s.id,
		Title:     s.title,
		Graph:     s.graph.Clone(),
		Report:    s.report,
		UpdatedAt: s.updated,
	}
}

// Workspace owns the open diagrams.
type Workspace struct {
	mu       sync.RWMutex
	sessions map[string]*session

	engine  *risk.Engine
	store   *store.DiagramStore
	logger  logging.Logger
	metrics *metrics.Registry
	history *audit.History
	now     func() time.Time
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithStore persists every change through s. Without a store diagrams live
// only in memory.
func WithStore(s *store.DiagramStore) Option {
	return func(w *Workspace) { w.store = s }
}

// WithEngine sets the risk engine. Default risk.NewEngine().
func WithEngine(e *risk.Engine) Option {
	return func(w *Workspace) {
		if e != nil {
			w.engine = e
		}
	}
}

// WithLogger sets the workspace logger.
func WithLogger(l logging.Logger) Option {
	return func(w *Workspace) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithMetrics records workspace activity in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(w *Workspace) { w.metrics = reg }
}

// WithHistory records every create, edit and delete in h.
func WithHistory(h *audit.History) Option {
	return func(w *Workspace) { w.history = h }
}

// New creates an empty workspace.
func New(opts ...Option) *Workspace {
	w := &Workspace{
		sessions: make(map[string]*session),
		engine:   risk.NewEngine(),
		logger:   logging.NewNopLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(logging.Component("workspace"))
	return w
}

// finish records the outcome of op on diagram id.
func (w *Workspace) finish(id, op string, snap *Snapshot, err error) {
	if w.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		w.metrics.RecordWorkspaceEdit(op, status)
	}
	if w.history == nil || errors.Is(err, ErrDiagramNotFound) {
		return
	}
	e := &audit.Event{DiagramID: id, Operation: op, Status: audit.StatusSuccess}
	if err != nil {
		e.Status = audit.StatusFailure
		e.Error = err.Error()
	}
	if snap != nil {
		e.Nodes = snap.Graph.NodeCount()
		e.Edges = snap.Graph.EdgeCount()
		e.TopEventResidual = snap.Report.TopEventResidual
	}
	w.history.Record(e)
}

// History returns up to limit recorded events of diagram id, newest first.
// A limit of zero or less returns them all.
func (w *Workspace) History(ctx context.Context, id string, limit int) ([]*audit.Event, error) {
	if w.history == nil {
		return nil, nil
	}
	events := w.history.Recent(&audit.Filter{DiagramID: id}, limit)
	if len(events) == 0 {
		if _, err := w.session(ctx, id); err != nil {
			return nil, err
		}
	}
	return events, nil
}

func (w *Workspace) openCount() {
	if w.metrics != nil {
		w.metrics.SetOpenDiagrams(len(w.sessions))
	}
}

// Create registers a new diagram. A nil graph starts a fresh diagram with a
// default Top Event; otherwise g is imported as is.
func (w *Workspace) Create(ctx context.Context, title string, g *bowtie.Graph) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g == nil {
		g = bowtie.NewGraph()
		top, err := g.SetTopEvent(DefaultTopEventLabel)
		if err != nil {
			return nil, err
		}
		top.Presentation = codec.Layout(bowtie.KindTopEvent, 0)
	} else {
		g = g.Clone()
	}

	s := &session{
		id:      uuid.NewString(),
		title:   title,
		graph:   g,
		report:  w.engine.Compute(g),
		updated: w.now(),
	}
	if err := w.persist(ctx, s); err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.sessions[s.id] = s
	w.openCount()
	w.mu.Unlock()

	w.logger.Info("diagram created", logging.DiagramID(s.id), logging.Count(g.NodeCount()))
	snap := s.snapshot()
	w.finish(s.id, "create", snap, nil)
	return snap, nil
}

// session returns the open session for id, loading it from the store when
// it is not open yet.
func (w *Workspace) session(ctx context.Context, id string) (*session, error) {
	w.mu.RLock()
	s, ok := w.sessions[id]
	w.mu.RUnlock()
	if ok {
		return s, nil
	}
	if w.store == nil {
		return nil, fmt.Errorf("%w: %s", ErrDiagramNotFound, id)
	}

	rec, err := w.store.Load(ctx, id)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidKey) {
		return nil, fmt.Errorf("%w: %s", ErrDiagramNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	loaded := &session{
		id:      id,
		title:   rec.Title,
		graph:   rec.Graph,
		report:  w.engine.Compute(rec.Graph),
		updated: w.now(),
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if existing, ok := w.sessions[id]; ok {
		return existing, nil
	}
	w.sessions[id] = loaded
	w.openCount()
	return loaded, nil
}

// Get returns a snapshot of diagram id.
func (w *Workspace) Get(ctx context.Context, id string) (*Snapshot, error) {
	s, err := w.session(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted {
		return nil, fmt.Errorf("%w: %s", ErrDiagramNotFound, id)
	}
	return s.snapshot(), nil
}

// List summarizes every open and stored diagram, sorted by id.
func (w *Workspace) List(ctx context.Context) ([]Summary, error) {
	ids := make(map[string]struct{})
	w.mu.RLock()
	for id := range w.sessions {
		ids[id] = struct{}{}
	}
	w.mu.RUnlock()

	if w.store != nil {
		stored, err := w.store.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, id := range stored {
			ids[id] = struct{}{}
		}
	}

	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	summaries := make([]Summary, len(sorted))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(loadConcurrency)
	for i, id := range sorted {
		eg.Go(func() error {
			s, err := w.session(egCtx, id)
			if err != nil {
				return err
			}
			s.mu.Lock()
			if s.deleted {
				s.mu.Unlock()
				return nil
			}
			summaries[i] = Summary{
				ID:               s.id,
				Title:            s.title,
				Nodes:            s.graph.NodeCount(),
				Edges:            s.graph.EdgeCount(),
				TopEventResidual: s.report.TopEventResidual,
				UpdatedAt:        s.updated,
			}
			s.mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	live := summaries[:0]
	for _, sum := range summaries {
		if sum.ID != "" {
			live = append(live, sum)
		}
	}
	return live, nil
}

// Edit applies fn to a copy of diagram id under the diagram's lock. On
// success the copy replaces the diagram, is recomputed and persisted; on
// failure the diagram is left untouched.
func (w *Workspace) Edit(ctx context.Context, id, op string, fn func(g *bowtie.Graph) error) (snap *Snapshot, err error) {
	defer func() { w.finish(id, op, snap, err) }()

	s, err := w.session(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deleted {
		return nil, fmt.Errorf("%w: %s", ErrDiagramNotFound, id)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	draft := s.graph.Clone()
	if err := fn(draft); err != nil {
		return nil, err
	}

	prevGraph, prevReport, prevUpdated := s.graph, s.report, s.updated
	s.graph = draft
	s.report = w.engine.Compute(draft)
	s.updated = w.now()
	if err := w.persist(ctx, s); err != nil {
		s.graph, s.report, s.updated = prevGraph, prevReport, prevUpdated
		return nil, err
	}

	w.logger.Debug("diagram edited",
		logging.DiagramID(id),
		logging.Operation(op),
		logging.Float64("top_event_residual", s.report.TopEventResidual))
	return s.snapshot(), nil
}

// Replace swaps the whole graph (and optionally the title) of diagram id.
func (w *Workspace) Replace(ctx context.Context, id, title string, g *bowtie.Graph) (*Snapshot, error) {
	incoming := g.Clone()
	return w.editSession(ctx, id, "replace", func(s *session) error {
		s.graph = incoming
		if title != "" {
			s.title = title
		}
		return nil
	})
}

// Rename sets the diagram title.
func (w *Workspace) Rename(ctx context.Context, id, title string) (*Snapshot, error) {
	return w.editSession(ctx, id, "rename", func(s *session) error {
		s.title = title
		return nil
	})
}

func (w *Workspace) editSession(ctx context.Context, id, op string, fn func(s *session) error) (snap *Snapshot, err error) {
	defer func() { w.finish(id, op, snap, err) }()

	s, err := w.session(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleted {
		return nil, fmt.Errorf("%w: %s", ErrDiagramNotFound, id)
	}

	prevGraph, prevTitle, prevReport, prevUpdated := s.graph, s.title, s.report, s.updated
	if err := fn(s); err != nil {
		return nil, err
	}
	s.report = w.engine.Compute(s.graph)
	s.updated = w.now()
	if err := w.persist(ctx, s); err != nil {
		s.graph, s.title, s.report, s.updated = prevGraph, prevTitle, prevReport, prevUpdated
		return nil, err
	}
	return s.snapshot(), nil
}

// Delete closes and removes diagram id.
func (w *Workspace) Delete(ctx context.Context, id string) (err error) {
	defer func() { w.finish(id, "delete", nil, err) }()

	w.mu.Lock()
	s, open := w.sessions[id]
	delete(w.sessions, id)
	w.openCount()
	w.mu.Unlock()

	// Wait for an in-flight edit to finish, then keep later ones from
	// writing the diagram back while it is removed from the store.
	if open {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.deleted = true
	}

	if w.store == nil {
		if !open {
			return fmt.Errorf("%w: %s", ErrDiagramNotFound, id)
		}
		return nil
	}

	err = w.store.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidKey) {
		if open {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrDiagramNotFound, id)
	}
	if err != nil {
		return err
	}
	w.logger.Info("diagram deleted", logging.DiagramID(id))
	return nil
}

func (w *Workspace) persist(ctx context.Context, s *session) error {
	if w.store == nil {
		return nil
	}
	rec := store.Record{ID: s.id, Title: s.title, Graph: s.graph}
	if err := w.store.Save(ctx, rec, s.report); err != nil {
		w.logger.Error("failed to persist diagram", logging.DiagramID(s.id), logging.Error(err))
		return fmt.Errorf("persist diagram %s: %w", s.id, err)
	}
	return nil
}

// Open returns the number of diagrams held in memory.
func (w *Workspace) Open() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.sessions)
}

// StoreBackend names the persistence backend, or "none" for a memory-only
// workspace.
func (w *Workspace) StoreBackend() string {
	if w.store == nil {
		return "none"
	}
	return w.store.Backend().Name()
}

// Ping checks that the store answers a listing.
func (w *Workspace) Ping(ctx context.Context) error {
	if w.store == nil {
		return nil
	}
	_, err := w.store.List(ctx)
	return err
}
