package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang/snappy"

	"github.com/timagonch/bowtie-diagram/pkg/bowtie"
	"github.com/timagonch/bowtie-diagram/pkg/codec"
	"github.com/timagonch/bowtie-diagram/pkg/logging"
	"github.com/timagonch/bowtie-diagram/pkg/metrics"
	"github.com/timagonch/bowtie-diagram/pkg/risk"
)

// compressedSuffix marks snappy-compressed documents.
const compressedSuffix = ".sz"

// Record is a persisted diagram.
type Record struct {
	ID    string
	Title string
	Graph *bowtie.Graph
}

// DiagramStore saves and loads diagrams through a Backend.
type DiagramStore struct {
	backend  Backend
	format   codec.Format
	compress bool
	logger   logging.Logger
	metrics  *metrics.Registry
}

// Option configures a DiagramStore.
type Option func(*DiagramStore)

// WithFormat sets the document format written by Save. Default JSON.
func WithFormat(f codec.Format) Option {
	return func(s *DiagramStore) { s.format = f }
}

// WithCompression snappy-compresses saved documents.
func WithCompression(enabled bool) Option {
	return func(s *DiagramStore) { s.compress = enabled }
}

// WithLogger sets the store logger.
func WithLogger(l logging.Logger) Option {
	return func(s *DiagramStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records store operations in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *DiagramStore) { s.metrics = reg }
}

// NewDiagramStore creates a store over backend.
func NewDiagramStore(backend Backend, opts ...Option) *DiagramStore {
	s := &DiagramStore{
		backend: backend,
		format:  codec.FormatJSON,
		logger:  logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logging.Component("store"), logging.String("backend", backend.Name()))
	return s
}

// Backend returns the underlying backend.
func (s *DiagramStore) Backend() Backend {
	return s.backend
}

func (s *DiagramStore) key(id string, compressed bool) string {
	key := id + s.format.Extension()
	if compressed {
		key += compressedSuffix
	}
	return key
}

func (s *DiagramStore) observe(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	s.metrics.RecordStoreOperation(s.backend.Name(), op, status, time.Since(start))
}

// Save writes rec, with derived values from report when given.
func (s *DiagramStore) Save(ctx context.Context, rec Record, report *risk.Report) (err error) {
	start := time.Now()
	defer func() { s.observe("save", start, err) }()

	if err := ValidateKey(rec.ID); err != nil {
		return err
	}

	doc := codec.FromGraph(rec.Graph, report)
	doc.Title = rec.Title
	data, err := doc.Marshal(s.format)
	if err != nil {
		return err
	}
	if s.compress {
		data = snappy.Encode(nil, data)
	}

	if err := s.backend.Put(ctx, s.key(rec.ID, s.compress), data); err != nil {
		return err
	}
	// Drop the copy written under the other compression setting, if any.
	if err := s.backend.Delete(ctx, s.key(rec.ID, !s.compress)); err != nil {
		s.logger.Warn("failed to remove stale copy", logging.DiagramID(rec.ID), logging.Error(err))
	}

	if s.metrics != nil {
		s.metrics.RecordStoreWrite(s.backend.Name(), len(data))
	}
	s.logger.Debug("diagram saved",
		logging.DiagramID(rec.ID),
		logging.Int("bytes", len(data)),
		logging.Bool("compressed", s.compress))
	return nil
}

// Load reads a diagram, accepting either compression setting.
func (s *DiagramStore) Load(ctx context.Context, id string) (rec *Record, err error) {
	start := time.Now()
	defer func() { s.observe("load", start, err) }()

	if err := ValidateKey(id); err != nil {
		return nil, err
	}

	compressed := s.compress
	data, err := s.backend.Get(ctx, s.key(id, compressed))
	if errors.Is(err, ErrNotFound) {
		compressed = !compressed
		data, err = s.backend.Get(ctx, s.key(id, compressed))
	}
	if err != nil {
		return nil, err
	}

	if compressed {
		data, err = snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress diagram %s: %w", id, err)
		}
	}

	doc, err := codec.Unmarshal(data, s.format)
	if err != nil {
		return nil, fmt.Errorf("diagram %s: %w", id, err)
	}
	g, err := codec.ToGraph(doc)
	if err != nil {
		return nil, fmt.Errorf("diagram %s: %w", id, err)
	}
	return &Record{ID: id, Title: doc.Title, Graph: g}, nil
}

// Delete removes a diagram. Missing diagrams report ErrNotFound.
func (s *DiagramStore) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.observe("delete", start, err) }()

	if err := ValidateKey(id); err != nil {
		return err
	}
	ids, err := s.list(ctx)
	if err != nil {
		return err
	}
	if idx := sort.SearchStrings(ids, id); idx == len(ids) || ids[idx] != id {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	for _, compressed := range []bool{false, true} {
		if err := s.backend.Delete(ctx, s.key(id, compressed)); err != nil {
			return err
		}
	}
	s.logger.Debug("diagram deleted", logging.DiagramID(id))
	return nil
}

// List returns stored diagram ids, sorted.
func (s *DiagramStore) List(ctx context.Context) (ids []string, err error) {
	start := time.Now()
	defer func() { s.observe("list", start, err) }()
	return s.list(ctx)
}

func (s *DiagramStore) list(ctx context.Context) ([]string, error) {
	keys, err := s.backend.List(ctx)
	if err != nil {
		return nil, err
	}
	ext := s.format.Extension()
	seen := make(map[string]struct{}, len(keys))
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		key = strings.TrimSuffix(key, compressedSuffix)
		if !strings.HasSuffix(key, ext) {
			continue
		}
		id := strings.TrimSuffix(key, ext)
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
