package store

import (
	"context"
	"fmt"

	"github.com/timagonch/bowtie-diagram/pkg/codec"
	"github.com/timagonch/bowtie-diagram/pkg/config"
	"github.com/timagonch/bowtie-diagram/pkg/logging"
	"github.com/timagonch/bowtie-diagram/pkg/metrics"
)

// Open builds the DiagramStore described by cfg.
func Open(ctx context.Context, cfg config.StoreConfig, logger logging.Logger, reg *metrics.Registry) (*DiagramStore, error) {
	format, err := codec.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	var backend Backend
	switch cfg.Backend {
	case config.BackendMemory, "":
		backend = NewMemoryBackend()
	case config.BackendFile:
		backend, err = NewFileBackend(cfg.Dir)
		if err != nil {
			return nil, err
		}
	case config.BackendS3:
		client, err := NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		backend = NewS3Backend(client, cfg.S3.Bucket, cfg.S3.Prefix)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	return NewDiagramStore(backend,
		WithFormat(format),
		WithCompression(cfg.Compress),
		WithLogger(logger),
		WithMetrics(reg),
	), nil
}
