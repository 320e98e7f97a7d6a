package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/timagonch/bowtie-diagram/pkg/bowtie"
	"github.com/timagonch/bowtie-diagram/pkg/codec"
	"github.com/timagonch/bowtie-diagram/pkg/risk"
)

// maxParallelFiles bounds concurrent file processing.
const maxParallelFiles = 8

// diagramFile is one diagram read from disk and evaluated.
type diagramFile struct {
	Path        string              `json:"file" yaml:"file"`
	Format      codec.Format        `json:"-" yaml:"-"`
	Graph       *bowtie.Graph       `json:"-" yaml:"-"`
	Report      *risk.Report        `json:"report" yaml:"report"`
	Diagnostics []bowtie.Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

func readDiagram(engine *risk.Engine, path string) (*diagramFile, error) {
	format, err := codec.FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	g, err := codec.Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &diagramFile{
		Path:        path,
		Format:      format,
		Graph:       g,
		Report:      engine.Compute(g),
		Diagnostics: bowtie.Diagnose(g),
	}, nil
}

// writeBack stores the diagram with derived risk values in data.meta. The
// file is replaced by rename so a failed write leaves the original intact.
func (f *diagramFile) writeBack() error {
	data, err := codec.Encode(f.Graph, f.Report, f.Format)
	if err != nil {
		return fmt.Errorf("%s: %w", f.Path, err)
	}

	info, err := os.Stat(f.Path)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), ".bowtie-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}

// readDiagrams evaluates every path concurrently. Results keep argument
// order; the first failure cancels the rest.
func readDiagrams(ctx context.Context, engine *risk.Engine, paths []string, each func(*diagramFile) error) ([]*diagramFile, error) {
	results := make([]*diagramFile, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFiles)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := readDiagram(engine, path)
			if err != nil {
				return err
			}
			if each != nil {
				if err := each(f); err != nil {
					return err
				}
			}
			results[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
