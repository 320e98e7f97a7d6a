// Package codec reads and writes bow-tie diagram documents.
//
// A document is the editor's `{nodes, edges}` blob. Each node carries its
// semantic attributes under data.meta and everything else (position, style,
// markdown content, handle sides) as presentation that is round-tripped
// verbatim. Both historical editor variants are accepted: nodes tagged with
// data.meta.kind and untagged nodes whose kind is implied by their id prefix.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a document serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var (
	ErrMalformed         = errors.New("malformed diagram document")
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

// ParseFormat parses a format name ("json", "yaml", "yml").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, path)
	}
	return ParseFormat(ext)
}

// Extension returns the canonical file extension, with the dot.
func (f Format) Extension() string {
	if f == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// Document is the raw persisted form. Nodes and edges are kept as generic
// maps so unknown editor keys survive a load/save cycle.
type Document struct {
	Title string           `json:"title,omitempty" yaml:"title,omitempty"`
	Nodes []map[string]any `json:"nodes" yaml:"nodes"`
	Edges []map[string]any `json:"edges" yaml:"edges"`
}

// Unmarshal parses data in format f.
func Unmarshal(data []byte, f Format) (*Document, error) {
	doc := &Document{}
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}

	// One value shape for both formats: string-keyed maps, int64 for whole
	// numbers, float64 otherwise.
	for i, n := range doc.Nodes {
		doc.Nodes[i] = normalizeMap(n)
	}
	for i, e := range doc.Edges {
		doc.Edges[i] = normalizeMap(e)
	}
	return doc, nil
}

// Marshal serializes the document. JSON is indented with two spaces, like
// the files the editor downloads.
func (d *Document) Marshal(f Format) ([]byte, error) {
	out := d
	if out.Nodes == nil || out.Edges == nil {
		cp := *d
		if cp.Nodes == nil {
			cp.Nodes = []map[string]any{}
		}
		if cp.Edges == nil {
			cp.Edges = []map[string]any{}
		}
		out = &cp
	}

	switch f {
	case FormatJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(out); err != nil {
			return nil, fmt.Errorf("failed to marshal document: %w", err)
		}
		return buf.Bytes(), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return nil, fmt.Errorf("failed to marshal document: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to marshal document: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

func normalizeMap(m map[string]any) map[string]any {
	for k, v := range m {
		m[k] = normalizeValue(v)
	}
	return m
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return normalizeMap(t)
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeValue(val)
		}
		return out
	case []any:
		for i := range t {
			t[i] = normalizeValue(t[i])
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case int:
		return int64(t)
	}
	return v
}
