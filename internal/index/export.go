// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// ExportEntry is one paper in an export, flattened for YAML and JSON.
type ExportEntry struct {
	Date            string   `json:"date" yaml:"date"`
	ID              string   `json:"id" yaml:"id"`
	Title           string   `json:"title" yaml:"title"`
	URL             string   `json:"url" yaml:"url"`
	Authors         []string `json:"authors" yaml:"authors"`
	Published       string   `json:"published" yaml:"published"`
	PrimaryCategory string   `json:"primary_category,omitempty" yaml:"primary_category,omitempty"`
	Tags            []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Reasoning       string   `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
}

const exportLimit = 100000

// Export writes every paper matching opts to w as "yaml" or "json".
// opts.Limit is ignored.
func (x *Index) Export(ctx context.Context, opts QueryOptions, format string, w io.Writer) error {
	opts.Limit = exportLimit
	hits, err := x.Query(ctx, opts)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}

	entries := make([]ExportEntry, len(hits))
	for i, h := range hits {
		entries[i] = ExportEntry{
			Date:            h.Date,
			ID:              h.ID,
			Title:           h.Title,
			URL:             h.URL,
			Authors:         h.Authors,
			Published:       h.Published,
			PrimaryCategory: h.PrimaryCategory,
		}
		if c := h.Classification; c != nil {
			if c.IsAI4Science {
				entries[i].Tags = append(entries[i].Tags, "ai4science")
			}
			if c.IsPerturbation {
				entries[i].Tags = append(entries[i].Tags, "perturbation")
			}
			entries[i].Reasoning = c.Reasoning
		}
	}

	switch format {
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown export format %q (want yaml or json)", format)
	}
}
