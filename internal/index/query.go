// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/daily-paper/pkg/types"
)

// QueryOptions holds parameters for index queries.
type QueryOptions struct {
	// Text is matched against title and summary. Each whitespace-separated
	// word must appear.
	Text string

	// AI4Science and Perturbation, when set, keep only papers with that flag.
	AI4Science   bool
	Perturbation bool

	// Category filters by primary category (e.g. "q-bio.QM").
	Category string

	// Date filters by daily file (YYYY-MM-DD).
	Date string

	// Limit caps the result count. Zero uses the default of 20.
	Limit int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Text == "" && !q.AI4Science && !q.Perturbation && q.Category == "" && q.Date == ""
}

// Hit is a stored paper with the daily file it came from.
type Hit struct {
	Date string `json:"date"`
	types.Paper
}

// Query searches the index. Results are ordered newest date first, then by
// position within the daily file.
func (x *Index) Query(ctx context.Context, opts QueryOptions) ([]Hit, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var (
		qb   strings.Builder
		args []any
	)

	qb.WriteString(
		`SELECT p.date, p.id, p.title, p.summary, p.authors, p.url, p.published,
			p.primary_category, p.classified, p.is_ai4science, p.is_perturbation, p.reasoning
		FROM papers p`)

	if match := matchExpr(opts.Text); match != "" {
		qb.WriteString(` JOIN papers_fts ON papers_fts.docid = p.rowid WHERE papers_fts MATCH ?`)
		args = append(args, match)
	} else {
		qb.WriteString(` WHERE 1=1`)
	}

	if opts.AI4Science {
		qb.WriteString(` AND p.is_ai4science = 1`)
	}
	if opts.Perturbation {
		qb.WriteString(` AND p.is_perturbation = 1`)
	}
	if opts.Category != "" {
		qb.WriteString(` AND p.primary_category = ?`)
		args = append(args, opts.Category)
	}
	if opts.Date != "" {
		qb.WriteString(` AND p.date = ?`)
		args = append(args, opts.Date)
	}

	qb.WriteString(` ORDER BY p.date DESC, p.position LIMIT ?`)
	args = append(args, limit)

	rows, err := x.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			h           Hit
			authorsJSON sql.NullString
			category    sql.NullString
			reasoning   sql.NullString
			classified  bool
			cl          types.Classification
		)
		if err := rows.Scan(
			&h.Date, &h.ID, &h.Title, &h.Abstract, &authorsJSON, &h.URL, &h.Published,
			&category, &classified, &cl.IsAI4Science, &cl.IsPerturbation, &reasoning,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if authorsJSON.Valid && authorsJSON.String != "" {
			if err := json.Unmarshal([]byte(authorsJSON.String), &h.Authors); err != nil {
				return nil, fmt.Errorf("decoding authors of %s: %w", h.ID, err)
			}
		}
		h.PrimaryCategory = category.String
		if classified {
			cl.Reasoning = reasoning.String
			h.Classification = &cl
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Stats reports how many papers and dates the index holds.
func (x *Index) Stats(ctx context.Context) (papers, dates int, err error) {
	err = x.db.QueryRowContext(ctx,
		`SELECT count(*), count(DISTINCT date) FROM papers`,
	).Scan(&papers, &dates)
	if err != nil {
		return 0, 0, fmt.Errorf("counting papers: %w", err)
	}
	return papers, dates, nil
}

// matchExpr turns free text into a full-text expression of quoted words,
// so punctuation in the input cannot form query operators.
func matchExpr(text string) string {
	var terms []string
	for _, w := range strings.Fields(text) {
		w = strings.ReplaceAll(w, `"`, "")
		if w == "" {
			continue
		}
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " ")
}
