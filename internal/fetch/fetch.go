// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch queries the arXiv search API for recent submissions in a
// set of categories, optionally narrowed to one submission day.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/daily-paper/pkg/types"
)

const (
	// maxResultsCap is the largest result count arXiv serves for one query.
	maxResultsCap = 2000

	defaultMaxResults = 100
)

// ErrRateLimited reports that arXiv kept answering HTTP 429 after every retry.
var ErrRateLimited = errors.New("arXiv rate limit persisted after retries")

// Source produces papers for a query. ArxivSource is the production
// implementation; pipeline tests supply fakes.
type Source interface {
	Fetch(ctx context.Context, q Query) Result
}

// Query selects papers by category and, optionally, submission day.
type Query struct {
	// Categories are OR-ed together (e.g. "cs.AI", "stat.ML").
	Categories []string

	// Day narrows the query to submissions on that calendar day
	// (00:00 to 23:59). The zero value means "most recent".
	Day time.Time

	// MaxResults caps the number of papers returned.
	MaxResults int
}

// Limit returns the effective result cap, clamped to arXiv's per-query limit.
func (q Query) Limit() int {
	n := q.MaxResults
	if n <= 0 {
		n = defaultMaxResults
	}
	if n > maxResultsCap {
		n = maxResultsCap
	}
	return n
}

// SearchQuery renders the arXiv search_query expression, e.g.
// (cat:cs.AI OR cat:cs.LG) AND submittedDate:[202501020000 TO 202501022359].
func (q Query) SearchQuery() string {
	cats := make([]string, 0, len(q.Categories))
	for _, c := range q.Categories {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		cats = append(cats, "cat:"+c)
	}
	if len(cats) == 0 {
		return ""
	}

	expr := "(" + strings.Join(cats, " OR ") + ")"
	if !q.Day.IsZero() {
		day := q.Day.Format("20060102")
		expr += fmt.Sprintf(" AND submittedDate:[%s0000 TO %s2359]", day, day)
	}
	return expr
}

// Result is the outcome of one fetch. Err is set when the fetch was
// abandoned; Papers then holds whatever pages arrived before the failure.
type Result struct {
	Papers []types.Paper

	// Pages counts the API pages successfully read.
	Pages int

	Err error
}

// Failed reports whether the fetch was abandoned.
func (r Result) Failed() bool {
	return r.Err != nil
}

// RateLimited reports whether the fetch was abandoned because of HTTP 429.
func (r Result) RateLimited() bool {
	return errors.Is(r.Err, ErrRateLimited)
}
