// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the daily-paper pipeline:
// the Paper record that flows through fetch, classify, and persist, its
// optional Classification, and the per-stage configuration structs.
package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the day-granularity format used for published dates, daily
// file names, and the available-dates index.
const DateLayout = "2006-01-02"

// arxivAbsBase prefixes the canonical abstract page link.
const arxivAbsBase = "https://arxiv.org/abs/"

// Paper is one arXiv submission. Classification stays nil until the
// classify stage has run; afterwards it is always set, possibly to a
// failure placeholder.
type Paper struct {
	// ID is the arXiv identifier without version suffix (e.g. "2301.07041").
	ID string `json:"id"`

	// Title is the paper title on a single line.
	Title string `json:"title"`

	// Abstract is the paper abstract on a single line. The JSON key stays
	// "summary" so existing daily files and the viewer keep working.
	Abstract string `json:"summary"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors"`

	// URL is the canonical abstract page, derived from ID.
	URL string `json:"url"`

	// Published is the submission day in DateLayout.
	Published string `json:"published"`

	// PrimaryCategory is the arXiv primary category, when the feed reports one.
	PrimaryCategory string `json:"primary_category,omitempty"`

	// Classification fields are flattened into the record on the wire.
	*Classification
}

// Classified reports whether the classify stage has run for p.
func (p Paper) Classified() bool {
	return p.Classification != nil
}

// AbsURL returns the canonical abstract link for an arXiv id.
func AbsURL(id string) string {
	return arxivAbsBase + id
}

// BareID reduces an arXiv reference to its unversioned identifier:
// "http://arxiv.org/abs/2301.07041v2" and "2301.07041v2" both become
// "2301.07041". Bare ids pass through unchanged.
func BareID(ref string) string {
	id := strings.TrimSpace(ref)
	if i := strings.Index(id, "/abs/"); i >= 0 {
		id = id[i+len("/abs/"):]
	}
	if v := strings.LastIndex(id, "v"); v > 0 {
		if _, err := strconv.Atoi(id[v+1:]); err == nil {
			id = id[:v]
		}
	}
	return id
}

// FormatDay renders t as a DateLayout day string.
func FormatDay(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDay parses a DateLayout day string.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

// SingleLine collapses runs of whitespace, including the hard line breaks
// arXiv puts into titles and abstracts, into single spaces.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
