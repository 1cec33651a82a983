// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"net/url"
	"strings"

	"github.com/pdiddy/daily-paper/pkg/types"
)

// allCategories is the category pill that disables category filtering.
const allCategories = "All"

// Filter selects papers on one day page.
type Filter struct {
	AI4Science   bool
	Perturbation bool

	// Category is a primary category, or "" / "All" for every category.
	Category string

	// Query is matched case-insensitively against title and summary.
	Query string
}

// filterFromQuery reads ?ai=1&perturbation=1&cat=X&q=text.
func filterFromQuery(v url.Values) Filter {
	return Filter{
		AI4Science:   isSet(v.Get("ai")),
		Perturbation: isSet(v.Get("perturbation")),
		Category:     v.Get("cat"),
		Query:        strings.TrimSpace(v.Get("q")),
	}
}

func isSet(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Match reports whether p passes every active filter.
func (f Filter) Match(p types.Paper) bool {
	if f.AI4Science && !(p.Classified() && p.IsAI4Science) {
		return false
	}
	if f.Perturbation && !(p.Classified() && p.IsPerturbation) {
		return false
	}
	if f.Category != "" && f.Category != allCategories && p.PrimaryCategory != f.Category {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(p.Title), q) && !strings.Contains(strings.ToLower(p.Abstract), q) {
			return false
		}
	}
	return true
}

// Apply returns the papers that match, in order.
func (f Filter) Apply(papers []types.Paper) []types.Paper {
	var out []types.Paper
	for _, p := range papers {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// categories lists "All" followed by each primary category in order of
// first appearance.
func categories(papers []types.Paper) []string {
	out := []string{allCategories}
	seen := map[string]bool{}
	for _, p := range papers {
		if p.PrimaryCategory == "" || seen[p.PrimaryCategory] {
			continue
		}
		seen[p.PrimaryCategory] = true
		out = append(out, p.PrimaryCategory)
	}
	return out
}

// withCategory returns the day-page query string for f with cat selected.
func (f Filter) withCategory(cat string) string {
	v := url.Values{}
	if f.AI4Science {
		v.Set("ai", "1")
	}
	if f.Perturbation {
		v.Set("perturbation", "1")
	}
	if cat != "" && cat != allCategories {
		v.Set("cat", cat)
	}
	if f.Query != "" {
		v.Set("q", f.Query)
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}
