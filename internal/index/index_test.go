// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/daily-paper/internal/store"
	"github.com/pdiddy/daily-paper/pkg/types"
)

// --- test helpers ---

func testSetup(t *testing.T) (*Index, *store.Store) {
	t.Helper()
	st, err := store.New(types.StoreConfig{DataDir: filepath.Join(t.TempDir(), "data")})
	if err != nil {
		t.Fatal(err)
	}
	idx, err := Open(st.DataDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx, st
}

func mkPaper(id, title, summary, category string, ai, pert bool) types.Paper {
	return types.Paper{
		ID:              id,
		Title:           title,
		Abstract:        summary,
		Authors:         []string{"Rosalind Franklin", "Francis Crick"},
		URL:             types.AbsURL(id),
		Published:       "2025-01-02",
		PrimaryCategory: category,
		Classification: &types.Classification{
			IsAI4Science:   ai,
			IsPerturbation: pert,
			Reasoning:      "理由 " + id,
		},
	}
}

func seed(t *testing.T, st *store.Store) {
	t.Helper()
	days := map[string][]types.Paper{
		"2025-01-01": {
			mkPaper("2501.00001", "Protein folding with diffusion", "We fold proteins.", "q-bio.QM", true, false),
			mkPaper("2501.00002", "Convex optimization bounds", "Tight bounds for convex programs.", "math.OC", false, false),
		},
		"2025-01-02": {
			mkPaper("2501.00003", "Predicting cell-type responses to drug perturbations", "Single-cell perturbation models for protein expression.", "q-bio.QM", true, true),
		},
	}
	for day, papers := range days {
		if _, err := st.SaveDay(day, papers); err != nil {
			t.Fatal(err)
		}
	}
}

func build(t *testing.T, idx *Index, st *store.Store) (BuildSummary, string) {
	t.Helper()
	var buf strings.Builder
	summary, err := idx.Build(context.Background(), st, &buf)
	if err != nil {
		t.Fatal(err)
	}
	return summary, buf.String()
}

func hitIDs(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return out
}

func touch(t *testing.T, path string) {
	t.Helper()
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
}

// --- Open ---

func TestOpenCreatesDBFile(t *testing.T) {
	_, st := testSetup(t)
	if _, err := os.Stat(Path(st.DataDir())); err != nil {
		t.Fatalf("database file not created: %v", err)
	}
}

// --- Build ---

func TestBuildIndexesDays(t *testing.T) {
	idx, st := testSetup(t)
	seed(t, st)

	summary, out := build(t, idx, st)
	if summary.Indexed != 2 {
		t.Errorf("Indexed = %d, want 2", summary.Indexed)
	}
	if !strings.Contains(out, "indexing 2025-01-01 (2 papers)") {
		t.Errorf("output missing indexing line: %s", out)
	}

	papers, dates, err := idx.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if papers != 3 || dates != 2 {
		t.Errorf("Stats = (%d, %d), want (3, 2)", papers, dates)
	}
}

func TestBuildSkipsUnchanged(t *testing.T) {
	idx, st := testSetup(t)
	seed(t, st)
	build(t, idx, st)

	summary, out := build(t, idx, st)
	if summary.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", summary.Skipped)
	}
	if summary.Indexed != 0 || summary.Updated != 0 {
		t.Errorf("unexpected work on unchanged files: %+v", summary)
	}
	if !strings.Contains(out, "skipped") {
		t.Errorf("output should contain 'skipped': %s", out)
	}
}

func TestBuildUpdatesChanged(t *testing.T) {
	idx, st := testSetup(t)
	seed(t, st)
	build(t, idx, st)

	extra := mkPaper("2501.00009", "Climate emulators", "Neural emulators of climate models.", "physics.comp-ph", true, false)
	if _, err := st.SaveDay("2025-01-02", []types.Paper{extra}); err != nil {
		t.Fatal(err)
	}
	touch(t, st.DayPath("2025-01-02"))

	summary, _ := build(t, idx, st)
	if summary.Updated != 1 || summary.Skipped != 1 {
		t.Errorf("summary = %+v, want 1 updated and 1 skipped", summary)
	}

	hits, err := idx.Query(context.Background(), QueryOptions{Date: "2025-01-02"})
	if err != nil {
		t.Fatal(err)
	}
	if got := hitIDs(hits); len(got) != 2 || got[0] != "2501.00009" || got[1] != "2501.00003" {
		t.Errorf("ids = %v, want [2501.00009 2501.00003]", got)
	}

	// Old full-text rows were replaced, not duplicated.
	hits, err = idx.Query(context.Background(), QueryOptions{Text: "perturbation"})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Errorf("got %d full-text hits, want 1", len(hits))
	}
}

func TestBuildRemovesMissingDays(t *testing.T) {
	idx, st := testSetup(t)
	seed(t, st)
	build(t, idx, st)

	if err := os.Remove(st.DayPath("2025-01-01")); err != nil {
		t.Fatal(err)
	}
	summary, out := build(t, idx, st)
	if summary.Removed != 1 {
		t.Errorf("Removed = %d, want 1", summary.Removed)
	}
	if !strings.Contains(out, "removed 2025-01-01") {
		t.Errorf("output missing removal line: %s", out)
	}

	hits, err := idx.Query(context.Background(), QueryOptions{Text: "convex"})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("removed day still searchable: %v", hitIDs(hits))
	}
}

func TestBuildCountsCorruptFile(t *testing.T) {
	idx, st := testSetup(t)
	seed(t, st)
	if err := os.WriteFile(st.DayPath("2025-01-05"), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	summary, out := build(t, idx, st)
	if summary.Failed != 1 {
		t.Errorf("Failed = %d, want 1", summary.Failed)
	}
	if summary.Indexed != 2 {
		t.Errorf("Indexed = %d, want 2", summary.Indexed)
	}
	if summary.Total() != 3 {
		t.Errorf("Total = %d, want 3", summary.Total())
	}
	if !strings.Contains(out, "failed  2025-01-05") {
		t.Errorf("output missing failure line: %s", out)
	}
}

// --- Query ---

func TestQueryFullText(t *testing.T) {
	idx, st := testSetup(t)
	seed(t, st)
	build(t, idx, st)

	tests := []struct {
		text string
		want []string
	}{
		{"protein", []string{"2501.00003", "2501.00001"}},
		{"PROTEIN folding", []string{"2501.00001"}},
		{"cell-type", []string{"2501.00003"}},
		{`"convex`, []string{"2501.00002"}},
		{"nonexistentterm", nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			hits, err := idx.Query(context.Background(), QueryOptions{Text: tt.text})
			if err != nil {
				t.Fatal(err)
			}
			got := hitIDs(hits)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueryFilters(t *testing.T) {
	idx, st := testSetup(t)
	seed(t, st)
	build(t, idx, st)

	tests := []struct {
		name string
		opts QueryOptions
		want []string
	}{
		{"all", QueryOptions{}, []string{"2501.00003", "2501.00001", "2501.00002"}},
		{"ai4science", QueryOptions{AI4Science: true}, []string{"2501.00003", "2501.00001"}},
		{"perturbation", QueryOptions{Perturbation: true}, []string{"2501.00003"}},
		{"category", QueryOptions{Category: "math.OC"}, []string{"2501.00002"}},
		{"date", QueryOptions{Date: "2025-01-01"}, []string{"2501.00001", "2501.00002"}},
		{"combined", QueryOptions{Text: "protein", AI4Science: true, Date: "2025-01-01"}, []string{"2501.00001"}},
		{"limit", QueryOptions{Limit: 1}, []string{"2501.00003"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := idx.Query(context.Background(), tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			got := hitIDs(hits)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueryRestoresFields(t *testing.T) {
	idx, st := testSetup(t)
	seed(t, st)
	build(t, idx, st)

	hits, err := idx.Query(context.Background(), QueryOptions{Perturbation: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	h := hits[0]
	if h.Date != "2025-01-02" {
		t.Errorf("Date = %q", h.Date)
	}
	if len(h.Authors) != 2 || h.Authors[0] != "Rosalind Franklin" {
		t.Errorf("Authors = %v", h.Authors)
	}
	if h.PrimaryCategory != "q-bio.QM" {
		t.Errorf("PrimaryCategory = %q", h.PrimaryCategory)
	}
	if !h.Classified() || !h.IsAI4Science || !h.IsPerturbation || h.Reasoning != "理由 2501.00003" {
		t.Errorf("classification not restored: %+v", h.Classification)
	}
}

func TestQueryUnclassifiedPaper(t *testing.T) {
	idx, st := testSetup(t)
	p := types.Paper{ID: "raw", Title: "Unlabelled", URL: types.AbsURL("raw")}
	if _, err := st.SaveDay("2025-01-03", []types.Paper{p}); err != nil {
		t.Fatal(err)
	}
	build(t, idx, st)

	hits, err := idx.Query(context.Background(), QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Classified() {
		t.Errorf("want one unclassified hit, got %+v", hits)
	}
}

func TestQueryOptionsIsEmpty(t *testing.T) {
	if !(QueryOptions{Limit: 5}).IsEmpty() {
		t.Error("limit alone should count as empty")
	}
	if (QueryOptions{Category: "cs.AI"}).IsEmpty() {
		t.Error("category filter should not be empty")
	}
}

func TestMatchExpr(t *testing.T) {
	tests := map[string]string{
		"":                  "",
		"protein":           `"protein"`,
		"  cell   type ":    `"cell" "type"`,
		`say "hi" -no OR x`: `"say" "hi" "-no" "OR" "x"`,
		`"`:                 "",
	}
	for in, want := range tests {
		if got := matchExpr(in); got != want {
			t.Errorf("matchExpr(%q) = %q, want %q", in, got, want)
		}
	}
}

// --- Export ---

func TestExportYAML(t *testing.T) {
	idx, st := testSetup(t)
	seed(t, st)
	build(t, idx, st)

	var buf bytes.Buffer
	if err := idx.Export(context.Background(), QueryOptions{AI4Science: true}, "yaml", &buf); err != nil {
		t.Fatal(err)
	}

	var entries []ExportEntry
	if err := yaml.Unmarshal(buf.Bytes(), &entries); err != nil {
		t.Fatalf("export is not valid YAML: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].ID != "2501.00003" {
		t.Errorf("first entry = %q, want newest date first", entries[0].ID)
	}
	if strings.Join(entries[0].Tags, ",") != "ai4science,perturbation" {
		t.Errorf("Tags = %v", entries[0].Tags)
	}
}

func TestExportJSON(t *testing.T) {
	idx, st := testSetup(t)
	seed(t, st)
	build(t, idx, st)

	var buf bytes.Buffer
	if err := idx.Export(context.Background(), QueryOptions{Category: "math.OC"}, "json", &buf); err != nil {
		t.Fatal(err)
	}
	var entries []ExportEntry
	if err := json.Unmarshal(buf.Bytes(), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ID != "2501.00002" || len(entries[0].Tags) != 0 {
		t.Errorf("entries = %+v", entries)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	idx, _ := testSetup(t)
	if err := idx.Export(context.Background(), QueryOptions{}, "csv", &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestQueryReportsCorruptAuthors(t *testing.T) {
	idx, st := testSetup(t)
	seed(t, st)
	build(t, idx, st)

	if _, err := idx.db.Exec(`UPDATE papers SET authors = 'not json' WHERE id = ?`, "2501.00003"); err != nil {
		t.Fatal(err)
	}

	_, err := idx.Query(context.Background(), QueryOptions{Date: "2025-01-02"})
	if err == nil {
		t.Fatal("expected error for undecodable authors")
	}
	if !strings.Contains(err.Error(), "2501.00003") {
		t.Errorf("error %q does not name the paper", err)
	}
}
