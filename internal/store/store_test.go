// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/daily-paper/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(types.StoreConfig{DataDir: filepath.Join(t.TempDir(), "data")})
	require.NoError(t, err)
	return s
}

func classified(id string, ai, pert bool, reason string) types.Paper {
	return types.Paper{
		ID:        id,
		Title:     "Title " + id,
		Abstract:  "Abstract " + id,
		Authors:   []string{"A. Author"},
		URL:       types.AbsURL(id),
		Published: "2025-01-02",
		Classification: &types.Classification{
			IsAI4Science:   ai,
			IsPerturbation: pert,
			Reasoning:      reason,
		},
	}
}

func ids(papers []types.Paper) []string {
	out := make([]string, len(papers))
	for i, p := range papers {
		out[i] = p.ID
	}
	return out
}

// --- New ---

func TestNew_CreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s, err := New(types.StoreConfig{DataDir: dir})
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, filepath.Join(dir, "history.json"), s.HistoryPath())
	assert.Equal(t, filepath.Join(dir, "available_dates.json"), s.DatesPath())
}

func TestNew_AbsoluteHistoryPath(t *testing.T) {
	hist := filepath.Join(t.TempDir(), "papers_history.json")
	s, err := New(types.StoreConfig{DataDir: t.TempDir(), HistoryFile: hist})
	require.NoError(t, err)
	assert.Equal(t, hist, s.HistoryPath())
}

// --- daily files ---

func TestSaveDay_NewFile(t *testing.T) {
	s := testStore(t)

	res, err := s.SaveDay("2025-01-02", []types.Paper{classified("arxiv:1", true, false, "应用于物理模拟。")})
	require.NoError(t, err)
	assert.Equal(t, SaveResult{Added: 1}, res)

	got, err := s.LoadDay("2025-01-02")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "arxiv:1", got[0].ID)
	require.True(t, got[0].Classified())
	assert.True(t, got[0].IsAI4Science)
	assert.False(t, got[0].IsPerturbation)
	assert.Equal(t, "应用于物理模拟。", got[0].Reasoning)
}

func TestSaveDay_WireFormat(t *testing.T) {
	s := testStore(t)
	p := classified("2501.00001", false, true, "扰动预测 <b>&</b>")
	_, err := s.SaveDay("2025-01-02", []types.Paper{p})
	require.NoError(t, err)

	data, err := os.ReadFile(s.DayPath("2025-01-02"))
	require.NoError(t, err)
	text := string(data)

	// Non-ASCII and HTML characters are written as-is.
	assert.Contains(t, text, "扰动预测 <b>&</b>")
	assert.Contains(t, text, "\n  {\n    \"id\": \"2501.00001\"")

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)
	for _, key := range []string{"id", "title", "summary", "authors", "url", "published", "is_ai4science", "is_perturbation", "reasoning"} {
		assert.Contains(t, raw[0], key)
	}
	assert.Equal(t, true, raw[0]["is_perturbation"])
}

func TestSaveDay_MergeNewFirst(t *testing.T) {
	s := testStore(t)
	_, err := s.SaveDay("2025-01-02", []types.Paper{classified("a", true, false, "r"), classified("b", false, false, "r")})
	require.NoError(t, err)

	res, err := s.SaveDay("2025-01-02", []types.Paper{classified("c", false, true, "r")})
	require.NoError(t, err)
	assert.Equal(t, SaveResult{Added: 1, Existing: 2}, res)
	assert.Equal(t, 3, res.Total())

	got, err := s.LoadDay("2025-01-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, ids(got))
}

func TestSaveDay_ExistingNotOverwritten(t *testing.T) {
	s := testStore(t)
	_, err := s.SaveDay("2025-01-02", []types.Paper{classified("a", true, false, "first")})
	require.NoError(t, err)

	res, err := s.SaveDay("2025-01-02", []types.Paper{classified("a", false, false, "second")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, 0, res.Added)

	got, err := s.LoadDay("2025-01-02")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "first", got[0].Reasoning)
	assert.True(t, got[0].IsAI4Science)
}

func TestSaveDay_InvalidDate(t *testing.T) {
	s := testStore(t)
	_, err := s.SaveDay("../escape", nil)
	assert.Error(t, err)
}

func TestLoadDay_Missing(t *testing.T) {
	s := testStore(t)
	_, err := s.LoadDay("2025-01-02")
	assert.ErrorIs(t, err, ErrNoDay)
}

func TestLoadDay_Unclassified(t *testing.T) {
	s := testStore(t)
	raw := `[{"id":"x","title":"t","summary":"s","authors":[],"url":"u","published":"2025-01-02"}]`
	require.NoError(t, os.WriteFile(s.DayPath("2025-01-02"), []byte(raw), 0o644))

	got, err := s.LoadDay("2025-01-02")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Classified())
	assert.Equal(t, "s", got[0].Abstract)
}

func TestLoadDay_Corrupt(t *testing.T) {
	s := testStore(t)
	require.NoError(t, os.WriteFile(s.DayPath("2025-01-02"), []byte("{not json"), 0o644))
	_, err := s.LoadDay("2025-01-02")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing")
}

func TestDays_ListsDailyFilesNewestFirst(t *testing.T) {
	s := testStore(t)
	for _, d := range []string{"2025-01-01", "2025-01-03", "2025-01-02"} {
		_, err := s.SaveDay(d, []types.Paper{classified("x"+d, false, false, "r")})
		require.NoError(t, err)
	}
	require.NoError(t, s.SaveDates(NewDates("2025-01-03")))
	require.NoError(t, s.SaveHistory(NewHistory("x")))

	days, err := s.Days()
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-03", "2025-01-02", "2025-01-01"}, days)
}

func TestDayModTime(t *testing.T) {
	s := testStore(t)
	_, err := s.DayModTime("2025-01-02")
	assert.ErrorIs(t, err, ErrNoDay)

	_, err = s.SaveDay("2025-01-02", nil)
	require.NoError(t, err)
	mt, err := s.DayModTime("2025-01-02")
	require.NoError(t, err)
	assert.False(t, mt.IsZero())
}

func TestWriteJSON_NoTempLeftover(t *testing.T) {
	s := testStore(t)
	_, err := s.SaveDay("2025-01-02", []types.Paper{classified("a", false, false, "r")})
	require.NoError(t, err)

	entries, err := os.ReadDir(s.DataDir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), e.Name())
	}
}

// --- available dates ---

func TestDates_AddSortedNoDuplicates(t *testing.T) {
	d := NewDates("2025-01-01", "2025-01-03", "2025-01-01", "")
	assert.Equal(t, []string{"2025-01-03", "2025-01-01"}, d.List())

	assert.True(t, d.Add("2025-01-02"))
	assert.False(t, d.Add("2025-01-03"))
	assert.Equal(t, []string{"2025-01-03", "2025-01-02", "2025-01-01"}, d.List())
	assert.Equal(t, "2025-01-03", d.Latest())
	assert.True(t, d.Contains("2025-01-02"))
	assert.Equal(t, 3, d.Len())
}

func TestDates_LoadSaveRoundTrip(t *testing.T) {
	s := testStore(t)

	d, err := s.LoadDates()
	require.NoError(t, err)
	assert.Equal(t, 0, d.Len())
	assert.Equal(t, "", d.Latest())

	d.Add("2025-01-01")
	d.Add("2025-01-05")
	require.NoError(t, s.SaveDates(d))

	var onDisk []string
	data, err := os.ReadFile(s.DatesPath())
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, []string{"2025-01-05", "2025-01-01"}, onDisk)
}

func TestDates_LoadRepairsUnsortedFile(t *testing.T) {
	s := testStore(t)
	require.NoError(t, os.WriteFile(s.DatesPath(), []byte(`["2025-01-01","2025-01-04","2025-01-01"]`), 0o644))

	d, err := s.LoadDates()
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-04", "2025-01-01"}, d.List())
}

func TestDates_ChangedTracksRepairsAndAdds(t *testing.T) {
	s := testStore(t)

	d, err := s.LoadDates()
	require.NoError(t, err)
	assert.False(t, d.Changed(), "missing file needs no write")

	require.NoError(t, os.WriteFile(s.DatesPath(), []byte(`["2025-01-04","2025-01-01"]`), 0o644))
	d, err = s.LoadDates()
	require.NoError(t, err)
	assert.False(t, d.Changed(), "sorted file needs no write")

	assert.False(t, d.Add("2025-01-04"))
	assert.False(t, d.Changed())
	assert.True(t, d.Add("2025-01-02"))
	assert.True(t, d.Changed())

	require.NoError(t, s.SaveDates(d))
	assert.False(t, d.Changed())

	require.NoError(t, os.WriteFile(s.DatesPath(), []byte(`["2024-12-30","2025-01-01","2024-12-31"]`), 0o644))
	d, err = s.LoadDates()
	require.NoError(t, err)
	assert.True(t, d.Changed(), "unsorted file needs rewriting")

	require.NoError(t, os.WriteFile(s.DatesPath(), []byte(`["2025-01-01","2025-01-01"]`), 0o644))
	d, err = s.LoadDates()
	require.NoError(t, err)
	assert.True(t, d.Changed(), "duplicated file needs rewriting")
}

// --- history ---

func TestHistory_AddContains(t *testing.T) {
	h := NewHistory("a", "b", "a")
	assert.Equal(t, []string{"a", "b"}, h.IDs())

	assert.Equal(t, 1, h.Add("b", "c", ""))
	assert.True(t, h.Contains("c"))
	assert.False(t, h.Contains("d"))
	assert.Equal(t, 3, h.Len())
}

func TestHistory_TruncateFIFO(t *testing.T) {
	h := NewHistory("1", "2", "3", "4", "5")
	// Re-adding an old id does not move it.
	h.Add("1")

	assert.Equal(t, 2, h.Truncate(3))
	assert.Equal(t, []string{"3", "4", "5"}, h.IDs())
	assert.False(t, h.Contains("1"))
	assert.False(t, h.Contains("2"))

	assert.Equal(t, 0, h.Truncate(10))
	assert.Equal(t, 0, h.Truncate(0))
	assert.Equal(t, 3, h.Len())
}

func TestHistory_LoadMissingIsEmpty(t *testing.T) {
	s := testStore(t)
	h, err := s.LoadHistory()
	require.NoError(t, err)
	assert.Equal(t, 0, h.Len())
}

func TestHistory_SaveLoad(t *testing.T) {
	s := testStore(t)
	h := NewHistory("2501.00001", "2501.00002")
	require.NoError(t, s.SaveHistory(h))

	got, err := s.LoadHistory()
	require.NoError(t, err)
	assert.Equal(t, []string{"2501.00001", "2501.00002"}, got.IDs())
}

func TestHistory_LoadCorrupt(t *testing.T) {
	s := testStore(t)
	require.NoError(t, os.WriteFile(s.HistoryPath(), []byte(`{"ids": 3}`), 0o644))
	_, err := s.LoadHistory()
	assert.Error(t, err)
}

func TestHistory_LoadNormalizesLegacyIDs(t *testing.T) {
	s := testStore(t)
	legacy := `["http://arxiv.org/abs/2501.00001v1","2501.00002v3","2501.00003","http://arxiv.org/abs/2501.00003v2"]`
	require.NoError(t, os.WriteFile(s.HistoryPath(), []byte(legacy), 0o644))

	h, err := s.LoadHistory()
	require.NoError(t, err)
	assert.Equal(t, []string{"2501.00001", "2501.00002", "2501.00003"}, h.IDs())
	assert.True(t, h.Contains("2501.00001"))
}

func TestSaveDay_LegacyURLIDsDeduplicate(t *testing.T) {
	s := testStore(t)
	legacy := classified("http://arxiv.org/abs/2501.00001v1", true, false, "old")
	_, err := s.SaveDay("2025-01-02", []types.Paper{legacy})
	require.NoError(t, err)

	res, err := s.SaveDay("2025-01-02", []types.Paper{
		classified("2501.00001", false, false, "new"),
		classified("2501.00002", false, false, "new"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Duplicates)

	papers, err := s.LoadDay("2025-01-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"2501.00002", "http://arxiv.org/abs/2501.00001v1"}, ids(papers))
}
