// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists pipeline output as flat JSON files under one data
// directory: a file per day, the available-dates index, and the bounded
// seen-id history. Every write replaces the whole file.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/daily-paper/pkg/types"
)

const datesFile = "available_dates.json"

// Store reads and writes the files under DataDir.
type Store struct {
	dataDir     string
	historyPath string
}

// New opens the data directory described by cfg, creating it if needed.
func New(cfg types.StoreConfig) (*Store, error) {
	dir := cfg.DataDir
	if dir == "" {
		dir = types.DefaultPipelineConfig().Store.DataDir
		cfg.DataDir = dir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Store{dataDir: dir, historyPath: cfg.HistoryPath()}, nil
}

// DataDir returns the directory holding the daily files.
func (s *Store) DataDir() string {
	return s.dataDir
}

// DayPath returns the daily file path for a YYYY-MM-DD date.
func (s *Store) DayPath(date string) string {
	return filepath.Join(s.dataDir, date+".json")
}

// DatesPath returns the available-dates index path.
func (s *Store) DatesPath() string {
	return filepath.Join(s.dataDir, datesFile)
}

// HistoryPath returns the seen-id history path.
func (s *Store) HistoryPath() string {
	return s.historyPath
}

// Days lists the dates that have a daily file on disk, newest first. It
// looks at the directory, not the available-dates index.
func (s *Store) Days() ([]string, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory %s: %w", s.dataDir, err)
	}

	var days []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		day := strings.TrimSuffix(e.Name(), ".json")
		if _, err := types.ParseDay(day); err != nil {
			continue
		}
		days = append(days, day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	return days, nil
}

// readJSON decodes path into v. It reports false, with no error, when the
// file does not exist.
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return true, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parsing %s: %w", path, err)
	}
	return true, nil
}

// writeJSON encodes v with two-space indentation, leaving non-ASCII and
// HTML characters unescaped, and replaces path via a temp file and rename.
func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".store-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(buf.Bytes())
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
