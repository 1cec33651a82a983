// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pdiddy/daily-paper/pkg/types"
)

// ErrNoDay is returned by LoadDay when no file exists for the date.
var ErrNoDay = errors.New("no daily file for date")

// SaveResult reports what SaveDay wrote.
type SaveResult struct {
	// Added counts new records written ahead of the existing ones.
	Added int

	// Duplicates counts new records dropped because the file already held
	// their id.
	Duplicates int

	// Existing counts records that were already in the file.
	Existing int
}

// Total returns the number of records now in the file.
func (r SaveResult) Total() int {
	return r.Added + r.Existing
}

// LoadDay reads the daily file for date.
func (s *Store) LoadDay(date string) ([]types.Paper, error) {
	if _, err := types.ParseDay(date); err != nil {
		return nil, err
	}

	var papers []types.Paper
	found, err := readJSON(s.DayPath(date), &papers)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w %s", ErrNoDay, date)
	}
	return papers, nil
}

// SaveDay merges papers into the daily file for date. New records come
// first, followed by every record already in the file. A new record whose
// id the file already holds is dropped so existing entries are never
// overwritten. Ids are compared in bare form, so records written with
// abstract URLs as ids still match.
func (s *Store) SaveDay(date string, papers []types.Paper) (SaveResult, error) {
	if _, err := types.ParseDay(date); err != nil {
		return SaveResult{}, err
	}

	var existing []types.Paper
	if _, err := readJSON(s.DayPath(date), &existing); err != nil {
		return SaveResult{}, err
	}

	have := make(map[string]bool, len(existing))
	for _, p := range existing {
		have[types.BareID(p.ID)] = true
	}

	var res SaveResult
	merged := make([]types.Paper, 0, len(papers)+len(existing))
	for _, p := range papers {
		id := types.BareID(p.ID)
		if have[id] {
			res.Duplicates++
			continue
		}
		have[id] = true
		merged = append(merged, p)
		res.Added++
	}
	merged = append(merged, existing...)
	res.Existing = len(existing)

	if err := writeJSON(s.DayPath(date), merged); err != nil {
		return SaveResult{}, err
	}
	return res, nil
}

// DayModTime returns the modification time of the daily file for date.
func (s *Store) DayModTime(date string) (time.Time, error) {
	info, err := os.Stat(s.DayPath(date))
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, fmt.Errorf("%w %s", ErrNoDay, date)
	}
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
