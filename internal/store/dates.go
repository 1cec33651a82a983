// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"slices"
	"sort"
)

// Dates is the available-dates index: distinct day strings, kept sorted
// newest first.
type Dates struct {
	days []string
	set  map[string]bool

	// changed is set when the in-memory list differs from the file it
	// was loaded from.
	changed bool
}

// NewDates builds an index from days, dropping duplicates and empties.
func NewDates(days ...string) *Dates {
	d := &Dates{set: make(map[string]bool, len(days))}
	for _, day := range days {
		d.insert(day)
	}
	d.sortDesc()
	return d
}

func (d *Dates) insert(day string) bool {
	if day == "" || d.set[day] {
		return false
	}
	d.set[day] = true
	d.days = append(d.days, day)
	return true
}

func (d *Dates) sortDesc() {
	sort.Sort(sort.Reverse(sort.StringSlice(d.days)))
}

// Add inserts day if absent and re-sorts. It reports whether day was new.
func (d *Dates) Add(day string) bool {
	if !d.insert(day) {
		return false
	}
	d.sortDesc()
	d.changed = true
	return true
}

// Changed reports whether the index needs writing: a day was added, or the
// file it was loaded from was unsorted or held duplicates.
func (d *Dates) Changed() bool {
	return d.changed
}

// Contains reports whether day is in the index.
func (d *Dates) Contains(day string) bool {
	return d.set[day]
}

// List returns the days, newest first.
func (d *Dates) List() []string {
	out := make([]string, len(d.days))
	copy(out, d.days)
	return out
}

// Latest returns the newest day, or "" when the index is empty.
func (d *Dates) Latest() string {
	if len(d.days) == 0 {
		return ""
	}
	return d.days[0]
}

// Len returns the number of days.
func (d *Dates) Len() int {
	return len(d.days)
}

// LoadDates reads the available-dates index; a missing file yields an
// empty index.
func (s *Store) LoadDates() (*Dates, error) {
	var days []string
	if _, err := readJSON(s.DatesPath(), &days); err != nil {
		return nil, err
	}
	d := NewDates(days...)
	d.changed = !slices.Equal(days, d.days)
	return d, nil
}

// SaveDates overwrites the available-dates index, newest first.
func (s *Store) SaveDates(d *Dates) error {
	if err := writeJSON(s.DatesPath(), d.List()); err != nil {
		return err
	}
	d.changed = false
	return nil
}
