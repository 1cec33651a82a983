// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import "github.com/pdiddy/daily-paper/pkg/types"

// History is the set of paper ids already processed, in insertion order.
// Truncation evicts the oldest insertions first; re-adding a known id does
// not refresh its position.
type History struct {
	ids []string
	set map[string]bool
}

// NewHistory builds a history from ids in insertion order. Repeated ids
// keep their first position.
func NewHistory(ids ...string) *History {
	h := &History{set: make(map[string]bool, len(ids))}
	h.Add(ids...)
	return h
}

// Contains reports whether id has been processed.
func (h *History) Contains(id string) bool {
	return h.set[id]
}

// Add appends ids not already present and returns how many were new.
func (h *History) Add(ids ...string) int {
	added := 0
	for _, id := range ids {
		if id == "" || h.set[id] {
			continue
		}
		h.set[id] = true
		h.ids = append(h.ids, id)
		added++
	}
	return added
}

// Truncate keeps only the limit most recently added ids and returns how
// many were evicted. A limit of zero or less keeps everything.
func (h *History) Truncate(limit int) int {
	if limit <= 0 || len(h.ids) <= limit {
		return 0
	}
	evict := len(h.ids) - limit
	for _, id := range h.ids[:evict] {
		delete(h.set, id)
	}
	kept := make([]string, limit)
	copy(kept, h.ids[evict:])
	h.ids = kept
	return evict
}

// IDs returns the ids in insertion order.
func (h *History) IDs() []string {
	out := make([]string, len(h.ids))
	copy(out, h.ids)
	return out
}

// Len returns the number of ids.
func (h *History) Len() int {
	return len(h.ids)
}

// LoadHistory reads the history file; a missing file yields an empty
// history. Entries written as abstract URLs or versioned ids are reduced
// to bare ids so they match freshly fetched papers.
func (s *Store) LoadHistory() (*History, error) {
	var ids []string
	if _, err := readJSON(s.historyPath, &ids); err != nil {
		return nil, err
	}
	for i, id := range ids {
		ids[i] = types.BareID(id)
	}
	return NewHistory(ids...), nil
}

// SaveHistory overwrites the history file with h in insertion order.
func (s *Store) SaveHistory(h *History) error {
	return writeJSON(s.historyPath, h.IDs())
}
