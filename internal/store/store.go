// Package store implements the Source Store (spec §4.5): an in-memory
// mapping of source name to CPT entry map, shared across concurrent
// requests against different sources (spec §5).
package store

import (
	"strings"
	"sync"

	"github.com/danishbarkat/mrfcompare/internal/mrferrors"
	"github.com/danishbarkat/mrfcompare/internal/mrfmodel"
)

// Store holds zero or more named sources. The zero value is not usable;
// construct with New.
type Store struct {
	mu      sync.RWMutex
	sources map[string]mrfmodel.Source
}

// New returns an empty Store.
func New() *Store {
	return &Store{sources: map[string]mrfmodel.Source{}}
}

// InsertOrMerge adds item's rates to name's entry for code, creating the
// source and/or entry as needed. Descriptions upgrade from empty/"No
// description" (mrfmodel.UpgradeDescription); rates always append, never
// deduplicate (spec §4.5).
func (s *Store) InsertOrMerge(name, code, description string, rates []mrfmodel.RateRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[name]
	if !ok {
		src = mrfmodel.Source{}
		s.sources[name] = src
	}
	entry, ok := src[code]
	if !ok {
		entry = &mrfmodel.CptEntry{Description: description}
		src[code] = entry
	} else {
		entry.Description = mrfmodel.UpgradeDescription(entry.Description, description)
	}
	entry.Rates = append(entry.Rates, rates...)
}

// ReplaceInFull atomically replaces name's entire source map. Holds the
// exclusive lock for the duration (spec §5).
func (s *Store) ReplaceInFull(name string, src mrfmodel.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[name] = src
}

// Lookup returns name's source map and whether it exists. The returned map
// must not be mutated by the caller; readers may proceed concurrently with
// other lookups once a source is fully loaded.
func (s *Store) Lookup(name string) (mrfmodel.Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.sources[name]
	return src, ok
}

// MustLookup is Lookup, returning mrferrors.MissingSource(name) on absence.
func (s *Store) MustLookup(name string) (mrfmodel.Source, error) {
	src, ok := s.Lookup(name)
	if !ok {
		return nil, mrferrors.MissingSource(name)
	}
	return src, nil
}

// ListNames returns the loaded source names in no particular order.
func (s *Store) ListNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.sources))
	for name := range s.sources {
		out = append(out, name)
	}
	return out
}

// Delete removes name, if present.
func (s *Store) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sources, name)
}

// NormalizeCode trims a raw billing_code value to the CptEntry key form
// (spec §3 "trimmed, non-empty").
func NormalizeCode(raw string) string {
	return strings.TrimSpace(raw)
}
