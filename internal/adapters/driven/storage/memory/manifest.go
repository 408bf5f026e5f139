package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/bunker-search/internal/core/domain"
	"github.com/custodia-labs/bunker-search/internal/core/ports/driven"
)

// Ensure ManifestStore implements the interface.
var _ driven.ManifestStore = (*ManifestStore)(nil)

// ManifestStore is an in-memory implementation of driven.ManifestStore.
type ManifestStore struct {
	mu      sync.RWMutex
	entries map[string]map[string]domain.ManifestEntry
}

// NewManifestStore creates an empty manifest.
func NewManifestStore() *ManifestStore {
	return &ManifestStore{
		entries: make(map[string]map[string]domain.ManifestEntry),
	}
}

// Lookup returns the recorded fingerprint for a document.
func (s *ManifestStore) Lookup(_ context.Context, source, docID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[source][docID]
	if !ok {
		return "", false, nil
	}
	return entry.Fingerprint, true, nil
}

// Record creates or updates an entry.
func (s *ManifestStore) Record(_ context.Context, entry domain.ManifestEntry) error {
	if entry.IndexedAt.IsZero() {
		entry.IndexedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bySource, ok := s.entries[entry.Source]
	if !ok {
		bySource = make(map[string]domain.ManifestEntry)
		s.entries[entry.Source] = bySource
	}
	bySource[entry.DocID] = entry
	return nil
}

// Prune deletes entries whose doc ID was not seen.
func (s *ManifestStore) Prune(_ context.Context, source string, seen map[string]struct{}) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for docID := range s.entries[source] {
		if _, ok := seen[docID]; !ok {
			removed = append(removed, docID)
		}
	}
	sort.Strings(removed)
	for _, docID := range removed {
		delete(s.entries[source], docID)
	}
	return removed, nil
}

// Count returns the number of entries for a source.
func (s *ManifestStore) Count(_ context.Context, source string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries[source]), nil
}
