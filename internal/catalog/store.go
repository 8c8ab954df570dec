package catalog

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Dataset is an immutable snapshot of a loaded catalog.
type Dataset struct {
	ID       string
	Filename string
	Records  []Record
	Facets   FacetIndex
	LoadedAt time.Time
}

// Len returns the number of records in the dataset.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Store holds the single current dataset. Load and Clear replace it
// wholesale; readers always see one complete snapshot. Safe for concurrent
// use.
type Store struct {
	mu      sync.RWMutex
	current *Dataset
	now     func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Load builds the facet index for records and makes them the current
// dataset, replacing any previous one. The store keeps records; the caller
// must not modify the slice afterwards.
func (s *Store) Load(records []Record, filename string) *Dataset {
	ds := &Dataset{
		ID:       uuid.NewString(),
		Filename: filename,
		Records:  records,
		Facets:   BuildFacets(records),
		LoadedAt: s.now(),
	}

	s.mu.Lock()
	s.current = ds
	s.mu.Unlock()
	return ds
}

// Clear drops the current dataset.
func (s *Store) Clear() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// IsLoaded reports whether the current dataset holds any records.
func (s *Store) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Len() > 0
}

// Current returns the current dataset, or ErrNoDataset when nothing with
// records is loaded.
func (s *Store) Current() (*Dataset, error) {
	s.mu.RLock()
	ds := s.current
	s.mu.RUnlock()

	if ds.Len() == 0 {
		return nil, ErrNoDataset
	}
	return ds, nil
}
