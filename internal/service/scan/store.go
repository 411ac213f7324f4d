// Package scan keeps recent scan results server side so that commits refer to
// a scan ID and an index instead of client-supplied CO2 values.
package scan

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"ecoscanner/internal/model"
)

var (
	// ErrScanNotFound covers unknown or expired scan IDs, scans owned by another
	// user and out-of-range indexes.
	ErrScanNotFound = errors.New("scan result not found")
	// ErrAlreadyCommitted is returned for a second commit of the same record.
	ErrAlreadyCommitted = errors.New("scan result already committed")
)

type entry struct {
	username  string
	records   []model.ImpactRecord
	mu        sync.Mutex
	committed []bool
}

// Store is an expiring in-memory map from scan ID to records.
type Store struct {
	cache *cache.Cache
}

// NewStore creates a store whose entries expire after ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{cache: cache.New(ttl, 2*ttl)}
}

// Save stores a copy of records for username and returns the new scan ID.
func (s *Store) Save(username string, records []model.ImpactRecord) string {
	id := uuid.NewString()
	copied := make([]model.ImpactRecord, len(records))
	copy(copied, records)

	s.cache.SetDefault(id, &entry{
		username:  username,
		records:   copied,
		committed: make([]bool, len(records)),
	})
	return id
}

// Commit marks record index of scanID as committed and returns it. Callers
// that fail to persist the record should call Release to allow a retry.
func (s *Store) Commit(username, scanID string, index int) (model.ImpactRecord, error) {
	e, err := s.lookup(username, scanID, index)
	if err != nil {
		return model.ImpactRecord{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.committed[index] {
		return model.ImpactRecord{}, ErrAlreadyCommitted
	}
	e.committed[index] = true
	return e.records[index], nil
}

// Release undoes a Commit.
func (s *Store) Release(username, scanID string, index int) {
	e, err := s.lookup(username, scanID, index)
	if err != nil {
		return
	}
	e.mu.Lock()
	e.committed[index] = false
	e.mu.Unlock()
}

func (s *Store) lookup(username, scanID string, index int) (*entry, error) {
	e, err := s.get(username, scanID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(e.records) {
		return nil, ErrScanNotFound
	}
	return e, nil
}

func (s *Store) get(username, scanID string) (*entry, error) {
	v, ok := s.cache.Get(scanID)
	if !ok {
		return nil, ErrScanNotFound
	}
	e := v.(*entry)
	if e.username != username {
		return nil, ErrScanNotFound
	}
	return e, nil
}
