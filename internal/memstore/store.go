// Package memstore provides an ephemeral, thread-safe, in-memory
// implementation of the artifact.Store interface.
//
// It is created fresh for each analysis session and keeps superseded
// records around (invalid, newest-first) for audit and session replay.
// A single RWMutex over the record map is sufficient here: the contract
// requires check-and-set atomicity per key (Put must compare the existing
// valid record's input fingerprint before committing), which rules out
// lock-free per-field maps.
package memstore

import (
	"context"
	"sync"

	"github.com/vk/datareadygo/internal/artifact"
)

type key struct {
	datasetID string
	stage     string
}

// Store is the in-memory artifact store. The zero value is not usable;
// call New.
type Store struct {
	mu sync.RWMutex
	// current holds the latest record per key; history holds superseded
	// records in commit order.
	current map[key]artifact.Record
	history map[key][]artifact.Record
}

// New creates a new, empty in-memory artifact store.
func New() *Store {
	return &Store{
		current: make(map[key]artifact.Record),
		history: make(map[key][]artifact.Record),
	}
}

// Put commits rec as the valid record for its key, superseding any prior
// record. A valid prior record with a different input fingerprint rejects
// the write.
func (s *Store) Put(ctx context.Context, rec artifact.Record) error {
	k := key{rec.DatasetID, rec.Stage}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.current[k]; ok {
		if prev.Valid && prev.InputFingerprint != rec.InputFingerprint {
			return &artifact.FingerprintMismatchError{
				DatasetID: rec.DatasetID,
				Stage:     rec.Stage,
				Have:      prev.InputFingerprint,
				Want:      rec.InputFingerprint,
			}
		}
		prev.Valid = false
		s.history[k] = append(s.history[k], prev)
	}

	rec.Valid = true
	s.current[k] = rec
	return nil
}

// Get returns the latest record for the key, valid or not.
func (s *Store) Get(ctx context.Context, datasetID, stage string) (artifact.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.current[key{datasetID, stage}]
	if !ok {
		return artifact.Record{}, artifact.ErrNotFound
	}
	return rec, nil
}

// Invalidate marks the current record invalid, retaining it for audit.
func (s *Store) Invalidate(ctx context.Context, datasetID, stage string) error {
	k := key{datasetID, stage}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.current[k]
	if !ok {
		return artifact.ErrNotFound
	}
	rec.Valid = false
	s.current[k] = rec
	return nil
}

// History returns superseded records for the key in commit order. Exposed
// for audit and tests.
func (s *Store) History(datasetID, stage string) []artifact.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.history[key{datasetID, stage}]
	out := make([]artifact.Record, len(h))
	copy(out, h)
	return out
}
