// Package artifact defines the stage record cache contract: the interface
// for storing and retrieving the outputs of analysis stages, keyed by
// (dataset identity, stage name).
//
// # Why Artifact Store Exists
//
// The store isolates the only mutable shared state of an analysis session
// from the pure computations around it. The quality analyzer, score
// aggregator and sandbox never touch it; only the router writes to it
// after a stage completes.
//
// # Consistency Guarantees
//
//   - At most one valid record exists per (dataset identity, stage name)
//     pair. Writing a new valid record supersedes any prior one.
//   - Reads always observe the most recent completed Put for a key; a
//     concurrent read never sees a torn payload.
//   - Writers for the same key are serialized. A Put that races a prior
//     valid record carrying a different input fingerprint is rejected:
//     converging computations must have had identical inputs, anything
//     else is a caller bug.
//   - Invalidate marks a record invalid without deleting it, so a session
//     can be replayed or audited.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get and Invalidate when no record has ever
// been written for the key.
var ErrNotFound = errors.New("artifact: record not found")

// Record is one stage output plus the metadata needed for staleness
// detection.
type Record struct {
	DatasetID string `json:"dataset_id"`
	Stage     string `json:"stage"`
	Payload   any    `json:"payload"`
	// InputFingerprint hashes the dataset identity and the output
	// fingerprints of every upstream stage this record was computed
	// from. Staleness detection is structural: the router compares it
	// against the fingerprint it would compute now.
	InputFingerprint  string    `json:"input_fingerprint"`
	OutputFingerprint string    `json:"output_fingerprint"`
	CreatedAt         time.Time `json:"created_at"`
	Valid             bool      `json:"valid"`
}

// FingerprintMismatchError reports a rejected Put: a valid record already
// exists for the key with a different input fingerprint. The caller must
// invalidate the stale record before committing a replacement.
type FingerprintMismatchError struct {
	DatasetID string
	Stage     string
	Have      string
	Want      string
}

func (e *FingerprintMismatchError) Error() string {
	return fmt.Sprintf("artifact: refusing write for (%s, %s): existing valid record has input fingerprint %.12s, incoming write has %.12s",
		e.DatasetID, e.Stage, e.Have, e.Want)
}

// StaleDependencyError is surfaced by the router, not the store, when a
// cached stage cannot be trusted because an ancestor changed and
// re-execution did not repair it.
type StaleDependencyError struct {
	Stage    string
	Ancestor string
}

func (e *StaleDependencyError) Error() string {
	return fmt.Sprintf("artifact: stage %q is stale: ancestor %q output changed", e.Stage, e.Ancestor)
}

// Store is the synchronous key-value contract the engine core depends on.
// The persistence mechanism behind it (memory, SQLite, object store) is a
// collaborator decision; the core treats every call as an atomic unit.
type Store interface {
	// Put creates or overwrites the record for its key and marks it
	// valid, superseding any prior record. It fails with a
	// FingerprintMismatchError when a valid record with a different
	// input fingerprint already exists.
	Put(ctx context.Context, rec Record) error

	// Get returns the most recent record for the key, valid or not.
	// Callers decide whether an invalid record is usable; the router
	// never trusts one. Returns ErrNotFound when nothing was written.
	Get(ctx context.Context, datasetID, stage string) (Record, error)

	// Invalidate marks the current record invalid without deleting it.
	// Returns ErrNotFound when nothing was written for the key.
	Invalidate(ctx context.Context, datasetID, stage string) error
}
