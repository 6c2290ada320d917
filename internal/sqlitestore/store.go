// Package sqlitestore provides a SQLite-backed implementation of the
// artifact.Store interface for sessions that need their stage records to
// survive the process.
//
// Payloads are stored as canonical JSON; Get returns them as
// json.RawMessage. Superseded and invalidated records are kept as rows
// with valid=0, which gives the audit trail for free.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vk/datareadygo/internal/artifact"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS stage_records (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	dataset_id         TEXT NOT NULL,
	stage              TEXT NOT NULL,
	payload            TEXT NOT NULL DEFAULT '{}',
	input_fingerprint  TEXT NOT NULL DEFAULT '',
	output_fingerprint TEXT NOT NULL DEFAULT '',
	created_at         DATETIME NOT NULL,
	valid              INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_stage_records_key ON stage_records(dataset_id, stage, id);
`

// Store wraps a sql.DB with the artifact store operations.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlitestore: ping: %w", err)
	}
	// Serialize writers in-process as well; the Put transaction must be
	// the only writer for its key between read and commit.
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlitestore: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Put commits rec as the valid record for its key inside a transaction.
func (s *Store) Put(ctx context.Context, rec artifact.Record) error {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("sqlitestore: marshal payload: %w", err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin: %w", err)
	}
	defer tx.Rollback()

	var haveFP string
	var haveValid bool
	err = tx.QueryRowContext(ctx,
		`SELECT input_fingerprint, valid FROM stage_records
		 WHERE dataset_id = ? AND stage = ? ORDER BY id DESC LIMIT 1`,
		rec.DatasetID, rec.Stage).Scan(&haveFP, &haveValid)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// First write for the key.
	case err != nil:
		return fmt.Errorf("sqlitestore: read current record: %w", err)
	case haveValid && haveFP != rec.InputFingerprint:
		return &artifact.FingerprintMismatchError{
			DatasetID: rec.DatasetID,
			Stage:     rec.Stage,
			Have:      haveFP,
			Want:      rec.InputFingerprint,
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE stage_records SET valid = 0 WHERE dataset_id = ? AND stage = ?`,
		rec.DatasetID, rec.Stage); err != nil {
		return fmt.Errorf("sqlitestore: supersede prior records: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO stage_records
		 (dataset_id, stage, payload, input_fingerprint, output_fingerprint, created_at, valid)
		 VALUES (?, ?, ?, ?, ?, ?, 1)`,
		rec.DatasetID, rec.Stage, string(payload), rec.InputFingerprint,
		rec.OutputFingerprint, rec.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("sqlitestore: insert record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlitestore: commit: %w", err)
	}
	return nil
}

// Get returns the latest record for the key. The payload comes back as
// json.RawMessage.
func (s *Store) Get(ctx context.Context, datasetID, stage string) (artifact.Record, error) {
	var rec artifact.Record
	var payload string
	err := s.conn.QueryRowContext(ctx,
		`SELECT dataset_id, stage, payload, input_fingerprint, output_fingerprint, created_at, valid
		 FROM stage_records WHERE dataset_id = ? AND stage = ? ORDER BY id DESC LIMIT 1`,
		datasetID, stage).Scan(&rec.DatasetID, &rec.Stage, &payload,
		&rec.InputFingerprint, &rec.OutputFingerprint, &rec.CreatedAt, &rec.Valid)
	if errors.Is(err, sql.ErrNoRows) {
		return artifact.Record{}, artifact.ErrNotFound
	}
	if err != nil {
		return artifact.Record{}, fmt.Errorf("sqlitestore: read record: %w", err)
	}
	rec.Payload = json.RawMessage(payload)
	return rec, nil
}

// Invalidate marks every record for the key invalid, retaining the rows.
func (s *Store) Invalidate(ctx context.Context, datasetID, stage string) error {
	var exists bool
	err := s.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM stage_records WHERE dataset_id = ? AND stage = ?)`,
		datasetID, stage).Scan(&exists)
	if err != nil {
		return fmt.Errorf("sqlitestore: check record: %w", err)
	}
	if !exists {
		return artifact.ErrNotFound
	}
	if _, err := s.conn.ExecContext(ctx,
		`UPDATE stage_records SET valid = 0 WHERE dataset_id = ? AND stage = ?`,
		datasetID, stage); err != nil {
		return fmt.Errorf("sqlitestore: invalidate: %w", err)
	}
	return nil
}
