// Package history records tracked transfers and their outcomes in a local
// SQLite file. It observes the tracker; it never drives transitions.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bridgewatch"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// Transfer outcomes.
const (
	OutcomeTracking  = "tracking"
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// Record is one tracked transfer.
type Record struct {
	Ref        bridgewatch.TransferRef
	StartedAt  time.Time
	FinishedAt time.Time // zero while still tracking
	Outcome    string
	Error      string
}

// RecoveryAttempt is one executed recovery option.
type RecoveryAttempt struct {
	ID          string
	TxRef       string
	Option      string
	AttemptedAt time.Time
	Outcome     string
}

// Store is the transfer history backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin records that tracking started for a transfer. Re-tracking a known
// transfer resets its row.
func (s *Store) Begin(ctx context.Context, ref bridgewatch.TransferRef) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transfers (tx_ref, source_chain, dest_chain, started_at, outcome, error)
		VALUES (?, ?, ?, ?, ?, '')
		ON CONFLICT (tx_ref) DO UPDATE SET
			source_chain = excluded.source_chain,
			dest_chain   = excluded.dest_chain,
			started_at   = excluded.started_at,
			finished_at  = NULL,
			outcome      = excluded.outcome,
			error        = ''`,
		ref.TxRef, ref.SourceChain, ref.DestChain, time.Now().UTC(), OutcomeTracking)
	if err != nil {
		return fmt.Errorf("record transfer start: %w", err)
	}
	return nil
}

// Finish records the terminal outcome of a transfer.
func (s *Store) Finish(ctx context.Context, txRef, outcome, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE transfers SET finished_at = ?, outcome = ?, error = ?
		WHERE tx_ref = ?`,
		time.Now().UTC(), outcome, errMsg, txRef)
	if err != nil {
		return fmt.Errorf("record transfer outcome: %w", err)
	}
	return nil
}

// AddRecovery records one executed recovery option for a transfer.
func (s *Store) AddRecovery(ctx context.Context, txRef, option, outcome string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recovery_attempts (id, tx_ref, option, attempted_at, outcome)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), txRef, option, time.Now().UTC(), outcome)
	if err != nil {
		return fmt.Errorf("record recovery attempt: %w", err)
	}
	return nil
}

// List returns the most recently started transfers, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT tx_ref, source_chain, dest_chain, started_at, finished_at, outcome, error
		FROM transfers ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list transfers: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	return records, nil
}

// Get returns one transfer record. The bool is false when unknown.
func (s *Store) Get(ctx context.Context, txRef string) (Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT tx_ref, source_chain, dest_chain, started_at, finished_at, outcome, error
		FROM transfers WHERE tx_ref = ?`, txRef)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("get transfer: %w", err)
	}
	return rec, true, nil
}

// Recoveries returns the recovery attempts for a transfer, oldest first.
func (s *Store) Recoveries(ctx context.Context, txRef string) ([]RecoveryAttempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tx_ref, option, attempted_at, outcome
		FROM recovery_attempts WHERE tx_ref = ? ORDER BY attempted_at`, txRef)
	if err != nil {
		return nil, fmt.Errorf("list recovery attempts: %w", err)
	}
	defer rows.Close()

	var attempts []RecoveryAttempt
	for rows.Next() {
		var a RecoveryAttempt
		if err := rows.Scan(&a.ID, &a.TxRef, &a.Option, &a.AttemptedAt, &a.Outcome); err != nil {
			return nil, fmt.Errorf("list recovery attempts: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list recovery attempts: %w", err)
	}
	return attempts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec      Record
		finished sql.NullTime
	)
	err := row.Scan(&rec.Ref.TxRef, &rec.Ref.SourceChain, &rec.Ref.DestChain,
		&rec.StartedAt, &finished, &rec.Outcome, &rec.Error)
	if err != nil {
		return Record{}, err
	}
	if finished.Valid {
		rec.FinishedAt = finished.Time
	}
	return rec, nil
}
