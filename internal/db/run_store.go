package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// RunRecord is one probe outcome within a run
type RunRecord struct {
	ID        int64
	RunID     string
	Probe     string
	Passed    bool
	Error     string
	Duration  time.Duration
	CreatedAt time.Time
}

// RunStore persists probe run history
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a run store from a base store
func NewRunStore(store *Store) *RunStore {
	if store == nil {
		return nil
	}
	return &RunStore{db: store.DB()}
}

// SaveRun stores all records of one run atomically
func (rs *RunStore) SaveRun(ctx context.Context, records []RunRecord) error {
	if rs == nil || rs.db == nil {
		return fmt.Errorf("run store not initialized")
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := rs.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO probe_runs(run_id, probe, passed, error, duration_ms, created_at)
VALUES(?,?,?,?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if strings.TrimSpace(r.RunID) == "" || strings.TrimSpace(r.Probe) == "" {
			_ = tx.Rollback()
			return fmt.Errorf("invalid run record: run id and probe are required")
		}
		created := r.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, r.RunID, r.Probe, r.Passed, r.Error, r.Duration.Milliseconds(), created.Unix()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("save run %s: %w", r.RunID, err)
		}
	}
	return tx.Commit()
}

// RecentRuns returns up to limit records, newest first
func (rs *RunStore) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if rs == nil || rs.db == nil {
		return nil, fmt.Errorf("run store not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := rs.db.QueryContext(ctx, `SELECT id, run_id, probe, passed, error, duration_ms, created_at
FROM probe_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			r          RunRecord
			durationMs int64
			createdAt  int64
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.Probe, &r.Passed, &r.Error, &durationMs, &createdAt); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}
