package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ValueStore reads and writes rows of the test(id, value) table
type ValueStore struct {
	db *sql.DB
}

// NewValueStore creates a value store from a base store
func NewValueStore(store *Store) *ValueStore {
	if store == nil {
		return nil
	}
	return &ValueStore{db: store.DB()}
}

// Insert adds value in its own transaction and returns the assigned id
func (vs *ValueStore) Insert(ctx context.Context, value string) (int64, error) {
	if vs == nil || vs.db == nil {
		return 0, fmt.Errorf("value store not initialized")
	}
	tx, err := vs.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO test (value) VALUES (?)`, value)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("insert value: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("insert value: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	return id, nil
}

// Get returns the value stored under id, with false when no row exists
func (vs *ValueStore) Get(ctx context.Context, id int64) (string, bool, error) {
	if vs == nil || vs.db == nil {
		return "", false, fmt.Errorf("value store not initialized")
	}
	var out sql.NullString
	err := vs.db.QueryRowContext(ctx, `SELECT value FROM test WHERE id = ?`, id).Scan(&out)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return out.String, true, nil
}

// Count returns the number of rows in the table
func (vs *ValueStore) Count(ctx context.Context) (int, error) {
	if vs == nil || vs.db == nil {
		return 0, fmt.Errorf("value store not initialized")
	}
	var n int
	err := vs.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM test`).Scan(&n)
	return n, err
}
