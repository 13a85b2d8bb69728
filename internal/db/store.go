// Package db wraps the SQLite database used for probe round-trips and run history.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// MemoryDSN opens a private in-memory database
const MemoryDSN = ":memory:"

// Store wraps a SQLite database
type Store struct {
	db     *sql.DB
	memory bool
}

// IsMemoryDSN reports whether dsn names an in-memory database
func IsMemoryDSN(dsn string) bool {
	dsn = strings.TrimSpace(dsn)
	return dsn == MemoryDSN ||
		strings.HasPrefix(dsn, "file::memory:") ||
		strings.Contains(dsn, "mode=memory")
}

// Open opens (and creates/migrates) the database named by dsn, which is
// either a file path or an in-memory DSN such as ":memory:"
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty database path")
	}

	memory := IsMemoryDSN(dsn)
	if !memory {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
		// Ensure file exists with strict perms
		if _, err := os.Stat(dsn); os.IsNotExist(err) {
			f, err := os.OpenFile(dsn, os.O_CREATE|os.O_RDWR, 0o600)
			if err != nil {
				return nil, fmt.Errorf("create database file: %w", err)
			}
			_ = f.Close()
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if memory {
		// each connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set WAL: %w", err)
		}
		_, _ = db.ExecContext(ctx, "PRAGMA busy_timeout=5000;")
		_, _ = db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;")
	}
	_, _ = db.ExecContext(ctx, "PRAGMA foreign_keys=ON;")

	s := &Store{db: db, memory: memory}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OpenMemory opens a fresh in-memory database
func OpenMemory(ctx context.Context) (*Store, error) {
	return Open(ctx, MemoryDSN)
}

func (s *Store) migrate(ctx context.Context) error {
	// user_version based migrations
	var ver int
	_ = s.db.QueryRowContext(ctx, "PRAGMA user_version;").Scan(&ver)

	// v1: round-trip table
	if ver == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS test (
  id    INTEGER PRIMARY KEY,
  value TEXT
);
`)
		if err == nil {
			_, err = tx.ExecContext(ctx, "PRAGMA user_version=1;")
		}
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate v1: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		ver = 1
	}

	// v2: probe run history
	if ver == 1 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS probe_runs (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id      TEXT NOT NULL,
  probe       TEXT NOT NULL,
  passed      BOOLEAN NOT NULL,
  error       TEXT NOT NULL DEFAULT '',
  duration_ms INTEGER NOT NULL,
  created_at  INTEGER NOT NULL
);
`)
		if err == nil {
			_, err = tx.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_probe_runs_run_id ON probe_runs(run_id);`)
		}
		if err == nil {
			_, err = tx.ExecContext(ctx, "PRAGMA user_version=2;")
		}
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate v2: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		ver = 2
	}

	return nil
}

// IsMemory reports whether the store is backed by an in-memory database
func (s *Store) IsMemory() bool {
	return s != nil && s.memory
}

// Close closes the underlying database
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for use by domain stores
func (s *Store) DB() *sql.DB {
	return s.db
}
