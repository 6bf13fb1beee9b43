package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteEngine implements Engine on a single SQLite table.
//
// The pool is pinned to one connection, which makes SQLite the
// single-writer queue for all handlers.
type SQLiteEngine struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteEngine opens (or creates) the SQLite database file.
func NewSQLiteEngine(cfg Config, logger *slog.Logger) (*SQLiteEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sqliteCfg := cfg.SQLite
	path := sqliteCfg.File
	if path == "" {
		path = DefaultSQLiteConfig().File
	}
	if path != ":memory:" && !filepath.IsAbs(path) {
		if cfg.Dir == "" {
			return nil, fmt.Errorf("sqlite: dir is required")
		}
		if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
			return nil, fmt.Errorf("sqlite: create dir: %w", err)
		}
		path = filepath.Join(cfg.Dir, path)
	}

	busy := sqliteCfg.BusyTimeoutMS
	if busy <= 0 {
		busy = DefaultSQLiteConfig().BusyTimeoutMS
	}
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)", path, busy)
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	logger.Info("sqlite engine started", "path", path)

	return &SQLiteEngine{
		db:     db,
		path:   path,
		logger: logger,
	}, nil
}

// Bootstrap creates the memcached table if it does not exist.
func (e *SQLiteEngine) Bootstrap(ctx context.Context) error {
	_, err := e.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS memcached (
		key      TEXT PRIMARY KEY,
		metadata INTEGER NOT NULL,
		length   INTEGER NOT NULL,
		value    BLOB NOT NULL
	)`)
	return opError("bootstrap", "", err)
}

// Upsert inserts or replaces a record in a single transaction.
func (e *SQLiteEngine) Upsert(ctx context.Context, rec *Record) error {
	if err := rec.Validate(); err != nil {
		return opError("upsert", rec.Key, err)
	}
	return opError("upsert", rec.Key, e.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO memcached (key, metadata, length, value)
		VALUES (?, ?, ?, coalesce(?, x''))
		ON CONFLICT(key) DO UPDATE SET
			metadata = excluded.metadata,
			length   = excluded.length,
			value    = excluded.value`,
			rec.Key, rec.Metadata, rec.Length, rec.Value)
		return err
	}))
}

// Lookup retrieves the value stored under key.
func (e *SQLiteEngine) Lookup(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := e.db.QueryRowContext(ctx,
		`SELECT value FROM memcached WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, opError("lookup", key, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

// Delete removes a key. Deleting an absent key succeeds.
func (e *SQLiteEngine) Delete(ctx context.Context, key string) error {
	return opError("delete", key, e.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM memcached WHERE key = ?`, key)
		return err
	}))
}

// Scan iterates over all records in key order.
//
// fn must not call back into the engine: the only pooled connection is
// held by the open result set.
func (e *SQLiteEngine) Scan(ctx context.Context, fn func(rec *Record) bool) error {
	rows, err := e.db.QueryContext(ctx,
		`SELECT key, metadata, length, value FROM memcached ORDER BY key`)
	if err != nil {
		return opError("scan", "", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec := &Record{}
		if err := rows.Scan(&rec.Key, &rec.Metadata, &rec.Length, &rec.Value); err != nil {
			return opError("scan", "", err)
		}
		if rec.Value == nil {
			rec.Value = []byte{}
		}
		if !fn(rec) {
			break
		}
	}
	return opError("scan", "", rows.Err())
}

// Stats returns the database file size.
func (e *SQLiteEngine) Stats(ctx context.Context) (*Stats, error) {
	if err := e.db.PingContext(ctx); err != nil {
		return nil, opError("stats", "", err)
	}
	stats := &Stats{Engine: EngineSQLite}
	if e.path == ":memory:" {
		return stats, nil
	}
	fi, err := os.Stat(e.path)
	if err != nil {
		return nil, opError("stats", "", err)
	}
	stats.TotalSize = uint64(fi.Size())
	return stats, nil
}

// Close closes the database handle.
func (e *SQLiteEngine) Close() error {
	e.logger.Info("shutting down sqlite engine")
	return e.db.Close()
}

// inTx runs fn in a transaction, rolling back on any error.
func (e *SQLiteEngine) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			e.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	return tx.Commit()
}
