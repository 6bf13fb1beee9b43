// Package storage provides storage abstractions for memkv.
//
// This file defines the Engine interface implemented by the embedded
// backends (Badger, SQLite) and the configuration shared by them.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Supported engine names.
const (
	EngineBadger = "badger"
	EngineSQLite = "sqlite"
)

// MaxKeyLen is the longest key the store accepts, in bytes.
const MaxKeyLen = 250

// Record is one persisted entry.
type Record struct {
	// Key is the unique identity of the record.
	Key string

	// Metadata holds the client-supplied flags. It is stored and returned
	// verbatim and never interpreted.
	Metadata int64

	// Length is the declared payload length. Always equals len(Value).
	Length int64

	// Value is the opaque payload.
	Value []byte
}

// Validate checks the record invariants enforced at write time.
func (r *Record) Validate() error {
	if r.Key == "" {
		return ErrEmptyKey
	}
	if len(r.Key) > MaxKeyLen {
		return ErrKeyTooLong
	}
	if r.Length != int64(len(r.Value)) {
		return ErrLengthMismatch
	}
	return nil
}

// Engine defines the interface for the persistent key-value store.
//
// Implementation requirements:
//   - Every operation runs as one atomic transaction; a failed transaction
//     leaves no partial record behind.
//   - Thread-safe: the engine is shared by all connections.
//   - Concurrent writes on the same key serialize (last writer wins).
type Engine interface {
	// Bootstrap prepares the backing schema. It is idempotent and must be
	// called once before the engine serves traffic.
	Bootstrap(ctx context.Context) error

	// Upsert inserts or fully replaces the record for rec.Key.
	Upsert(ctx context.Context, rec *Record) error

	// Lookup returns the current value for key. The boolean is false when
	// the key is absent.
	Lookup(ctx context.Context, key string) ([]byte, bool, error)

	// Delete removes the record for key. Absence is not an error.
	Delete(ctx context.Context, key string) error

	// Scan visits every record in key order. fn returns false to stop.
	Scan(ctx context.Context, fn func(rec *Record) bool) error

	// Stats returns storage statistics.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases the backend.
	Close() error
}

// Stats contains storage engine statistics.
type Stats struct {
	// Engine is the backend name.
	Engine string

	// TotalSize is the total disk usage in bytes (approximate).
	TotalSize uint64

	// LSMSize is the LSM tree size (Badger only).
	LSMSize uint64

	// ValueLogSize is the value log size (Badger only).
	ValueLogSize uint64

	// LastGCTime is the last GC run timestamp (Unix milliseconds).
	LastGCTime int64
}

// Config configures the storage engine.
type Config struct {
	// Engine selects the backend ("badger", "sqlite").
	// Default: "badger"
	Engine string

	// Dir is the storage directory.
	Dir string

	// EncryptionKey enables at-rest encryption (Badger only).
	// Must be 16, 24 or 32 bytes when set.
	EncryptionKey string

	// Badger-specific configuration
	Badger BadgerConfig

	// SQLite-specific configuration
	SQLite SQLiteConfig
}

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	// GCInterval is the interval between automatic value log GC runs.
	// Default: 10m
	GCInterval string

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 64MB
	CacheSize int64

	// IndexCacheSize is the index cache size in bytes. Required by Badger
	// when encryption is enabled.
	// Default: 16MB
	IndexCacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 256MB
	ValueLogFileSize int64

	// SyncWrites fsyncs every committed transaction.
	// Default: true (every STORED reply is durable)
	SyncWrites bool
}

// SQLiteConfig contains SQLite-specific parameters.
type SQLiteConfig struct {
	// File is the database file name, relative to Dir unless absolute.
	// ":memory:" keeps the table in memory.
	// Default: "memkv.db"
	File string

	// BusyTimeoutMS is the SQLite busy timeout in milliseconds.
	// Default: 5000
	BusyTimeoutMS int
}

// DefaultConfig returns the default storage configuration.
func DefaultConfig(dir string) Config {
	return Config{
		Engine: EngineBadger,
		Dir:    dir,
		Badger: DefaultBadgerConfig(),
		SQLite: DefaultSQLiteConfig(),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       "10m",
		GCThreshold:      0.5,
		CacheSize:        64 << 20,
		IndexCacheSize:   16 << 20,
		ValueLogFileSize: 256 << 20,
		SyncWrites:       true,
	}
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		File:          "memkv.db",
		BusyTimeoutMS: 5000,
	}
}

// Open creates the engine selected by cfg.Engine.
func Open(cfg Config, logger *slog.Logger) (Engine, error) {
	switch strings.ToLower(cfg.Engine) {
	case "", EngineBadger:
		return NewBadgerEngine(cfg, logger)
	case EngineSQLite:
		return NewSQLiteEngine(cfg, logger)
	default:
		return nil, fmt.Errorf("storage: unknown engine %q", cfg.Engine)
	}
}
