// Package storage provides Badger-based KV storage implementation.
package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
)

// Key layout inside Badger. Records live under recordPrefix so that
// bookkeeping keys never show up in Scan.
var (
	recordPrefix = []byte("r/")
	schemaKey    = []byte("m/schema_version")
)

// SchemaVersion is the on-disk record layout version.
const SchemaVersion = "1"

// recordHeaderLen is metadata(8) + length(8).
const recordHeaderLen = 16

// BadgerEngine implements Engine using Badger v3.
type BadgerEngine struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger
	closed atomic.Bool

	lastGCTime atomic.Int64 // Unix milliseconds

	// Shutdown
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBadgerEngine opens a Badger database under cfg.Dir.
func NewBadgerEngine(cfg Config, logger *slog.Logger) (*BadgerEngine, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	badgerCfg := cfg.Badger
	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = &badgerLogger{logger: logger}
	opts.BlockCacheSize = badgerCfg.CacheSize
	opts.ValueLogFileSize = badgerCfg.ValueLogFileSize
	opts.SyncWrites = badgerCfg.SyncWrites
	// Writes are blind sets/deletes; there are no read-modify-write
	// transactions that could conflict.
	opts.DetectConflicts = false

	if cfg.EncryptionKey != "" {
		opts.EncryptionKey = []byte(cfg.EncryptionKey)
		opts.IndexCacheSize = badgerCfg.IndexCacheSize
		if opts.IndexCacheSize <= 0 {
			opts.IndexCacheSize = 16 << 20
		}
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	engine := &BadgerEngine{
		db:     db,
		cfg:    badgerCfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go engine.gcLoop()

	logger.Info("badger engine started",
		"dir", cfg.Dir,
		"cache_size", badgerCfg.CacheSize,
		"sync_writes", badgerCfg.SyncWrites,
		"encrypted", cfg.EncryptionKey != "",
		"gc_interval", badgerCfg.GCInterval)

	return engine, nil
}

// Bootstrap records the schema version on first use and refuses to open
// a directory written with a different layout.
func (e *BadgerEngine) Bootstrap(ctx context.Context) error {
	if e.closed.Load() {
		return opError("bootstrap", "", ErrClosed)
	}
	err := e.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(schemaKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return txn.Set(schemaKey, []byte(SchemaVersion))
		}
		if err != nil {
			return err
		}
		version, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if string(version) != SchemaVersion {
			return fmt.Errorf("unsupported schema version %q (want %q)", version, SchemaVersion)
		}
		return nil
	})
	return opError("bootstrap", "", err)
}

// Upsert inserts or replaces a record in a single transaction.
func (e *BadgerEngine) Upsert(ctx context.Context, rec *Record) error {
	if err := rec.Validate(); err != nil {
		return opError("upsert", rec.Key, err)
	}
	if e.closed.Load() {
		return opError("upsert", rec.Key, ErrClosed)
	}
	err := e.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec.Key), encodeRecord(rec))
	})
	return opError("upsert", rec.Key, err)
}

// Lookup retrieves the value stored under key.
func (e *BadgerEngine) Lookup(ctx context.Context, key string) ([]byte, bool, error) {
	if e.closed.Load() {
		return nil, false, opError("lookup", key, ErrClosed)
	}

	var rec *Record
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(key))
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		rec, err = decodeRecord(key, raw)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, opError("lookup", key, err)
	}
	return rec.Value, true, nil
}

// Delete removes a key. Deleting an absent key succeeds.
func (e *BadgerEngine) Delete(ctx context.Context, key string) error {
	if e.closed.Load() {
		return opError("delete", key, ErrClosed)
	}
	err := e.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(recordKey(key))
	})
	return opError("delete", key, err)
}

// Scan iterates over all records in key order.
func (e *BadgerEngine) Scan(ctx context.Context, fn func(rec *Record) bool) error {
	if e.closed.Load() {
		return opError("scan", "", ErrClosed)
	}
	err := e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			key := string(item.Key()[len(recordPrefix):])
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := decodeRecord(key, raw)
			if err != nil {
				return err
			}
			if !fn(rec) {
				break
			}
		}
		return nil
	})
	return opError("scan", "", err)
}

// GC runs value log garbage collection until Badger reports nothing to
// rewrite.
func (e *BadgerEngine) GC(ctx context.Context) (int, error) {
	startTime := time.Now()

	runs := 0
	for {
		if err := ctx.Err(); err != nil {
			return runs, err
		}
		err := e.db.RunValueLogGC(e.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break
			}
			return runs, fmt.Errorf("gc: %w", err)
		}
		runs++
	}

	e.lastGCTime.Store(time.Now().UnixMilli())
	e.logger.Debug("gc completed",
		"rewrites", runs,
		"elapsed", time.Since(startTime))

	return runs, nil
}

// Stats returns storage statistics.
func (e *BadgerEngine) Stats(ctx context.Context) (*Stats, error) {
	if e.closed.Load() {
		return nil, opError("stats", "", ErrClosed)
	}
	lsm, vlog := e.db.Size()

	return &Stats{
		Engine:       EngineBadger,
		TotalSize:    uint64(lsm + vlog),
		LSMSize:      uint64(lsm),
		ValueLogSize: uint64(vlog),
		LastGCTime:   e.lastGCTime.Load(),
	}, nil
}

// Close gracefully shuts down the Badger engine.
func (e *BadgerEngine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.logger.Info("shutting down badger engine")

	close(e.stopCh)
	<-e.doneCh

	if err := e.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	e.logger.Info("badger engine shutdown complete")
	return nil
}

// gcLoop runs periodic garbage collection.
func (e *BadgerEngine) gcLoop() {
	defer close(e.doneCh)

	interval, err := time.ParseDuration(e.cfg.GCInterval)
	if err != nil || interval <= 0 {
		e.logger.Error("invalid gc_interval, using default 10m", "gc_interval", e.cfg.GCInterval)
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if _, err := e.GC(ctx); err != nil {
				e.logger.Error("auto gc failed", "error", err)
			}
			cancel()

		case <-e.stopCh:
			return
		}
	}
}

func recordKey(key string) []byte {
	out := make([]byte, 0, len(recordPrefix)+len(key))
	out = append(out, recordPrefix...)
	return append(out, key...)
}

// encodeRecord lays a record out as metadata(8) | length(8) | value.
func encodeRecord(rec *Record) []byte {
	out := make([]byte, recordHeaderLen+len(rec.Value))
	binary.BigEndian.PutUint64(out[0:8], uint64(rec.Metadata))
	binary.BigEndian.PutUint64(out[8:16], uint64(rec.Length))
	copy(out[recordHeaderLen:], rec.Value)
	return out
}

func decodeRecord(key string, raw []byte) (*Record, error) {
	if len(raw) < recordHeaderLen {
		return nil, ErrCorruptRecord
	}
	rec := &Record{
		Key:      key,
		Metadata: int64(binary.BigEndian.Uint64(raw[0:8])),
		Length:   int64(binary.BigEndian.Uint64(raw[8:16])),
		Value:    raw[recordHeaderLen:],
	}
	if rec.Length != int64(len(rec.Value)) {
		return nil, ErrCorruptRecord
	}
	return rec, nil
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
