package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v3"
)

func newTestBadger(t *testing.T, dir string) *BadgerEngine {
	t.Helper()

	cfg := DefaultConfig(dir)
	cfg.Badger.GCInterval = "1h" // Disable auto GC for tests
	cfg.Badger.SyncWrites = false

	engine, err := NewBadgerEngine(cfg, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Bootstrap(context.Background()); err != nil {
		t.Fatal(err)
	}
	return engine
}

func TestBadgerEngine_RequiresDir(t *testing.T) {
	_, err := NewBadgerEngine(Config{}, nil)
	if err == nil {
		t.Fatal("expected error for empty dir")
	}
}

func TestBadgerEngine_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	engine := newTestBadger(t, dir)
	rec := &Record{Key: "durable", Metadata: 42, Length: 5, Value: []byte("hello")}
	if err := engine.Upsert(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if err := engine.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := newTestBadger(t, dir)
	defer reopened.Close()

	got, ok, err := reopened.Lookup(ctx, "durable")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || string(got) != "hello" {
		t.Errorf("Lookup after reopen = %q, %v; want %q, true", got, ok, "hello")
	}

	var metadata int64
	err = reopened.Scan(ctx, func(r *Record) bool {
		metadata = r.Metadata
		return true
	})
	if err != nil {
		t.Fatal(err)
	}
	if metadata != 42 {
		t.Errorf("metadata = %d, want 42", metadata)
	}
}

func TestBadgerEngine_SchemaVersionMismatch(t *testing.T) {
	dir := t.TempDir()

	engine := newTestBadger(t, dir)
	err := engine.db.Update(func(txn *badger.Txn) error {
		return txn.Set(schemaKey, []byte("0"))
	})
	if err != nil {
		t.Fatal(err)
	}

	err = engine.Bootstrap(context.Background())
	if !errors.Is(err, ErrStorage) {
		t.Errorf("Bootstrap() error = %v, want storage error", err)
	}
	engine.Close()
}

func TestBadgerEngine_ScanSkipsBookkeeping(t *testing.T) {
	engine := newTestBadger(t, t.TempDir())
	defer engine.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		v := []byte(fmt.Sprintf("v%d", i))
		rec := &Record{Key: fmt.Sprintf("k%d", i), Length: int64(len(v)), Value: v}
		if err := engine.Upsert(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	var keys []string
	if err := engine.Scan(ctx, func(r *Record) bool {
		keys = append(keys, r.Key)
		return true
	}); err != nil {
		t.Fatal(err)
	}

	want := []string{"k0", "k1", "k2"}
	if fmt.Sprint(keys) != fmt.Sprint(want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}
}

func TestBadgerEngine_Encrypted(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	cfg := DefaultConfig(dir)
	cfg.Badger.GCInterval = "1h"
	cfg.EncryptionKey = "0123456789abcdef0123456789abcdef"

	engine, err := NewBadgerEngine(cfg, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	if err := engine.Bootstrap(ctx); err != nil {
		t.Fatal(err)
	}
	rec := &Record{Key: "secret", Length: 3, Value: []byte("abc")}
	if err := engine.Upsert(ctx, rec); err != nil {
		t.Fatal(err)
	}
	got, ok, err := engine.Lookup(ctx, "secret")
	if err != nil || !ok || string(got) != "abc" {
		t.Errorf("Lookup = %q, %v, %v", got, ok, err)
	}
}

func TestBadgerEngine_GCAndStats(t *testing.T) {
	engine := newTestBadger(t, t.TempDir())
	defer engine.Close()

	ctx := context.Background()
	value := make([]byte, 1000)
	for i := 0; i < 100; i++ {
		rec := &Record{Key: fmt.Sprintf("key-%03d", i), Length: int64(len(value)), Value: value}
		if err := engine.Upsert(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 50; i++ {
		if err := engine.Delete(ctx, fmt.Sprintf("key-%03d", i)); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := engine.GC(ctx); err != nil {
		t.Fatal(err)
	}

	stats, err := engine.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Engine != EngineBadger {
		t.Errorf("Engine = %q, want %q", stats.Engine, EngineBadger)
	}
	if stats.LastGCTime == 0 {
		t.Error("LastGCTime should be set after GC")
	}
}

func TestBadgerEngine_ClosedOperations(t *testing.T) {
	engine := newTestBadger(t, t.TempDir())
	if err := engine.Close(); err != nil {
		t.Fatal(err)
	}
	// Double close is a no-op.
	if err := engine.Close(); err != nil {
		t.Errorf("double Close() error = %v", err)
	}

	ctx := context.Background()
	if err := engine.Upsert(ctx, &Record{Key: "k"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Upsert() error = %v, want ErrClosed", err)
	}
	if _, _, err := engine.Lookup(ctx, "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Lookup() error = %v, want ErrClosed", err)
	}
	if err := engine.Delete(ctx, "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Delete() error = %v, want ErrClosed", err)
	}
}

func TestRecordCodec(t *testing.T) {
	rec := &Record{Key: "k", Metadata: -7, Length: 3, Value: []byte{0, '\r', '\n'}}
	got, err := decodeRecord("k", encodeRecord(rec))
	if err != nil {
		t.Fatal(err)
	}
	if got.Metadata != -7 || got.Length != 3 || string(got.Value) != "\x00\r\n" {
		t.Errorf("decoded = %+v", got)
	}

	if _, err := decodeRecord("k", []byte{1, 2, 3}); !errors.Is(err, ErrCorruptRecord) {
		t.Errorf("short record error = %v, want ErrCorruptRecord", err)
	}
}
