package storage

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
)

func newTestSQLite(t *testing.T, dir string) *SQLiteEngine {
	t.Helper()

	cfg := DefaultConfig(dir)
	cfg.Engine = EngineSQLite

	engine, err := NewSQLiteEngine(cfg, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Bootstrap(context.Background()); err != nil {
		t.Fatal(err)
	}
	return engine
}

func TestSQLiteEngine_BootstrapIdempotent(t *testing.T) {
	engine := newTestSQLite(t, t.TempDir())
	defer engine.Close()

	for i := 0; i < 2; i++ {
		if err := engine.Bootstrap(context.Background()); err != nil {
			t.Fatalf("Bootstrap() #%d error = %v", i, err)
		}
	}
}

func TestSQLiteEngine_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	engine := newTestSQLite(t, dir)
	if err := engine.Upsert(ctx, rec("durable", "hello", 9)); err != nil {
		t.Fatal(err)
	}
	if err := engine.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := newTestSQLite(t, dir)
	defer reopened.Close()

	got, ok, err := reopened.Lookup(ctx, "durable")
	if err != nil || !ok || string(got) != "hello" {
		t.Errorf("Lookup after reopen = %q, %v, %v", got, ok, err)
	}

	stats, err := reopened.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalSize == 0 {
		t.Error("TotalSize should be non-zero for a file-backed database")
	}
}

func TestSQLiteEngine_EmptyValue(t *testing.T) {
	engine := newTestSQLite(t, t.TempDir())
	defer engine.Close()

	ctx := context.Background()
	if err := engine.Upsert(ctx, rec("empty", "", 0)); err != nil {
		t.Fatal(err)
	}
	got, ok, err := engine.Lookup(ctx, "empty")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || got == nil || len(got) != 0 {
		t.Errorf("Lookup() = %v, %v; want empty non-nil value", got, ok)
	}
}

func TestSQLiteEngine_AbsolutePath(t *testing.T) {
	cfg := DefaultConfig("")
	cfg.SQLite.File = filepath.Join(t.TempDir(), "abs.db")

	engine, err := NewSQLiteEngine(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	if engine.path != cfg.SQLite.File {
		t.Errorf("path = %q, want %q", engine.path, cfg.SQLite.File)
	}
}

func TestSQLiteEngine_RelativeWithoutDir(t *testing.T) {
	cfg := DefaultConfig("")
	if _, err := NewSQLiteEngine(cfg, nil); err == nil {
		t.Error("expected error when dir is empty and file is relative")
	}
}

func rec(key, value string, metadata int64) *Record {
	return &Record{Key: key, Metadata: metadata, Length: int64(len(value)), Value: []byte(value)}
}
