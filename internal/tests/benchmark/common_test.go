package benchmark

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/memkv-go/internal/storage"
)

// RecordCounts defines the store sizes used by read benchmarks.
var RecordCounts = []int{1000, 10000, 50000}

// ValueSizes defines the payload sizes used by write benchmarks.
var ValueSizes = []int{16, 1024, 64 * 1024}

// Engines lists the backends every storage benchmark runs against.
var Engines = []string{storage.EngineBadger, storage.EngineSQLite}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newKey generates a unique, time-ordered key.
func newKey() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, _ := ulid.New(ulid.Timestamp(time.Now()), entropy)
	return "bench-" + strings.ToLower(id.String())
}

// newRecord creates a record with a value of size bytes.
func newRecord(key string, size int) *storage.Record {
	value := make([]byte, size)
	for i := range value {
		value[i] = byte('a' + i%26)
	}
	return &storage.Record{Key: key, Metadata: 0, Length: int64(size), Value: value}
}

// openEngine opens and bootstraps engine in a temporary directory.
// Writes are not fsynced so the numbers measure the engine, not the disk.
func openEngine(b *testing.B, engine string) storage.Engine {
	b.Helper()
	cfg := storage.DefaultConfig(b.TempDir())
	cfg.Engine = engine
	cfg.Badger.SyncWrites = false
	cfg.Badger.GCInterval = "1h"

	e, err := storage.Open(cfg, discardLogger())
	if err != nil {
		b.Fatalf("storage.Open(%s) failed: %v", engine, err)
	}
	if err := e.Bootstrap(context.Background()); err != nil {
		b.Fatalf("Bootstrap failed: %v", err)
	}
	b.Cleanup(func() { e.Close() })
	return e
}

// prefill writes count records and returns their keys.
func prefill(b *testing.B, e storage.Engine, count, size int) []string {
	b.Helper()
	ctx := context.Background()
	keys := make([]string, count)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%08d", i)
		if err := e.Upsert(ctx, newRecord(keys[i], size)); err != nil {
			b.Fatalf("prefill Upsert failed: %v", err)
		}
	}
	return keys
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithEngines runs a benchmark function against every engine.
func runWithEngines(b *testing.B, benchFn func(b *testing.B, engine string)) {
	for _, engine := range Engines {
		b.Run(engine, func(b *testing.B) {
			benchFn(b, engine)
		})
	}
}
