package benchmark

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/yndnr/memkv-go/internal/storage"
)

// BenchmarkStorageUpsert benchmarks single-record writes by value size.
func BenchmarkStorageUpsert(b *testing.B) {
	runWithEngines(b, func(b *testing.B, engine string) {
		for _, size := range ValueSizes {
			b.Run(fmt.Sprintf("value_%d", size), func(b *testing.B) {
				e := openEngine(b, engine)
				ctx := context.Background()
				rec := newRecord("", size)

				b.SetBytes(int64(size))
				b.ResetTimer()
				b.ReportAllocs()

				for i := 0; i < b.N; i++ {
					rec.Key = fmt.Sprintf("key-%d", i)
					if err := e.Upsert(ctx, rec); err != nil {
						b.Fatalf("Upsert failed: %v", err)
					}
				}
			})
		}
	})
}

// BenchmarkStorageOverwrite benchmarks repeated writes to one key.
func BenchmarkStorageOverwrite(b *testing.B) {
	runWithEngines(b, func(b *testing.B, engine string) {
		e := openEngine(b, engine)
		ctx := context.Background()
		rec := newRecord(newKey(), 128)

		b.ResetTimer()
		b.ReportAllocs()

		for i := 0; i < b.N; i++ {
			rec.Metadata = int64(i)
			if err := e.Upsert(ctx, rec); err != nil {
				b.Fatalf("Upsert failed: %v", err)
			}
		}
	})
}

// BenchmarkStorageLookup benchmarks point reads against stores of
// increasing size.
func BenchmarkStorageLookup(b *testing.B) {
	runWithEngines(b, func(b *testing.B, engine string) {
		for _, count := range RecordCounts {
			b.Run(fmt.Sprintf("records_%d", count), func(b *testing.B) {
				e := openEngine(b, engine)
				keys := prefill(b, e, count, 128)
				ctx := context.Background()

				b.ResetTimer()
				b.ReportAllocs()

				for i := 0; i < b.N; i++ {
					if _, ok, err := e.Lookup(ctx, keys[i%len(keys)]); err != nil || !ok {
						b.Fatalf("Lookup failed: ok=%v err=%v", ok, err)
					}
				}
			})
		}
	})
}

// BenchmarkStorageLookupMiss benchmarks reads of absent keys.
func BenchmarkStorageLookupMiss(b *testing.B) {
	runWithEngines(b, func(b *testing.B, engine string) {
		e := openEngine(b, engine)
		prefill(b, e, 1000, 128)
		ctx := context.Background()

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, ok, err := e.Lookup(ctx, "absent"); err != nil || ok {
				b.Fatalf("Lookup(absent): ok=%v err=%v", ok, err)
			}
		}
	})
}

// BenchmarkStorageParallelUpsert benchmarks concurrent writers on
// distinct keys, the load pattern of many client connections.
func BenchmarkStorageParallelUpsert(b *testing.B) {
	runWithEngines(b, func(b *testing.B, engine string) {
		e := openEngine(b, engine)
		ctx := context.Background()
		var seq atomic.Int64

		b.ResetTimer()
		b.ReportAllocs()

		b.RunParallel(func(pb *testing.PB) {
			rec := newRecord("", 128)
			for pb.Next() {
				rec.Key = fmt.Sprintf("key-%d", seq.Add(1))
				if err := e.Upsert(ctx, rec); err != nil {
					b.Errorf("Upsert failed: %v", err)
					return
				}
			}
		})
	})
}

// BenchmarkStorageScan benchmarks a full dump, the work done by show.
func BenchmarkStorageScan(b *testing.B) {
	runWithEngines(b, func(b *testing.B, engine string) {
		e := openEngine(b, engine)
		prefill(b, e, 10000, 64)
		ctx := context.Background()

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			n := 0
			if err := e.Scan(ctx, func(_ *storage.Record) bool { n++; return true }); err != nil {
				b.Fatalf("Scan failed: %v", err)
			}
			if n != 10000 {
				b.Fatalf("Scan visited %d records, want 10000", n)
			}
		}
		reportMemory(b, "scan")
	})
}
