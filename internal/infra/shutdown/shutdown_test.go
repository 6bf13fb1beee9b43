package shutdown

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// waitAsync runs h.Wait in a goroutine.
func waitAsync(ctx context.Context, h *Handler) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait(ctx) }()
	return errCh
}

func result(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Wait() did not return")
		return nil
	}
}

func TestHandler_HooksRunInReverseOrder(t *testing.T) {
	h := NewHandler(time.Second, discardLogger())

	var mu sync.Mutex
	var order []string
	for _, name := range []string{"storage", "memcache", "metrics"} {
		h.OnShutdown(name, func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		})
	}

	h.Trigger()
	if err := h.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if got := strings.Join(order, ","); got != "metrics,memcache,storage" {
		t.Errorf("order = %s, want metrics,memcache,storage", got)
	}
	select {
	case <-h.Done():
	default:
		t.Error("Done() not closed after Wait")
	}
}

func TestHandler_TriggerTwice(t *testing.T) {
	h := NewHandler(time.Second, nil)
	h.Trigger()
	h.Trigger()
	if err := h.Wait(context.Background()); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
}

func TestHandler_ContextCancel(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(time.Second, slog.New(slog.NewTextHandler(&buf, nil)))

	ran := false
	h.OnShutdown("storage", func(context.Context) error { ran = true; return nil })

	ctx, cancel := context.WithCancel(context.Background())
	errCh := waitAsync(ctx, h)
	cancel()

	if err := result(t, errCh); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
	if !ran {
		t.Error("hook did not run after context cancel")
	}
	if !strings.Contains(buf.String(), "reason=\"context canceled\"") {
		t.Errorf("log = %q, want cancel reason", buf.String())
	}
}

func TestHandler_JoinsNamedErrors(t *testing.T) {
	h := NewHandler(time.Second, discardLogger())

	errStorage := errors.New("close failed")
	errListener := errors.New("listener busy")
	calls := 0
	h.OnShutdown("storage", func(context.Context) error { calls++; return errStorage })
	h.OnShutdown("memcache", func(context.Context) error { calls++; return errListener })

	h.Trigger()
	err := h.Wait(context.Background())

	if calls != 2 {
		t.Errorf("hooks run = %d, want 2 despite errors", calls)
	}
	if !errors.Is(err, errStorage) || !errors.Is(err, errListener) {
		t.Fatalf("Wait() error = %v, want both hook errors", err)
	}
	for _, want := range []string{"storage: close failed", "memcache: listener busy"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q lacks %q", err, want)
		}
	}
}

func TestHandler_HookTimeout(t *testing.T) {
	h := NewHandler(50*time.Millisecond, discardLogger())
	h.OnShutdown("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	h.Trigger()
	start := time.Now()
	err := h.Wait(context.Background())

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Wait() took %v, timeout not applied", elapsed)
	}
}

func TestHandler_ConcurrentOnShutdown(t *testing.T) {
	h := NewHandler(time.Second, discardLogger())

	var mu sync.Mutex
	count := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.OnShutdown("hook", func(context.Context) error {
				mu.Lock()
				count++
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	h.Trigger()
	if err := h.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if count != 50 {
		t.Errorf("hooks run = %d, want 50", count)
	}
}

func TestHandler_Signal(t *testing.T) {
	h := NewHandler(time.Second, discardLogger())
	ran := make(chan struct{})
	h.OnShutdown("memcache", func(context.Context) error { close(ran); return nil })

	errCh := waitAsync(context.Background(), h)
	// Let Wait install its signal handler.
	time.Sleep(50 * time.Millisecond)
	_ = syscall.Kill(syscall.Getpid(), syscall.SIGTERM)

	if err := result(t, errCh); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
	select {
	case <-ran:
	default:
		t.Error("hook did not run after SIGTERM")
	}
}

func TestHandler_SecondSignalCancelsHooks(t *testing.T) {
	h := NewHandler(time.Minute, discardLogger())

	started := make(chan struct{})
	h.OnShutdown("drain", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	errCh := waitAsync(context.Background(), h)
	time.Sleep(50 * time.Millisecond)
	_ = syscall.Kill(syscall.Getpid(), syscall.SIGINT)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("hook not started after first signal")
	}
	_ = syscall.Kill(syscall.Getpid(), syscall.SIGINT)

	if err := result(t, errCh); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context canceled", err)
	}
}
