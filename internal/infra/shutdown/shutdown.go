package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

type hook struct {
	name string
	fn   func(context.Context) error
}

// Handler runs cleanup hooks once the process is asked to stop.
type Handler struct {
	timeout time.Duration
	log     *slog.Logger

	mu    sync.Mutex
	hooks []hook

	trigger     chan struct{}
	triggerOnce sync.Once
	done        chan struct{}
}

// NewHandler creates a handler giving hooks timeout to finish. log may
// be nil.
func NewHandler(timeout time.Duration, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		timeout: timeout,
		log:     log,
		trigger: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// OnShutdown registers fn under name. Hooks run in reverse order of
// registration; a failing hook does not stop the others.
func (h *Handler) OnShutdown(name string, fn func(context.Context) error) {
	h.mu.Lock()
	h.hooks = append(h.hooks, hook{name: name, fn: fn})
	h.mu.Unlock()
}

// Trigger starts shutdown without a signal. Safe to call more than once.
func (h *Handler) Trigger() {
	h.triggerOnce.Do(func() { close(h.trigger) })
}

// Wait blocks until SIGINT or SIGTERM arrives, Trigger is called or ctx
// ends, then runs the hooks within the timeout. A second signal while
// hooks run cancels their context. Hook errors are joined.
func (h *Handler) Wait(ctx context.Context) error {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var reason string
	select {
	case sig := <-sigCh:
		reason = "signal " + sig.String()
	case <-h.trigger:
		reason = "triggered"
	case <-ctx.Done():
		reason = ctx.Err().Error()
	}
	h.log.Info("shutdown started", "reason", reason, "timeout", h.timeout)

	hookCtx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case sig := <-sigCh:
			h.log.Warn("second signal, abandoning graceful shutdown", "signal", sig.String())
			cancel()
		case <-finished:
		}
	}()

	return h.run(hookCtx)
}

func (h *Handler) run(ctx context.Context) error {
	h.mu.Lock()
	hooks := append([]hook(nil), h.hooks...)
	h.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i].fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", hooks[i].name, err))
		}
	}

	close(h.done)
	return errors.Join(errs...)
}

// Done is closed once every hook has returned.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}
