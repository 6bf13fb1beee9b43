package logger

import (
	"context"
	"crypto/rand"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"
)

type ctxKey int

const (
	connIDKey ctxKey = iota
	requestIDKey
)

// ID prefixes.
const (
	ConnIDPrefix    = "conn-"
	RequestIDPrefix = "req-"
)

// NewConnID returns a fresh, time-ordered connection identifier.
func NewConnID() string {
	return newID(ConnIDPrefix)
}

// NewRequestID returns a fresh, time-ordered HTTP request identifier.
func NewRequestID() string {
	return newID(RequestIDPrefix)
}

func newID(prefix string) string {
	id, err := ulid.New(ulid.Now(), rand.Reader)
	if err != nil {
		id = ulid.Make()
	}
	return prefix + strings.ToLower(id.String())
}

// WithConnID returns ctx carrying a connection ID.
func WithConnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, connIDKey, id)
}

// ConnIDFromContext returns the connection ID carried by ctx, or "".
func ConnIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(connIDKey).(string)
	return id
}

// WithRequestID returns ctx carrying an HTTP request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request ID carried by ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// contextHandler adds conn_id and request_id attributes from the
// context passed to the *Context logging methods.
type contextHandler struct {
	slog.Handler
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if id := ConnIDFromContext(ctx); id != "" {
			r.AddAttrs(slog.String("conn_id", id))
		}
		if id := RequestIDFromContext(ctx); id != "" {
			r.AddAttrs(slog.String("request_id", id))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name)}
}

// WithContextIDs returns l stamping conn_id and request_id from the
// call context. Loggers from New already do.
func WithContextIDs(l *slog.Logger) *slog.Logger {
	if _, ok := l.Handler().(*contextHandler); ok {
		return l
	}
	return slog.New(&contextHandler{Handler: l.Handler()})
}
