package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestContextIDs(t *testing.T) {
	ctx := context.Background()
	if ConnIDFromContext(ctx) != "" || RequestIDFromContext(ctx) != "" {
		t.Fatal("empty context should carry no ids")
	}

	ctx = WithConnID(ctx, "conn-abc")
	ctx = WithRequestID(ctx, "req-abc")
	if got := ConnIDFromContext(ctx); got != "conn-abc" {
		t.Errorf("ConnIDFromContext() = %q", got)
	}
	if got := RequestIDFromContext(ctx); got != "req-abc" {
		t.Errorf("RequestIDFromContext() = %q", got)
	}
}

func TestNewIDs(t *testing.T) {
	tests := []struct {
		name   string
		gen    func() string
		prefix string
	}{
		{"conn", NewConnID, ConnIDPrefix},
		{"request", NewRequestID, RequestIDPrefix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := tt.gen(), tt.gen()
			if a == b {
				t.Errorf("duplicate id %q", a)
			}
			if !strings.HasPrefix(a, tt.prefix) {
				t.Errorf("id %q lacks prefix %q", a, tt.prefix)
			}
			// prefix + 26 char ULID
			if len(a) != len(tt.prefix)+26 {
				t.Errorf("len(%q) = %d, want %d", a, len(a), len(tt.prefix)+26)
			}
			if a != strings.ToLower(a) {
				t.Errorf("id %q not lowercase", a)
			}
		})
	}
}

func TestWithContextIDs(t *testing.T) {
	var buf bytes.Buffer
	plain := slog.New(slog.NewTextHandler(&buf, nil))

	l := WithContextIDs(plain)
	if WithContextIDs(l) != l {
		t.Error("WithContextIDs should not wrap twice")
	}

	l.WithGroup("req").InfoContext(WithConnID(context.Background(), "conn-9"), "accepted")
	if !strings.Contains(buf.String(), "conn_id=conn-9") {
		t.Errorf("output = %q, want conn_id", buf.String())
	}
}
