package memcache

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestReadLine(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"crlf", "get k\r\n", "get k", nil},
		{"bare lf", "get k\n", "get k", nil},
		{"empty", "\r\n", "", nil},
		{"no terminator", "get k", "", io.EOF},
		{"too long", strings.Repeat("a", 20) + "\r\n", "", ErrLimitExceeded},
		{"at limit", strings.Repeat("a", 14) + "\r\n", strings.Repeat("a", 14), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readLine(bufio.NewReader(strings.NewReader(tt.input)), 16)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("readLine() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("readLine() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("readLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadLine_LongerThanBuffer(t *testing.T) {
	r := bufio.NewReaderSize(strings.NewReader(strings.Repeat("x", 100)+"\r\n"), 16)
	if _, err := readLine(r, 64); !errors.Is(err, ErrLimitExceeded) {
		t.Errorf("readLine() error = %v, want ErrLimitExceeded", err)
	}
}

// payloadReader returns a reader positioned after a set line, so input
// sits in the buffer the way it does when it shares a segment with it.
func payloadReader(t *testing.T, input string) *bufio.Reader {
	t.Helper()
	r := bufio.NewReader(strings.NewReader("set k 0 0 0\r\n" + input))
	if _, err := readLine(r, 64); err != nil {
		t.Fatalf("readLine() error = %v", err)
	}
	return r
}

func TestReadPayload(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		declared int
		want     string
		open     bool
		rest     string
	}{
		{"crlf terminated", "hello\r\n", 5, "hello", false, ""},
		{"followed by command", "hello\r\nget k\r\n", 5, "hello", false, "get k\r\n"},
		{"no terminator", "hello", 5, "hello", true, ""},
		{"bare lf", "hello\n", 5, "hello", false, ""},
		{"empty payload", "\r\n", 0, "", false, ""},
		{"empty payload no terminator", "", 0, "", true, ""},
		{"embedded crlf", "a\r\nb\r\n", 4, "a\r\nb", false, ""},
		{"binary", "\x00\xff\r\x01\r\n", 4, "\x00\xff\r\x01", false, ""},
		{"short segment", "hel\r\n", 5, "hel", false, ""},
		{"short segment lf", "hel\n", 5, "hel", false, ""},
		{"long segment", "hello world\r\nget k\r\n", 5, "hello world", false, "get k\r\n"},
		{"long by one", "hello!\r\n", 5, "hello!", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := payloadReader(t, tt.input)
			got, open, err := readPayload(r, tt.declared, 64)
			if err != nil {
				t.Fatalf("readPayload() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("readPayload() = %q, want %q", got, tt.want)
			}
			if open != tt.open {
				t.Errorf("readPayload() open = %v, want %v", open, tt.open)
			}
			rest, _ := io.ReadAll(r)
			if string(rest) != tt.rest {
				t.Errorf("unread = %q, want %q", rest, tt.rest)
			}
		})
	}
}

func TestReadPayload_Truncated(t *testing.T) {
	// Stream ends mid-payload.
	r := payloadReader(t, "hel")
	if _, _, err := readPayload(r, 5, 64); !errors.Is(err, io.EOF) {
		t.Errorf("readPayload() error = %v, want io.EOF", err)
	}
}

func TestReadPayload_DrainLimit(t *testing.T) {
	r := payloadReader(t, "hello"+strings.Repeat("x", 200)+"\r\n")
	if _, _, err := readPayload(r, 5, 64); !errors.Is(err, ErrLimitExceeded) {
		t.Errorf("readPayload() error = %v, want ErrLimitExceeded", err)
	}
}

func TestWriteHelpers(t *testing.T) {
	var sb strings.Builder
	w := bufio.NewWriter(&sb)

	_ = writeValue(w, []byte("hello"))
	_ = writeLine(w, ReplyEnd)
	_ = w.Flush()

	if sb.String() != "hello\r\nEND\r\n" {
		t.Errorf("output = %q", sb.String())
	}
}
