package memcache

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
)

// Protocol limits.
const (
	// DefaultMaxLineLen limits a command line, terminator included.
	DefaultMaxLineLen = 2048

	// DefaultMaxItemSize limits a declared set payload (1 MiB).
	DefaultMaxItemSize = 1 << 20
)

// Reply lines.
const (
	ReplyStored      = "STORED"
	ReplyError       = "ERROR"
	ReplyBadChunk    = "CLIENT_ERROR bad data chunk"
	ReplyDeleted     = "DELETED"
	ReplyEnd         = "END"
	ReplyRateLimited = "SERVER_ERROR rate limit exceeded"
)

var (
	ErrLimitExceeded = errors.New("memcache: limit exceeded")
)

var crlf = []byte("\r\n")

// readLine reads one line and strips its terminator. CRLF is the wire
// terminator; a bare LF is tolerated.
func readLine(r *bufio.Reader, maxLen int) ([]byte, error) {
	buf, err := readRawLine(r, maxLen)
	if err != nil {
		return nil, err
	}
	return trimTerminator(buf), nil
}

// readRawLine reads through the next '\n', keeping it.
func readRawLine(r *bufio.Reader, maxLen int) ([]byte, error) {
	var buf []byte
	for {
		frag, err := r.ReadSlice('\n')
		if err == nil {
			buf = append(buf, frag...)
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			buf = append(buf, frag...)
			if len(buf) > maxLen {
				return nil, fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, maxLen)
			}
			continue
		}
		return nil, err
	}

	if len(buf) > maxLen {
		return nil, fmt.Errorf("%w: line length exceeds limit %d", ErrLimitExceeded, maxLen)
	}
	return buf, nil
}

func trimTerminator(b []byte) []byte {
	b = bytes.TrimSuffix(b, []byte{'\n'})
	return bytes.TrimSuffix(b, []byte{'\r'})
}

// readPayload collects a set payload of declared bytes. The returned
// slice has the terminator stripped; its length differs from declared
// when the client sent a short or long segment.
//
// A CRLF seen before declared+2 bytes ends the segment only when the
// client has nothing more buffered, so payloads may contain CRLF. A
// payload of exactly declared bytes needs no terminator; open reports
// that one may still follow in a later segment.
func readPayload(r *bufio.Reader, declared int, maxLineLen int) (payload []byte, open bool, err error) {
	limit := declared + 2
	buf := make([]byte, 0, limit)

	for len(buf) < limit {
		if len(buf) == declared && r.Buffered() == 0 {
			return buf, true, nil
		}
		b, err := r.ReadByte()
		if err != nil {
			return nil, false, err
		}
		buf = append(buf, b)

		if b != '\n' || r.Buffered() > 0 || len(buf) == limit {
			continue
		}
		switch {
		case bytes.HasSuffix(buf, crlf):
			return buf[:len(buf)-2], false, nil
		case len(buf) == declared+1:
			// Bare LF terminator.
			return buf[:declared], false, nil
		default:
			return buf[:len(buf)-1], false, nil
		}
	}

	if bytes.HasSuffix(buf, crlf) {
		return buf[:declared], false, nil
	}
	// Too long: drain the rest of the segment.
	if buf[len(buf)-1] != '\n' {
		rest, err := readRawLine(r, maxLineLen)
		if err != nil {
			return nil, false, err
		}
		buf = append(buf, rest...)
	}
	return trimTerminator(buf), false, nil
}

func writeLine(w *bufio.Writer, s string) error {
	if _, err := w.WriteString(s); err != nil {
		return err
	}
	_, err := w.Write(crlf)
	return err
}

func writeValue(w *bufio.Writer, v []byte) error {
	if _, err := w.Write(v); err != nil {
		return err
	}
	_, err := w.Write(crlf)
	return err
}
