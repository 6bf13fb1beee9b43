package memcache

import (
	"bufio"
	"net"
	"sync/atomic"
)

// connState is the protocol state of one connection.
type connState int

const (
	stateAwaitingCommandLine connState = iota
	stateAwaitingPayload
)

func (s connState) String() string {
	switch s {
	case stateAwaitingCommandLine:
		return "awaiting_command_line"
	case stateAwaitingPayload:
		return "awaiting_payload"
	default:
		return "invalid"
	}
}

// Conn is a single client connection. It is owned by one goroutine and
// its protocol state is never shared.
type Conn struct {
	netConn net.Conn
	br      *bufio.Reader
	bw      *bufio.Writer

	id string

	state   connState
	pending *SetCommand

	// owesTerminator is set when a payload was accepted before its
	// optional CRLF arrived; one empty line is then swallowed.
	owesTerminator bool

	closed atomic.Bool
}

func newConn(c net.Conn, id string) *Conn {
	return &Conn{
		netConn: c,
		br:      bufio.NewReader(c),
		bw:      bufio.NewWriter(c),
		id:      id,
		state:   stateAwaitingCommandLine,
	}
}

// Close closes the underlying connection. Safe to call more than once.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.netConn.Close()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

// ID returns the connection identifier stamped on log entries.
func (c *Conn) ID() string {
	return c.id
}

// beginPayload moves to stateAwaitingPayload for a validated set.
func (c *Conn) beginPayload(cmd *SetCommand) {
	c.pending = cmd
	c.state = stateAwaitingPayload
}

// endPayload returns to stateAwaitingCommandLine and hands back the
// pending set.
func (c *Conn) endPayload() *SetCommand {
	cmd := c.pending
	c.pending = nil
	c.state = stateAwaitingCommandLine
	return cmd
}

// skipLateTerminator reports whether line is the trailing CRLF of a
// payload accepted earlier. The debt is cleared either way.
func (c *Conn) skipLateTerminator(line []byte) bool {
	if !c.owesTerminator {
		return false
	}
	c.owesTerminator = false
	return len(line) == 0
}

// remoteIP returns the client IP without port.
func (c *Conn) remoteIP() string {
	addr := c.RemoteAddr()
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
