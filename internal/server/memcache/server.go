package memcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/memkv-go/internal/storage"
	"github.com/yndnr/memkv-go/internal/telemetry/logger"
	"github.com/yndnr/memkv-go/internal/telemetry/metric"
)

// Config holds the memcache server configuration.
type Config struct {
	// Address is the TCP listen address.
	Address string
	// MaxItemSize is the largest set payload accepted, in bytes.
	MaxItemSize int64
	// MaxLineLen is the longest command line accepted, terminator included.
	// A longer line gets ERROR and the connection is closed.
	MaxLineLen int
	// ReadTimeout bounds reading one command line or payload once its
	// first byte has arrived (default: 30s).
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing a response (default: 30s).
	WriteTimeout time.Duration
	// IdleTimeout is the timeout for idle connections (default: 5m).
	IdleTimeout time.Duration
	// RateLimit is the maximum number of commands per second per IP.
	// 0 disables rate limiting.
	RateLimit int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:      "0.0.0.0:11211",
		MaxItemSize:  DefaultMaxItemSize,
		MaxLineLen:   DefaultMaxLineLen,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  5 * time.Minute,
		RateLimit:    0,
	}
}

// Server accepts memcache connections. It holds no protocol state; each
// connection gets its own Conn sharing one storage.Engine.
type Server struct {
	cfg     *Config
	handler *CommandHandler
	metrics *metric.Registry
	logger  *slog.Logger

	mu      sync.Mutex
	ln      net.Listener
	conns   map[*Conn]struct{}
	running atomic.Bool
	wg      sync.WaitGroup
}

// New creates a new memcache server. metrics may be nil.
func New(cfg *Config, engine storage.Engine, metrics *metric.Registry, log *slog.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = slog.Default()
	}
	log = logger.WithContextIDs(log)

	return &Server{
		cfg:     cfg,
		handler: NewCommandHandler(engine, cfg.RateLimit, metrics, log),
		metrics: metrics,
		logger:  log,
		conns:   make(map[*Conn]struct{}),
	}
}

// Start binds the listen address and serves connections in the
// background. Bind errors are returned synchronously.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("memcache: listen %s: %w", s.cfg.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves connections accepted on ln in the background.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.ln != nil {
		s.mu.Unlock()
		return errors.New("memcache: server already started")
	}
	s.ln = ln
	s.mu.Unlock()

	s.running.Store(true)
	s.logger.Info("memcache server listening", "address", ln.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.acceptLoop(ctx, ln); err != nil && s.running.Load() {
			s.logger.Error("memcache accept loop error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops accepting, closes open connections and waits for their
// goroutines. A payload being collected is discarded.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var firstErr error

	s.mu.Lock()
	if s.ln != nil {
		if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			firstErr = err
		}
	}
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return firstErr
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		nc, err := ln.Accept()
		if err != nil {
			if !s.running.Load() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return err
		}

		c := newConn(nc, logger.NewConnID())
		if !s.track(c) {
			_ = c.Close()
			return nil
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(c)
			s.serveConn(ctx, c)
		}()
	}
}

func (s *Server) track(c *Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running.Load() {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) untrack(c *Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

func (s *Server) serveConn(ctx context.Context, c *Conn) {
	defer c.Close()

	s.metrics.ConnOpened()
	defer s.metrics.ConnClosed()

	ctx = logger.WithConnID(ctx, c.ID())

	s.logger.DebugContext(ctx, "connection opened", "remote", c.RemoteAddr())
	defer s.logger.DebugContext(ctx, "connection closed", "remote", c.RemoteAddr())

	readTimeout := s.cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout := s.cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 30 * time.Second
	}
	idleTimeout := s.cfg.IdleTimeout
	if idleTimeout == 0 {
		idleTimeout = 5 * time.Minute
	}
	maxLineLen := s.cfg.MaxLineLen
	if maxLineLen <= 0 {
		maxLineLen = DefaultMaxLineLen
	}
	maxItemSize := s.cfg.MaxItemSize
	if maxItemSize <= 0 {
		maxItemSize = DefaultMaxItemSize
	}

	for {
		switch c.state {
		case stateAwaitingCommandLine:
			// Idle between commands.
			if err := c.netConn.SetReadDeadline(time.Now().Add(idleTimeout)); err != nil {
				return
			}
			if _, err := c.br.Peek(1); err != nil {
				s.readFailed(ctx, c, err)
				return
			}

			if err := c.netConn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
				return
			}
			line, err := readLine(c.br, maxLineLen)
			if err != nil {
				if errors.Is(err, ErrLimitExceeded) {
					s.logger.WarnContext(ctx, "protocol limit exceeded", "remote", c.RemoteAddr(), "error", err)
					_ = c.netConn.SetWriteDeadline(time.Now().Add(writeTimeout))
					_ = writeLine(c.bw, ReplyError)
					_ = c.bw.Flush()
					return
				}
				s.readFailed(ctx, c, err)
				return
			}

			if c.skipLateTerminator(line) {
				continue
			}
			s.handler.Dispatch(ctx, c, ParseCommand(line, maxItemSize))

		case stateAwaitingPayload:
			if err := c.netConn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
				return
			}
			payload, open, err := readPayload(c.br, int(c.pending.Length), maxLineLen)
			if err != nil {
				if errors.Is(err, ErrLimitExceeded) {
					s.logger.WarnContext(ctx, "protocol limit exceeded", "remote", c.RemoteAddr(), "error", err)
					_ = c.netConn.SetWriteDeadline(time.Now().Add(writeTimeout))
					_ = writeLine(c.bw, ReplyBadChunk)
					_ = writeLine(c.bw, ReplyError)
					_ = c.bw.Flush()
					return
				}
				// Partial payload is dropped with the connection.
				s.readFailed(ctx, c, err)
				return
			}

			c.owesTerminator = open
			s.handler.CompleteSet(ctx, c, payload)
		}

		if c.bw.Buffered() == 0 {
			continue
		}
		if err := c.netConn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return
		}
		if err := c.bw.Flush(); err != nil {
			return
		}
	}
}

func (s *Server) readFailed(ctx context.Context, c *Conn, err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		s.logger.DebugContext(ctx, "connection timed out", "remote", c.RemoteAddr(), "state", c.state)
		return
	}
	s.logger.DebugContext(ctx, "connection read error", "remote", c.RemoteAddr(), "error", err)
}
