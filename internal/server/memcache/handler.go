package memcache

import (
	"context"
	"log/slog"
	"time"

	"github.com/yndnr/memkv-go/internal/storage"
	"github.com/yndnr/memkv-go/internal/telemetry/logger"
	"github.com/yndnr/memkv-go/internal/telemetry/metric"
)

// CommandHandler executes parsed commands against the shared engine.
type CommandHandler struct {
	engine      storage.Engine
	logger      *slog.Logger
	metrics     *metric.Registry
	rateLimiter *rateLimiter
}

// NewCommandHandler creates a new CommandHandler. metrics may be nil.
func NewCommandHandler(engine storage.Engine, rateLimit int, metrics *metric.Registry, log *slog.Logger) *CommandHandler {
	if log == nil {
		log = slog.Default()
	}

	var rl *rateLimiter
	if rateLimit > 0 {
		rl = newRateLimiter(rateLimit)
	}

	return &CommandHandler{
		engine:      engine,
		logger:      logger.WithContextIDs(log),
		metrics:     metrics,
		rateLimiter: rl,
	}
}

// Dispatch runs one command read in stateAwaitingCommandLine. A valid
// set only switches the connection to stateAwaitingPayload; the store
// happens in CompleteSet.
func (h *CommandHandler) Dispatch(ctx context.Context, conn *Conn, cmd Command) {
	start := time.Now()

	switch cmd := cmd.(type) {
	case *GetCommand:
		h.observe(cmd.Name(), h.handleGet(ctx, conn, cmd), start)
	case *DeleteCommand:
		h.observe(cmd.Name(), h.handleDelete(ctx, conn, cmd), start)
	case *SetCommand:
		conn.beginPayload(cmd)
	case *UnknownCommand:
		h.logger.DebugContext(ctx, "rejected command", "verb", cmd.Verb, "reason", cmd.Reason)
		_ = writeLine(conn.bw, ReplyError)
		h.observe(commandLabel(cmd), metric.ResultProtocol, start)
	default:
		_ = writeLine(conn.bw, ReplyError)
		h.observe("unknown", metric.ResultProtocol, start)
	}
}

// CompleteSet finishes the pending set with the collected payload and
// returns the connection to stateAwaitingCommandLine.
func (h *CommandHandler) CompleteSet(ctx context.Context, conn *Conn, payload []byte) {
	start := time.Now()
	cmd := conn.endPayload()
	if cmd == nil {
		_ = writeLine(conn.bw, ReplyError)
		return
	}

	if int64(len(payload)) != cmd.Length {
		h.logger.DebugContext(ctx, "payload length mismatch",
			"key", cmd.Key,
			"declared", cmd.Length,
			"received", len(payload),
		)
		_ = writeLine(conn.bw, ReplyBadChunk)
		_ = writeLine(conn.bw, ReplyError)
		h.observe(cmd.Name(), metric.ResultBadChunk, start)
		return
	}

	if !h.allow(conn) {
		h.observe(cmd.Name(), metric.ResultRateLimited, start)
		return
	}

	rec := &storage.Record{
		Key:      cmd.Key,
		Metadata: cmd.Metadata,
		Length:   cmd.Length,
		Value:    payload,
	}
	if err := h.engine.Upsert(ctx, rec); err != nil {
		h.storageFailed(ctx, conn, "upsert", cmd.Key, err)
		h.observe(cmd.Name(), metric.ResultStorage, start)
		return
	}

	_ = writeLine(conn.bw, ReplyStored)
	h.observe(cmd.Name(), metric.ResultOK, start)
}

func (h *CommandHandler) handleGet(ctx context.Context, conn *Conn, cmd *GetCommand) string {
	if !h.allow(conn) {
		return metric.ResultRateLimited
	}

	value, found, err := h.engine.Lookup(ctx, cmd.Key)
	if err != nil {
		h.storageFailed(ctx, conn, "lookup", cmd.Key, err)
		return metric.ResultStorage
	}

	if found {
		_ = writeValue(conn.bw, value)
	}
	_ = writeLine(conn.bw, ReplyEnd)

	if !found {
		return metric.ResultMiss
	}
	return metric.ResultOK
}

func (h *CommandHandler) handleDelete(ctx context.Context, conn *Conn, cmd *DeleteCommand) string {
	if !h.allow(conn) {
		return metric.ResultRateLimited
	}

	if err := h.engine.Delete(ctx, cmd.Key); err != nil {
		h.storageFailed(ctx, conn, "delete", cmd.Key, err)
		return metric.ResultStorage
	}

	_ = writeLine(conn.bw, ReplyDeleted)
	return metric.ResultOK
}

// allow applies the per-IP rate limit and writes the rejection reply.
func (h *CommandHandler) allow(conn *Conn) bool {
	if h.rateLimiter.allow(conn.remoteIP()) {
		return true
	}
	_ = writeLine(conn.bw, ReplyRateLimited)
	return false
}

// storageFailed logs a failed transaction and replies ERROR. The
// connection stays open.
func (h *CommandHandler) storageFailed(ctx context.Context, conn *Conn, op, key string, err error) {
	h.logger.ErrorContext(ctx, "storage operation failed", "op", op, "key", key, "error", err)
	h.metrics.IncStorageError(op)
	_ = writeLine(conn.bw, ReplyError)
}

func (h *CommandHandler) observe(command, result string, start time.Time) {
	h.metrics.ObserveCommand(command, result, time.Since(start))
}

// commandLabel keeps the metric label set bounded: malformed get, set
// and delete lines are counted under their verb, everything else under
// "unknown".
func commandLabel(cmd *UnknownCommand) string {
	switch cmd.Verb {
	case "get", "set", "delete":
		return cmd.Verb
	default:
		return cmd.Name()
	}
}
