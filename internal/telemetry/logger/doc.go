// Package logger provides structured logging for memkv on top of
// log/slog.
//
//   - logger.go: handler construction and the process-wide level
//   - context.go: connection and request IDs carried through context
//   - redact.go: secret masking and payload truncation
package logger
