// Package config defines the server configuration structure.
package config

import "strings"

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for logging configuration without exposing secrets.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	if sanitized.Security.EncryptionKey != "" {
		sanitized.Security.EncryptionKey = maskSecret(sanitized.Security.EncryptionKey)
	}

	return &sanitized
}

// LogAttrs returns the startup-relevant settings as slog key/value pairs,
// secrets masked.
func LogAttrs(cfg *ServerConfig) []any {
	s := Sanitize(cfg)
	return []any{
		"memcache_addr", s.Server.Memcache.Addr,
		"metrics_addr", s.Server.Metrics.Addr,
		"max_item_size", s.Server.Memcache.MaxItemSize,
		"rate_limit", s.Server.Memcache.RateLimit,
		"engine", s.Storage.Engine,
		"data_dir", s.Storage.DataDir,
		"encrypted", s.Security.EncryptionKey != "",
		"log_level", s.Log.Level,
	}
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
