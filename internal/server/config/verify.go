// Package config defines the server configuration structure.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
)

// minLineLen fits the longest well-formed command with a short key.
const minLineLen = 64

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage, &cfg.Security); err != nil {
		return err
	}
	if err := verifyLog(&cfg.Log); err != nil {
		return err
	}
	return nil
}

func verifyServer(cfg *ServerSection) error {
	mc := &cfg.Memcache
	if err := verifyAddr("server.memcache.addr", mc.Addr); err != nil {
		return err
	}
	if mc.MaxItemSize <= 0 {
		return errors.New("server.memcache.max_item_size must be positive")
	}
	if mc.MaxLineLen < minLineLen {
		return fmt.Errorf("server.memcache.max_line_len must be at least %d", minLineLen)
	}
	if mc.ReadTimeout < 0 || mc.WriteTimeout < 0 || mc.IdleTimeout < 0 {
		return errors.New("server.memcache timeouts must not be negative")
	}
	if mc.RateLimit < 0 {
		return errors.New("server.memcache.rate_limit must not be negative")
	}

	if cfg.Metrics.Addr != "" {
		if err := verifyAddr("server.metrics.addr", cfg.Metrics.Addr); err != nil {
			return err
		}
		if cfg.Metrics.Addr == mc.Addr {
			return errors.New("server.metrics.addr conflicts with server.memcache.addr")
		}
	}
	return nil
}

func verifyAddr(name, addr string) error {
	if addr == "" {
		return fmt.Errorf("%s is required", name)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func verifyStorage(cfg *StorageSection, sec *SecuritySection) error {
	switch strings.ToLower(cfg.Engine) {
	case "badger":
		switch len(sec.EncryptionKey) {
		case 0, 16, 24, 32:
		default:
			return errors.New("security.encryption_key must be 16, 24 or 32 bytes")
		}
	case "sqlite":
		if sec.EncryptionKey != "" {
			return errors.New("security.encryption_key is not supported by the sqlite engine")
		}
		if cfg.SQLiteFile == "" {
			return errors.New("storage.sqlite_file is required")
		}
	default:
		return fmt.Errorf("storage.engine %q is not supported (badger, sqlite)", cfg.Engine)
	}

	if cfg.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}

	// Check if data directory exists or can be created
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return errors.New("cannot create data directory: " + err.Error())
	}

	if cfg.GCInterval < 0 {
		return errors.New("storage.gc_interval must not be negative")
	}

	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not supported", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "", "json", "text", "console":
	default:
		return fmt.Errorf("log.format %q is not supported", cfg.Format)
	}
	return nil
}
