// Package config defines the server configuration structure.
package config

import "time"

// ServerConfig is the root configuration for memkv-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Storage  StorageSection  `koanf:"storage"`
	Security SecuritySection `koanf:"security"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	Memcache MemcacheConfig `koanf:"memcache"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// MemcacheConfig configures the memcache protocol listener.
type MemcacheConfig struct {
	Addr string `koanf:"addr"`

	// MaxItemSize is the largest set payload accepted, in bytes.
	MaxItemSize int64 `koanf:"max_item_size"`

	// MaxLineLen is the longest command line accepted, in bytes.
	MaxLineLen int `koanf:"max_line_len"`

	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`

	// RateLimit is commands per second per client IP. 0 disables it.
	RateLimit int `koanf:"rate_limit"`
}

// MetricsConfig configures the metrics/health HTTP listener.
type MetricsConfig struct {
	// Addr is the listen address. Empty disables the listener.
	Addr string `koanf:"addr"`
}

// StorageSection configures storage behavior.
type StorageSection struct {
	// Engine selects the backend: "badger" or "sqlite".
	Engine  string `koanf:"engine"`
	DataDir string `koanf:"data_dir"`

	// SyncWrites fsyncs every committed write (Badger).
	SyncWrites bool `koanf:"sync_writes"`

	// GCInterval is the Badger value log GC period.
	GCInterval time.Duration `koanf:"gc_interval"`

	// SQLiteFile is the database file, relative to DataDir unless absolute.
	SQLiteFile string `koanf:"sqlite_file"`
}

// SecuritySection configures security settings.
type SecuritySection struct {
	// EncryptionKey enables Badger at-rest encryption (16, 24 or 32 bytes).
	EncryptionKey string `koanf:"encryption_key"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
