// Package config defines the server configuration structure.
package config

import "time"

// Default configuration values.
const (
	DefaultMemcacheAddr = "0.0.0.0:11211"
	DefaultMaxItemSize  = 1 << 20
	DefaultMaxLineLen   = 2048
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 5 * time.Minute

	DefaultEngine     = "badger"
	DefaultDataDir    = "/var/lib/memkv/data"
	DefaultGCInterval = 10 * time.Minute
	DefaultSQLiteFile = "memkv.db"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Memcache: MemcacheConfig{
				Addr:         DefaultMemcacheAddr,
				MaxItemSize:  DefaultMaxItemSize,
				MaxLineLen:   DefaultMaxLineLen,
				ReadTimeout:  DefaultReadTimeout,
				WriteTimeout: DefaultWriteTimeout,
				IdleTimeout:  DefaultIdleTimeout,
			},
		},
		Storage: StorageSection{
			Engine:     DefaultEngine,
			DataDir:    DefaultDataDir,
			SyncWrites: true,
			GCInterval: DefaultGCInterval,
			SQLiteFile: DefaultSQLiteFile,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
