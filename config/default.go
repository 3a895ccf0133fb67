package config

import (
	"log/slog"
	"time"
)

// NewDefaultConfig creates a new Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Db: Db{
			Path:        "litepool.db",
			Driver:      DriverZombiezen,
			BusyTimeout: Duration{Duration: 5 * time.Second},
		},
		Pool: Pool{
			Topology:      TopologyAuto,
			Readers:       4,
			BorrowTimeout: Duration{Duration: 0},
		},
		Cache: Cache{
			Statements:     64,
			Order:          "lru",
			NormalizeCache: "small",
		},
		Log: Log{
			Level:  LogLevel{Level: slog.LevelInfo},
			Format: FormatText,
			Batch: BatchLogger{
				Enabled:       false,
				FlushSize:     100,
				ChanSize:      1000,
				FlushInterval: Duration{Duration: 5 * time.Second},
				Level:         LogLevel{Level: slog.LevelInfo},
			},
		},
		Metrics: Metrics{
			Enabled:         false,
			Addr:            ":9090",
			TopK:            10,
			ShutdownTimeout: Duration{Duration: 5 * time.Second},
		},
	}
}
