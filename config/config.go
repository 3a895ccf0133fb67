package config

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/caasmo/litepool/pool"
)

const (
	DriverZombiezen = "zombiezen"
	DriverCrawshaw  = "crawshaw"

	TopologyAuto   = "auto"
	TopologySingle = "single"
	TopologyMulti  = "multi"

	FormatJSON = "json"
	FormatText = "text"
)

type Config struct {
	Db      Db      `toml:"db"`
	Pool    Pool    `toml:"pool"`
	Cache   Cache   `toml:"cache"`
	Log     Log     `toml:"log"`
	Metrics Metrics `toml:"metrics"`

	// Source is the file the configuration was read from, empty for defaults.
	Source string `toml:"-"`
}

type Db struct {
	Path        string   `toml:"path"`
	Driver      string   `toml:"driver"`
	BusyTimeout Duration `toml:"busy_timeout"`
}

type Pool struct {
	Topology string `toml:"topology"`
	// Readers is only read for the multi topology.
	Readers int `toml:"readers"`
	// BorrowTimeout bounds a single borrow; zero waits until the caller's
	// context is done.
	BorrowTimeout Duration `toml:"borrow_timeout"`
}

// BuildTopology maps the section to a pool topology. pc is consulted for
// "auto".
func (p Pool) BuildTopology(pc pool.ProcessorCounter) pool.Topology {
	switch p.Topology {
	case TopologySingle:
		return pool.Single()
	case TopologyMulti:
		return pool.Multi(p.Readers)
	default:
		return pool.Auto(pc)
	}
}

type Cache struct {
	// Statements is the per-session statement cache capacity, 0 disables it.
	Statements int    `toml:"statements"`
	Order      string `toml:"order"`
	// NormalizeCache is a ristretto size level, empty disables the memo.
	NormalizeCache string `toml:"normalize_cache"`
}

type Log struct {
	Level  LogLevel    `toml:"level"`
	Format string      `toml:"format"`
	Batch  BatchLogger `toml:"batch"`
}

// BatchLogger configures persisting log records to the logs table.
type BatchLogger struct {
	Enabled       bool     `toml:"enabled"`
	FlushSize     int      `toml:"flush_size"`
	ChanSize      int      `toml:"chan_size"`
	FlushInterval Duration `toml:"flush_interval"`
	Level         LogLevel `toml:"level"`
}

type Metrics struct {
	Enabled         bool     `toml:"enabled"`
	Addr            string   `toml:"addr"`
	TopK            int      `toml:"top_k"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// Duration is a time.Duration written as text, e.g. "250ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LogLevel is a slog.Level written as its name, e.g. "debug".
type LogLevel struct {
	slog.Level
}

func (l *LogLevel) UnmarshalText(text []byte) error {
	return l.Level.UnmarshalText([]byte(strings.ToUpper(string(text))))
}

func (l LogLevel) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(l.Level.String())), nil
}

// Provider holds the active configuration. It is safe for concurrent use.
type Provider struct {
	value atomic.Pointer[Config]
}

func NewProvider(cfg *Config) *Provider {
	p := &Provider{}
	p.value.Store(cfg)
	return p
}

func (p *Provider) Get() *Config {
	return p.value.Load()
}

func (p *Provider) Update(cfg *Config) {
	p.value.Store(cfg)
}
