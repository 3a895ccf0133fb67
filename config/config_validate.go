package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/caasmo/litepool/cache/ristretto"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid")

// Validate checks every section. It normalizes the metrics address in place.
func Validate(cfg *Config) error {
	if err := validateDb(&cfg.Db); err != nil {
		return fmt.Errorf("%w: db: %w", ErrInvalid, err)
	}
	if err := validatePool(&cfg.Pool); err != nil {
		return fmt.Errorf("%w: pool: %w", ErrInvalid, err)
	}
	if err := validateCache(&cfg.Cache); err != nil {
		return fmt.Errorf("%w: cache: %w", ErrInvalid, err)
	}
	if err := validateLog(&cfg.Log); err != nil {
		return fmt.Errorf("%w: log: %w", ErrInvalid, err)
	}
	if err := validateMetrics(&cfg.Metrics); err != nil {
		return fmt.Errorf("%w: metrics: %w", ErrInvalid, err)
	}
	return nil
}

func validateDb(db *Db) error {
	if db.Path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	switch db.Driver {
	case DriverZombiezen, DriverCrawshaw:
	default:
		return fmt.Errorf("unknown driver %q", db.Driver)
	}
	if db.BusyTimeout.Duration < 0 {
		return fmt.Errorf("busy_timeout cannot be negative")
	}
	return nil
}

func validatePool(p *Pool) error {
	switch p.Topology {
	case TopologyAuto, TopologySingle:
	case TopologyMulti:
		if p.Readers < 1 {
			return fmt.Errorf("multi topology needs at least one reader, got %d", p.Readers)
		}
	default:
		return fmt.Errorf("unknown topology %q", p.Topology)
	}
	if p.BorrowTimeout.Duration < 0 {
		return fmt.Errorf("borrow_timeout cannot be negative")
	}
	return nil
}

func validateCache(c *Cache) error {
	if c.Statements < 0 {
		return fmt.Errorf("statements cannot be negative")
	}
	switch c.Order {
	case "lru", "fifo":
	default:
		return fmt.Errorf("unknown order %q", c.Order)
	}
	if c.NormalizeCache != "" && !ristretto.ValidLevel(c.NormalizeCache) {
		return fmt.Errorf("unknown normalize_cache level %q", c.NormalizeCache)
	}
	return nil
}

func validateLog(l *Log) error {
	switch l.Format {
	case FormatJSON, FormatText:
	default:
		return fmt.Errorf("unknown format %q", l.Format)
	}
	if !l.Batch.Enabled {
		return nil
	}
	if l.Batch.FlushSize < 1 || l.Batch.ChanSize < 1 {
		return fmt.Errorf("batch flush_size and chan_size must be positive")
	}
	if l.Batch.FlushInterval.Duration <= 0 {
		return fmt.Errorf("batch flush_interval must be positive")
	}
	return nil
}

// validateMetrics checks the listen address when metrics are enabled.
// If only a port is provided (e.g., ":9090"), it defaults the host to
// "localhost".
//
// Allowed formats:
//   - "host:port" (e.g., "example.com:9090", "127.0.0.1:9090", "[::1]:9090")
//   - ":port"     (e.g., ":9090" becomes "localhost:9090")
func validateMetrics(m *Metrics) error {
	if m.TopK < 0 {
		return fmt.Errorf("top_k cannot be negative")
	}
	if !m.Enabled {
		return nil
	}
	if m.Addr == "" {
		return fmt.Errorf("address (addr) cannot be empty")
	}

	host, port, err := net.SplitHostPort(m.Addr)
	if err != nil {
		if !strings.HasPrefix(m.Addr, ":") {
			return fmt.Errorf("invalid address format '%s': %w", m.Addr, err)
		}
		port = strings.TrimPrefix(m.Addr, ":")
	}
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		return fmt.Errorf("address '%s' must include a port", m.Addr)
	}

	m.Addr = net.JoinHostPort(host, port)

	if _, err := net.LookupPort("tcp", port); err != nil {
		return fmt.Errorf("invalid port '%s' in address '%s': %w", port, m.Addr, err)
	}
	return nil
}
