// Package metrics exports pool and statement cache figures to Prometheus.
package metrics

import (
	"github.com/caasmo/litepool/pool"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultNamespace = "litepool"

// StatsFunc returns a snapshot of the pool.
type StatsFunc func() pool.DoublePoolStats

// PoolCollector reads the pool stats at scrape time. Roles are "writer" and
// "reader", or "shared" for the single topology.
type PoolCollector struct {
	stats    StatsFunc
	capacity *prometheus.Desc
	size     *prometheus.Desc
	inUse    *prometheus.Desc
	waiting  *prometheus.Desc
}

var _ prometheus.Collector = (*PoolCollector)(nil)

func NewPoolCollector(namespace string, stats StatsFunc) *PoolCollector {
	if namespace == "" {
		namespace = defaultNamespace
	}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", name), help, []string{"role"}, nil)
	}
	return &PoolCollector{
		stats:    stats,
		capacity: desc("capacity", "Maximum number of entries."),
		size:     desc("size", "Entries created so far."),
		inUse:    desc("in_use", "Entries currently borrowed."),
		waiting:  desc("waiting", "Borrowers blocked waiting for an entry."),
	}
}

func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.capacity
	ch <- c.size
	ch <- c.inUse
	ch <- c.waiting
}

func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.stats()
	if st.Topology == pool.Single().String() {
		c.collectRole(ch, "shared", st.Writer)
		return
	}
	c.collectRole(ch, "writer", st.Writer)
	c.collectRole(ch, "reader", st.Reader)
}

func (c *PoolCollector) collectRole(ch chan<- prometheus.Metric, role string, s pool.Stats) {
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(s.Capacity), role)
	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(s.Size), role)
	ch <- prometheus.MustNewConstMetric(c.inUse, prometheus.GaugeValue, float64(s.InUse), role)
	ch <- prometheus.MustNewConstMetric(c.waiting, prometheus.GaugeValue, float64(s.Waiting), role)
}

// Statements counts statement cache events across every session. It is a
// stmtcache.Observer.
type Statements struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
}

func NewStatements(namespace string) *Statements {
	if namespace == "" {
		namespace = defaultNamespace
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "statements",
			Name:      name,
			Help:      help,
		})
	}
	return &Statements{
		hits:      counter("hits_total", "Statements served from a session cache."),
		misses:    counter("misses_total", "Statements compiled because they were not cached."),
		evictions: counter("evictions_total", "Cached statements evicted for capacity."),
	}
}

func (s *Statements) Hit(string)     { s.hits.Inc() }
func (s *Statements) Miss(string)    { s.misses.Inc() }
func (s *Statements) Evicted(string) { s.evictions.Inc() }

// Collectors returns the counters for registration.
func (s *Statements) Collectors() []prometheus.Collector {
	return []prometheus.Collector{s.hits, s.misses, s.evictions}
}

// Register registers the pool collector and the statement counters with reg.
func Register(reg prometheus.Registerer, pc *PoolCollector, st *Statements) error {
	if err := reg.Register(pc); err != nil {
		return err
	}
	for _, c := range st.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
