// Package metrics exposes the spec §6 Stats surface
// ({reads, writes, hits, misses, hitRate, size, ttlCount}) and the
// replication health table as Prometheus collectors, grounded on
// cuemby-warren's pkg/metrics (package of prometheus.*Vec gauges plus a
// promhttp exposition handler), adapted here to a pull-based
// prometheus.Collector that reads live values from *duskdb.Database.Stats()
// and *replication.Primary.Status() on every scrape rather than requiring
// callers to push updates into package-level vars.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kartikbazzad/duskdb"
)

// Collector implements prometheus.Collector over a single *duskdb.Database,
// exposing the §6 Stats surface as gauges/counters.
type Collector struct {
	db *duskdb.Database

	reads    *prometheus.Desc
	writes   *prometheus.Desc
	hits     *prometheus.Desc
	misses   *prometheus.Desc
	hitRate  *prometheus.Desc
	size     *prometheus.Desc
	ttlCount *prometheus.Desc
}

// NewCollector returns a Collector that reports db's stats on each scrape.
func NewCollector(db *duskdb.Database) *Collector {
	return &Collector{
		db:       db,
		reads:    prometheus.NewDesc("duskdb_reads_total", "Total read operations", nil, nil),
		writes:   prometheus.NewDesc("duskdb_writes_total", "Total write operations", nil, nil),
		hits:     prometheus.NewDesc("duskdb_cache_hits_total", "Total cache hits", nil, nil),
		misses:   prometheus.NewDesc("duskdb_cache_misses_total", "Total cache misses", nil, nil),
		hitRate:  prometheus.NewDesc("duskdb_cache_hit_rate", "Cache hit rate in [0,1]", nil, nil),
		size:     prometheus.NewDesc("duskdb_store_size", "Number of keys currently stored", nil, nil),
		ttlCount: prometheus.NewDesc("duskdb_ttl_keys", "Number of keys with an active TTL", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.reads
	ch <- c.writes
	ch <- c.hits
	ch <- c.misses
	ch <- c.hitRate
	ch <- c.size
	ch <- c.ttlCount
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.db.Stats()
	ch <- prometheus.MustNewConstMetric(c.reads, prometheus.CounterValue, float64(s.Reads))
	ch <- prometheus.MustNewConstMetric(c.writes, prometheus.CounterValue, float64(s.Writes))
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.hitRate, prometheus.GaugeValue, s.HitRate)
	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(s.Size))
	ch <- prometheus.MustNewConstMetric(c.ttlCount, prometheus.GaugeValue, float64(s.TTLCount))
}

// Handler returns an http.Handler serving db's stats (plus any other
// collectors registered on reg) in the Prometheus exposition format.
// Passing a nil reg registers db against a fresh prometheus.Registry,
// convenient for a single-database process.
func Handler(db *duskdb.Database, reg *prometheus.Registry) http.Handler {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	reg.MustRegister(NewCollector(db))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
