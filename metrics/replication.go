package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kartikbazzad/duskdb/replication"
)

// ReplicationCollector exposes a primary's follower health table (spec
// §4.6 "health table ... exposed through status") as Prometheus gauges,
// one labelled series per follower peer.
type ReplicationCollector struct {
	primary *replication.Primary

	alive     *prometheus.Desc
	failCount *prometheus.Desc
	lagSecs   *prometheus.Desc
}

// NewReplicationCollector returns a collector reporting primary's
// follower health on each scrape.
func NewReplicationCollector(primary *replication.Primary) *ReplicationCollector {
	return &ReplicationCollector{
		primary:   primary,
		alive:     prometheus.NewDesc("duskdb_replica_alive", "Whether a follower is currently considered alive (1) or down (0)", []string{"peer"}, nil),
		failCount: prometheus.NewDesc("duskdb_replica_fail_count", "Consecutive broadcast/heartbeat failures for a follower", []string{"peer"}, nil),
		lagSecs:   prometheus.NewDesc("duskdb_replica_lag_seconds", "Observed round-trip lag to a follower, in seconds", []string{"peer"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *ReplicationCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.alive
	ch <- c.failCount
	ch <- c.lagSecs
}

// Collect implements prometheus.Collector.
func (c *ReplicationCollector) Collect(ch chan<- prometheus.Metric) {
	for peer, health := range c.primary.Status() {
		alive := 0.0
		if health.Alive {
			alive = 1.0
		}
		ch <- prometheus.MustNewConstMetric(c.alive, prometheus.GaugeValue, alive, peer)
		ch <- prometheus.MustNewConstMetric(c.failCount, prometheus.GaugeValue, float64(health.FailCount), peer)
		ch <- prometheus.MustNewConstMetric(c.lagSecs, prometheus.GaugeValue, health.Lag.Seconds(), peer)
	}
}
