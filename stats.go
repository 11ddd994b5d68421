package duskdb

import "sync/atomic"

// Stats is the read-only counters surface of spec §6 ("Stats:
// {reads, writes, hits, misses, hitRate, size, ttlCount}").
type Stats struct {
	Reads    int64
	Writes   int64
	Hits     int64
	Misses   int64
	HitRate  float64
	Size     int
	TTLCount int
}

type statCounters struct {
	reads  int64
	writes int64
	hits   int64
	misses int64
}

func (c *statCounters) recordRead()  { atomic.AddInt64(&c.reads, 1) }
func (c *statCounters) recordWrite() { atomic.AddInt64(&c.writes, 1) }
func (c *statCounters) recordHit()   { atomic.AddInt64(&c.hits, 1) }
func (c *statCounters) recordMiss()  { atomic.AddInt64(&c.misses, 1) }

func (c *statCounters) snapshot() (reads, writes, hits, misses int64) {
	return atomic.LoadInt64(&c.reads), atomic.LoadInt64(&c.writes),
		atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}
