package replication

import (
	"sync"
	"time"
)

// FollowerHealth tracks one follower's observed liveness (spec §4.6
// "health table (alive flag, fail count, last ping, observed lag)").
type FollowerHealth struct {
	Alive     bool
	FailCount int
	LastPing  time.Time
	Lag       time.Duration
}

// healthTable is a concurrency-safe map of follower URL to its health.
type healthTable struct {
	mu    sync.Mutex
	peers map[string]*FollowerHealth
}

func newHealthTable(peers []string) *healthTable {
	h := &healthTable{peers: make(map[string]*FollowerHealth, len(peers))}
	for _, p := range peers {
		h.peers[p] = &FollowerHealth{Alive: true}
	}
	return h
}

func (h *healthTable) recordSuccess(peer string, lag time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fh, ok := h.peers[peer]
	if !ok {
		fh = &FollowerHealth{}
		h.peers[peer] = fh
	}
	fh.Alive = true
	fh.FailCount = 0
	fh.LastPing = time.Now()
	fh.Lag = lag
}

func (h *healthTable) recordFailure(peer string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fh, ok := h.peers[peer]
	if !ok {
		fh = &FollowerHealth{}
		h.peers[peer] = fh
	}
	fh.FailCount++
	fh.LastPing = time.Now()
	if fh.FailCount >= maxConsecutiveFailures {
		fh.Alive = false
	}
}

// maxConsecutiveFailures is the number of consecutive heartbeat or
// broadcast failures before a follower is marked down.
const maxConsecutiveFailures = 3

// Snapshot returns a copy of the current health table, keyed by peer URL.
func (h *healthTable) Snapshot() map[string]FollowerHealth {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]FollowerHealth, len(h.peers))
	for k, v := range h.peers {
		out[k] = *v
	}
	return out
}
