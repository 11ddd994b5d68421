package replication

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/kartikbazzad/duskdb"
)

// InboundPath and HeartbeatPath are the HTTP paths a follower exposes
// for replication traffic (spec §6 "POST a single encoded op object").
const (
	InboundPath   = "/_replication/apply"
	HeartbeatPath = "/_replication/ping"
)

// Primary broadcasts every non-internal mutation of the wrapped database
// to a set of follower base URLs, and periodically pings them to
// maintain the health table (spec §4.6).
type Primary struct {
	db       *duskdb.Database
	nodeID   string
	peers    []string
	client   *http.Client
	health   *healthTable
	logger   logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// logger is the narrow structured-logging surface Primary/Replica need.
type logger interface {
	Warn(peer string, err error)
}

// nopLogger discards every log call; the zero value of Primary/Replica
// uses it when no logger is supplied.
type nopLogger struct{}

func (nopLogger) Warn(string, error) {}

// NewPrimary constructs a Primary wrapping db, broadcasting to peers and
// heartbeating every syncInterval. It registers itself as db's write
// hook, so every Set/Delete commit triggers a broadcast.
func NewPrimary(db *duskdb.Database, nodeID string, peers []string, syncInterval time.Duration) *Primary {
	p := &Primary{
		db:     db,
		nodeID: nodeID,
		peers:  peers,
		client: &http.Client{Timeout: 2 * time.Second},
		health: newHealthTable(peers),
		logger: nopLogger{},
		stopCh: make(chan struct{}),
	}
	db.WithWriteHook(p.onWrite)
	if syncInterval > 0 {
		p.wg.Add(1)
		go p.heartbeatLoop(syncInterval)
	}
	return p
}

// WithLogger installs a logger used for broadcast/heartbeat warnings.
func (p *Primary) WithLogger(l logger) { p.logger = l }

// Close stops the heartbeat loop.
func (p *Primary) Close() {
	close(p.stopCh)
	p.wg.Wait()
}

// Status returns the current follower health table.
func (p *Primary) Status() map[string]FollowerHealth {
	return p.health.Snapshot()
}

// onWrite is installed as the database's write hook (spec §9 "replication
// broadcast is a step of the writer critical section, not a side-effect
// of event listeners" — tightened here to start its broadcast before the
// write call returns, while the actual network I/O for each follower
// runs concurrently and off the writer lock so a slow/down follower
// never serializes other writers behind it).
func (p *Primary) onWrite(key string, newValue, oldValue interface{}, hasNew, hasOld bool) {
	if isInternal(key) {
		return
	}
	op := Op{Key: key, Ts: time.Now().UnixMilli(), NodeID: p.nodeID}
	if hasNew {
		op.Op = OpSet
		op.Value = newValue
	} else {
		op.Op = OpDelete
	}
	for _, peer := range p.peers {
		peer := peer
		go p.broadcastOne(peer, op)
	}
}

// broadcastOne fires a single bounded-timeout POST at peer and awaits
// its response (spec §4.6 "fire-and-await-per-follower with a short
// per-request timeout"); failures are recorded in the health table and
// never surfaced to the write caller.
func (p *Primary) broadcastOne(peer string, op Op) {
	start := time.Now()
	body, err := json.Marshal(op)
	if err != nil {
		p.health.recordFailure(peer)
		return
	}
	req, err := http.NewRequest(http.MethodPost, peer+InboundPath, bytes.NewReader(body))
	if err != nil {
		p.health.recordFailure(peer)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		p.health.recordFailure(peer)
		p.logger.Warn(peer, err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		p.health.recordFailure(peer)
		return
	}
	p.health.recordSuccess(peer, time.Since(start))
}

func (p *Primary) heartbeatLoop(interval time.Duration) {
	defer p.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			for _, peer := range p.peers {
				p.ping(peer)
			}
		}
	}
}

func (p *Primary) ping(peer string) {
	start := time.Now()
	req, err := http.NewRequest(http.MethodPost, peer+HeartbeatPath, bytes.NewReader([]byte(`{}`)))
	if err != nil {
		p.health.recordFailure(peer)
		return
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.health.recordFailure(peer)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		p.health.recordFailure(peer)
		return
	}
	p.health.recordSuccess(peer, time.Since(start))
}
