// Package duskdb implements an embeddable, file-backed document store:
// WAL+snapshot durability, an in-memory hot store with LRU cache, TTL
// expiry and a watcher/event layer, secondary indexes, a query engine,
// namespaced collections with schema validation, and an eventually
// consistent primary/replica replication controller.
//
// Grounded on bundoc/database.go's role as the top-level coordinator;
// the storage/MVCC/B+Tree machinery underneath it is replaced wholesale
// (see internal/storage, index, query) since this engine's durability
// and indexing model is a flat map plus line-delimited WAL, not a paged
// B+Tree with multi-version concurrency control.
package duskdb

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Options configures a Database instance. Mirrors bundoc's
// Options/DefaultOptions(path) constructor pattern.
type Options struct {
	// Path is the base path for the snapshot/WAL/backup file set: the
	// engine uses Path+".snapshot", Path+".log", Path+".backup_<ts>",
	// Path+".tmp".
	Path string `yaml:"path"`

	// CacheCapacity bounds the LRU hot cache (default 10000).
	CacheCapacity int `yaml:"cacheCapacity"`

	// BackupRetention bounds how many rotated snapshot backups survive
	// pruning (default 5).
	BackupRetention int `yaml:"backupRetention"`

	// SaveInterval controls how often the background compaction task
	// runs (default 30s, spec §5 "Background tasks").
	SaveInterval time.Duration `yaml:"saveInterval"`

	// TTLSweepInterval controls the TTL sweep task cadence (default 10s).
	TTLSweepInterval time.Duration `yaml:"ttlSweepInterval"`

	// SnapshotCodec names the snapshot compression codec: "identity"
	// (default) or "zstd".
	SnapshotCodec string `yaml:"snapshotCodec"`

	// Logger receives structured engine logs; defaults to zerolog.Nop()
	// when zero-valued, per the "ambient logging, never silent failure"
	// convention this repo carries from the rest of the retrieval pack.
	Logger zerolog.Logger `yaml:"-"`

	// Replication holds the replication settings read from a config file.
	// Open and Init do not read it; replication roles are started with
	// replication.NewPrimary or replication.NewReplica.
	Replication *ReplicationOptions `yaml:"replication"`
}

// ReplicationOptions configures the replication controller (spec §4.6).
type ReplicationOptions struct {
	// Role is "primary" or "replica".
	Role string `yaml:"role"`

	// NodeID uniquely identifies this node in replication wire traffic.
	NodeID string `yaml:"nodeId"`

	// Peers lists follower base URLs (primary) or is empty (replica).
	Peers []string `yaml:"peers"`

	// PrimaryURL is the upstream primary's base URL (replica only).
	PrimaryURL string `yaml:"primaryUrl"`

	// SyncInterval is the heartbeat cadence. No default is applied to it.
	SyncInterval time.Duration `yaml:"syncInterval"`
}

// DefaultOptions returns sane defaults for a database rooted at path,
// mirroring bundoc/database.go's DefaultOptions(path) shape.
func DefaultOptions(path string) *Options {
	return &Options{
		Path:             path,
		CacheCapacity:    10000,
		BackupRetention:  5,
		SaveInterval:     30 * time.Second,
		TTLSweepInterval: 10 * time.Second,
		SnapshotCodec:    "identity",
		Logger:           zerolog.Nop(),
	}
}

// LoadOptions reads a YAML config file into an Options value seeded with
// DefaultOptions(path), so a config file only needs to override what it
// cares about.
func LoadOptions(path string, configPath string) (*Options, error) {
	opts := DefaultOptions(path)
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, opts); err != nil {
		return nil, err
	}
	// Logger is tagged yaml:"-": DefaultOptions already seeded it with
	// zerolog.Nop(), and no config file field can override it.
	return opts, nil
}

func (o *Options) normalize() {
	if o.CacheCapacity <= 0 {
		o.CacheCapacity = 10000
	}
	if o.BackupRetention <= 0 {
		o.BackupRetention = 5
	}
	if o.SaveInterval <= 0 {
		o.SaveInterval = 30 * time.Second
	}
	if o.TTLSweepInterval <= 0 {
		o.TTLSweepInterval = 10 * time.Second
	}
	if o.SnapshotCodec == "" {
		o.SnapshotCodec = "identity"
	}
}
