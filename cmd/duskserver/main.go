package main

import (
	"flag"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kartikbazzad/duskdb"
	"github.com/kartikbazzad/duskdb/replication"
)

func main() {
	var (
		path         = flag.String("path", "duskdb", "base path of the snapshot/WAL/backup file set")
		addr         = flag.String("addr", ":8080", "HTTP listen address")
		role         = flag.String("role", "primary", "replication role: primary or replica")
		nodeID       = flag.String("node-id", "", "node identity for replication wire traffic (random when empty)")
		peers        = flag.String("peers", "", "comma-separated follower base URLs (primary only)")
		syncInterval = flag.Duration("sync-interval", 5*time.Second, "heartbeat cadence (primary only)")
	)
	flag.Parse()
	if *nodeID == "" {
		*nodeID = uuid.NewString()
	}

	db, err := duskdb.Open(duskdb.DefaultOptions(*path))
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	var replica *replication.Replica
	switch *role {
	case "primary":
		peerList := splitNonEmpty(*peers)
		if len(peerList) > 0 {
			replication.NewPrimary(db, *nodeID, peerList, *syncInterval)
		}
	case "replica":
		replica = replication.NewReplica(db, *nodeID)
	default:
		log.Fatalf("unknown role %q: must be primary or replica", *role)
	}

	r := gin.Default()
	NewHandler(db, replica).Register(r)

	if err := r.Run(*addr); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

func splitNonEmpty(csv string) []string {
	if csv == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(csv); i++ {
		if i == len(csv) || csv[i] == ',' {
			if i > start {
				out = append(out, csv[start:i])
			}
			start = i + 1
		}
	}
	return out
}
