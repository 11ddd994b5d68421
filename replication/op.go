// Package replication implements the primary/replica controller of spec
// §4.6: a primary broadcasts each non-internal mutation to its
// followers over HTTP; a replica applies inbound mutations through the
// same store pipeline, detects conflicts against its own last local
// write timestamp per key, and resolves them last-writer-wins-remote or
// via a caller-supplied hook.
//
// Grounded on bundoc/raft/transport.go's request/reply RPC shape (one
// struct per call, one method per peer) with the consensus machinery
// (terms, votes, log matching) removed — this spec's replication model
// is eventually consistent LWW with an explicit primary, not a
// replicated log — and HTTP+JSON substituted for the teacher's
// TCP+length-prefixed wire framing, per spec §6's "POST a single encoded
// op object" contract.
package replication

import "strings"

// Op is the wire format of a single broadcast mutation (spec §4.6
// "{op, key, value?, ts, nodeId}").
type Op struct {
	Op     string      `json:"op"` // "set" or "delete"
	Key    string      `json:"key"`
	Value  interface{} `json:"value,omitempty"`
	Ts     int64       `json:"ts"`
	NodeID string      `json:"nodeId"`
}

const (
	OpSet    = "set"
	OpDelete = "delete"
)

// isInternal reports whether key is excluded from replication (spec
// §4.6 "keys beginning with _ are never broadcast and never accepted
// over the replication channel").
func isInternal(key string) bool {
	return strings.HasPrefix(key, "_")
}
