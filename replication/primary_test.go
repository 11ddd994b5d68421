package replication

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestPrimaryBroadcastsToReplicaHandler wires a Primary directly to a
// Replica's http.Handler via httptest, exercising the full wire path
// (spec §6 "POST a single encoded op object; 2xx acknowledges receipt
// and application").
func TestPrimaryBroadcastsToReplicaHandler(t *testing.T) {
	followerDB := newTestDB(t)
	replica := NewReplica(followerDB, "follower-1")
	srv := httptest.NewServer(replica.Handler())
	defer srv.Close()

	primaryDB := newTestDB(t)
	primary := NewPrimary(primaryDB, "primary-1", []string{srv.URL}, 0)
	defer primary.Close()

	require.NoError(t, primaryDB.Set("k", "v"))

	require.Eventually(t, func() bool {
		v, ok := followerDB.Get("k")
		return ok && v == "v"
	}, time.Second, 10*time.Millisecond)

	status := primary.Status()
	require.Contains(t, status, srv.URL)
	require.True(t, status[srv.URL].Alive)
}

// TestPrimaryDoesNotBroadcastInternalKeys verifies spec §4.6's exclusion
// of keys beginning with "_" from replication broadcast.
func TestPrimaryDoesNotBroadcastInternalKeys(t *testing.T) {
	followerDB := newTestDB(t)
	replica := NewReplica(followerDB, "follower-1")
	srv := httptest.NewServer(replica.Handler())
	defer srv.Close()

	primaryDB := newTestDB(t)
	primary := NewPrimary(primaryDB, "primary-1", []string{srv.URL}, 0)
	defer primary.Close()

	require.NoError(t, primaryDB.ApplyReplicatedSet("_internal", "v"))
	time.Sleep(50 * time.Millisecond)
	require.False(t, followerDB.Has("_internal"))
}

func TestPrimaryRecordsFailureForUnreachablePeer(t *testing.T) {
	primaryDB := newTestDB(t)
	primary := NewPrimary(primaryDB, "primary-1", []string{"http://127.0.0.1:0"}, 0)
	defer primary.Close()

	require.NoError(t, primaryDB.Set("k", "v"))

	require.Eventually(t, func() bool {
		status := primary.Status()
		return status["http://127.0.0.1:0"].FailCount > 0
	}, time.Second, 10*time.Millisecond)
}
