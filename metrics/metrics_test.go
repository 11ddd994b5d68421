package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/kartikbazzad/duskdb"
)

func TestCollectorReportsSize(t *testing.T) {
	db := duskdb.New(duskdb.DefaultOptions(t.TempDir() + "/db"))
	require.NoError(t, db.Init())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Set("a", 1))
	require.NoError(t, db.Set("b", 2))
	_, _ = db.Get("a")

	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(db))

	families, err := reg.Gather()
	require.NoError(t, err)

	var size float64
	found := false
	for _, fam := range families {
		if fam.GetName() == "duskdb_store_size" {
			found = true
			size = fam.GetMetric()[0].GetGauge().GetValue()
		}
	}
	require.True(t, found, "duskdb_store_size metric must be registered")
	require.Equal(t, float64(2), size)
}

func TestCollectorReportsHits(t *testing.T) {
	db := duskdb.New(duskdb.DefaultOptions(t.TempDir() + "/db"))
	require.NoError(t, db.Init())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Set("a", 1))
	_, _ = db.Get("a")

	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(db))
	families, err := reg.Gather()
	require.NoError(t, err)

	var hits *dto.MetricFamily
	for _, fam := range families {
		if fam.GetName() == "duskdb_cache_hits_total" {
			hits = fam
		}
	}
	require.NotNil(t, hits)
	require.GreaterOrEqual(t, hits.GetMetric()[0].GetCounter().GetValue(), float64(1))
}
