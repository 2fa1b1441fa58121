package metrics

import (
	"clustercore/pkg/clustering/orchestrator"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollector_ObserveUpdatesCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	require.NotNil(t, c)

	result := &orchestrator.Result{
		Table:          "events",
		ChunksSorted:   4,
		ChunksRemoved:  2,
		ClustersFormed: 3,
		Steps: []orchestrator.StepDuration{
			{Step: "sort", DurationNS: 2_000_000_000},
		},
	}
	c.Observe(result)

	require.Equal(t, float64(1), testutil.ToFloat64(c.runsTotal.WithLabelValues("events")))
	require.Equal(t, float64(4), testutil.ToFloat64(c.chunksSorted.WithLabelValues("events")))
	require.Equal(t, float64(2), testutil.ToFloat64(c.chunksRemoved.WithLabelValues("events")))
	require.Equal(t, float64(3), testutil.ToFloat64(c.clustersFormed.WithLabelValues("events")))
}

func TestCollector_ObserveRecordsStepDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	result := &orchestrator.Result{
		Table: "events",
		Steps: []orchestrator.StepDuration{
			{Step: "sort", DurationNS: 500_000_000},
		},
	}
	c.Observe(result)

	count, err := testutil.GatherAndCount(reg, "clustercore_orchestrator_step_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestCollector_RegistersAllFamilies(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	// Vec families only show up in Gather once one labelled child exists.
	c.Observe(&orchestrator.Result{
		Table: "events",
		Steps: []orchestrator.StepDuration{{Step: "sort", DurationNS: 1}},
	})

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, name := range []string{
		"clustercore_orchestrator_runs_total",
		"clustercore_orchestrator_step_duration_seconds",
		"clustercore_orchestrator_chunks_sorted",
		"clustercore_orchestrator_chunks_removed",
		"clustercore_orchestrator_clusters_formed",
	} {
		require.True(t, names[name], "expected metric family %q to be registered", name)
	}
}
