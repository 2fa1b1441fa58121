package csvexport

import (
	"bytes"
	"clustercore/pkg/clustering/orchestrator"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunWriter_WriteResultEmitsStableColumns(t *testing.T) {
	var runsBuf, stepsBuf bytes.Buffer
	w := NewRunWriter(&runsBuf, &stepsBuf)

	result := &orchestrator.Result{
		RunID:             "run-1",
		Table:             "events",
		ClusteringColumns: []string{"id", "ts"},
		ChunksPartitioned: 3,
		ClustersFormed:    4,
		ChunksMerged:      1,
		ChunksSorted:      4,
		ChunksRemoved:     2,
		Steps: []orchestrator.StepDuration{
			{Step: "boundaries", DurationNS: 100},
			{Step: "partition", DurationNS: 200},
		},
	}

	require.NoError(t, w.WriteResult(result))

	runsOut := runsBuf.String()
	require.Contains(t, runsOut, "run_id,table,clustering_columns")
	require.Contains(t, runsOut, "run-1,events,id;ts,3,4,1,4,2")

	stepsOut := stepsBuf.String()
	require.Contains(t, stepsOut, "run_id,table,step,duration_ns")
	require.Contains(t, stepsOut, "run-1,events,boundaries,100")
	require.Contains(t, stepsOut, "run-1,events,partition,200")
}

func TestRunWriter_HeaderWrittenOnlyOnce(t *testing.T) {
	var runsBuf, stepsBuf bytes.Buffer
	w := NewRunWriter(&runsBuf, &stepsBuf)

	result := &orchestrator.Result{RunID: "r1", Table: "t"}
	require.NoError(t, w.WriteResult(result))
	require.NoError(t, w.WriteResult(result))

	count := strings.Count(runsBuf.String(), "run_id,table,clustering_columns")
	require.Equal(t, 1, count, "expected the runs CSV header to appear exactly once")
}
