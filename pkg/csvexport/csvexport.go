// Package csvexport writes the orchestrator's runtime-statistics
// documents to CSV, the same observability surface the original
// operator-feature exporter provided for cost-model training. Only the
// clustering maintenance pipeline is in scope here; the column ordering
// of each emitted row is stable within a release.
package csvexport

import (
	"clustercore/pkg/clustering/orchestrator"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
)

// runHeader is the stable column order for one orchestrator Result row.
var runHeader = []string{
	"run_id", "table", "clustering_columns",
	"chunks_partitioned", "clusters_formed", "chunks_merged",
	"chunks_sorted", "chunks_removed",
}

// stepHeader is the stable column order for one per-step timing row.
var stepHeader = []string{"run_id", "table", "step", "duration_ns"}

// RunWriter appends orchestrator.Result rows to a runs CSV and a
// per-step timings CSV. Both files are written with a header on first
// use and appended to thereafter; callers own the underlying writers'
// lifetime (flushing, closing).
type RunWriter struct {
	runs  *csv.Writer
	steps *csv.Writer

	runsHeaderWritten  bool
	stepsHeaderWritten bool
}

// NewRunWriter wraps runs and steps, the two destinations for
// orchestrator.Result rows and their per-step timing breakdown
// respectively. Both may be the same io.Writer if a caller wants a
// single combined stream; each WriteResult then writes its run row
// followed by its step rows, so the two schemas alternate in blocks.
func NewRunWriter(runs, steps io.Writer) *RunWriter {
	return &RunWriter{
		runs:  csv.NewWriter(runs),
		steps: csv.NewWriter(steps),
	}
}

// WriteResult appends one row to the runs CSV, plus one row per step to
// the steps CSV, flushing both before returning.
func (w *RunWriter) WriteResult(result *orchestrator.Result) error {
	if !w.runsHeaderWritten {
		if err := w.runs.Write(runHeader); err != nil {
			return err
		}
		w.runsHeaderWritten = true
	}
	if !w.stepsHeaderWritten {
		if err := w.steps.Write(stepHeader); err != nil {
			return err
		}
		w.stepsHeaderWritten = true
	}

	row := []string{
		result.RunID,
		result.Table,
		strings.Join(result.ClusteringColumns, ";"),
		strconv.Itoa(result.ChunksPartitioned),
		strconv.Itoa(result.ClustersFormed),
		strconv.Itoa(result.ChunksMerged),
		strconv.Itoa(result.ChunksSorted),
		strconv.Itoa(result.ChunksRemoved),
	}
	if err := w.runs.Write(row); err != nil {
		return err
	}

	for _, step := range result.Steps {
		stepRow := []string{
			result.RunID,
			result.Table,
			step.Step,
			strconv.FormatInt(step.DurationNS, 10),
		}
		if err := w.steps.Write(stepRow); err != nil {
			return err
		}
	}

	w.runs.Flush()
	if err := w.runs.Error(); err != nil {
		return err
	}
	w.steps.Flush()
	return w.steps.Error()
}
