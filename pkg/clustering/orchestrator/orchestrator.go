// Package orchestrator implements the Disjoint Clusters Orchestrator (C8):
// the per-table maintenance pipeline that computes cluster boundaries,
// partitions a table's chunks into disjoint cluster ranges, optionally
// merges undersized clusters, sorts each cluster's chunks, and cleans up
// fully-invalidated chunks once no active reader can still see them.
package orchestrator

import (
	"clustercore/pkg/clustering/boundary"
	"clustercore/pkg/clustering/clusterkey"
	"clustercore/pkg/clustering/partitioner"
	"clustercore/pkg/clustering/sorter"
	"clustercore/pkg/dberr"
	"clustercore/pkg/logging"
	"clustercore/pkg/mvcc"
	"clustercore/pkg/stats/histogram"
	"clustercore/pkg/storage"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// mergeClusterKey is the sentinel cluster key string used to coalesce
// undersized clusters during the small-cluster merge step.
const mergeClusterKey = "__merge__"

// ColumnConfig names one clustering column and how many clusters to split
// it into. NumClusters == 1 means "sort only on this column, do not
// partition by it" — it is only ever meaningful as the last entry.
type ColumnConfig struct {
	Column      string
	NumClusters int
}

// Config parameterizes one orchestrator run over one table.
type Config struct {
	Columns []ColumnConfig // the last entry's column is always the sort column

	MergeSmallChunks    bool
	SmallChunkThreshold int

	MaxParallelPartitions int // bounded worker pool size for the partition fan-out; <=0 means 1
	MaxPartitionRetries    int // retries per chunk on a transient partition conflict; <=0 means 1
}

// HistogramSource supplies the per-column histogram the boundary planner
// needs; the Engine context (C10) is the production implementation, backed
// by a statistics cache.
type HistogramSource interface {
	Histogram(ctx context.Context, tableName, column string) (*histogram.Histogram, error)
}

// StepDuration records one named step's wall-clock cost, the unit the
// runtime-statistics document is built from.
type StepDuration struct {
	Step       string
	DurationNS int64
}

// Result is the runtime-statistics document for one orchestrator run:
// per-step timings plus the counts a caller would want to log or export.
type Result struct {
	RunID              string
	Table              string
	Steps              []StepDuration
	ChunksPartitioned  int
	ClustersFormed     int
	ChunksMerged       int
	ChunksSorted       int
	ChunksRemoved      int
	ClusteringColumns  []string
}

// Run executes the full C8 pipeline once over table. logger may be nil.
func Run(ctx context.Context, table *storage.Table, tableName string, hist HistogramSource, part partitioner.Partitioner, reg *mvcc.Registry, cfg Config, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.NewString()
	logger = logging.WithTable(logger, tableName).With("run_id", runID)

	result := &Result{RunID: runID, Table: tableName}
	timed := func(step string, fn func() error) error {
		start := time.Now()
		err := fn()
		result.Steps = append(result.Steps, StepDuration{Step: step, DurationNS: time.Since(start).Nanoseconds()})
		return err
	}

	if len(cfg.Columns) == 0 {
		return nil, dberr.New(dberr.CategoryPrecondition, "ORCHESTRATOR_NO_COLUMNS", "at least one clustering column is required")
	}
	sortColumnName := cfg.Columns[len(cfg.Columns)-1].Column
	sortColumnIdx, err := table.ColumnIndex(sortColumnName)
	if err != nil {
		return nil, err
	}

	var dims []dimensionPlan
	if err := timed("boundaries", func() error {
		var planErr error
		dims, planErr = computeBoundaries(ctx, table, tableName, hist, cfg.Columns)
		return planErr
	}); err != nil {
		return nil, err
	}
	for _, d := range dims {
		result.ClusteringColumns = append(result.ClusteringColumns, d.column)
	}

	clusters := map[string][]int{}
	if len(dims) == 0 {
		// No partitioning columns configured: the whole table is one cluster,
		// sorted as-is.
		clusters[""] = append(clusters[""], table.ChunkIDs()...)
	} else {
		if err := timed("partition", func() error {
			var partErr error
			preexisting := len(table.ChunkIDs())
			clusters, partErr = partitionTable(ctx, table, dims, part, cfg, logger)
			result.ChunksPartitioned = preexisting
			return partErr
		}); err != nil {
			return nil, err
		}
	}
	result.ClustersFormed = len(clusters)

	if cfg.MergeSmallChunks && len(dims) > 0 {
		if err := timed("merge", func() error {
			merged, mergeErr := mergeSmallClusters(ctx, table, clusters, part, cfg, logger)
			result.ChunksMerged = merged
			return mergeErr
		}); err != nil {
			return nil, err
		}
	}

	if err := timed("sort", func() error {
		sorted, sortErr := sortClusters(clusters, table, sortColumnIdx, logger)
		result.ChunksSorted = sorted
		return sortErr
	}); err != nil {
		return nil, err
	}

	if err := timed("cleanup", func() error {
		removed := cleanup(table, reg, logger)
		result.ChunksRemoved = removed
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

type dimensionPlan struct {
	column      string
	columnIdx   int
	boundaries  *boundary.Boundaries
}

func computeBoundaries(ctx context.Context, table *storage.Table, tableName string, hist HistogramSource, columns []ColumnConfig) ([]dimensionPlan, error) {
	var dims []dimensionPlan
	for _, c := range columns {
		if c.NumClusters < 2 {
			continue // sort-only column, no partitioning dimension
		}
		colIdx, err := table.ColumnIndex(c.Column)
		if err != nil {
			return nil, err
		}
		h, err := hist.Histogram(ctx, tableName, c.Column)
		if err != nil {
			return nil, err
		}
		b, err := boundary.Plan(h, uint64(table.RowCount()), c.NumClusters, true)
		if err != nil {
			return nil, err
		}
		dims = append(dims, dimensionPlan{column: c.Column, columnIdx: colIdx, boundaries: b})
	}
	return dims, nil
}

// partitionTable partitions every pre-existing chunk concurrently, bounded
// by cfg.MaxParallelPartitions, retrying each chunk on a transient conflict
// up to cfg.MaxPartitionRetries times.
func partitionTable(ctx context.Context, table *storage.Table, dims []dimensionPlan, part partitioner.Partitioner, cfg Config, logger *slog.Logger) (map[string][]int, error) {
	limit := cfg.MaxParallelPartitions
	if limit <= 0 {
		limit = 1
	}
	retries := cfg.MaxPartitionRetries
	if retries <= 0 {
		retries = 1
	}

	chunkIDs := table.ChunkIDs()
	results := make([]map[string]int, len(chunkIDs))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, limit)

	for i, chunkID := range chunkIDs {
		i, chunkID := i, chunkID
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			ids, err := partitionChunkWithRetry(gctx, table, chunkID, dims, part, retries, logger)
			if err != nil {
				return err
			}
			results[i] = ids
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	clusters := map[string][]int{}
	for _, ids := range results {
		for key, chunkID := range ids {
			clusters[key] = append(clusters[key], chunkID)
		}
	}
	return clusters, nil
}

func partitionChunkWithRetry(ctx context.Context, table *storage.Table, chunkID int, dims []dimensionPlan, part partitioner.Partitioner, retries int, logger *slog.Logger) (map[string]int, error) {
	chunk, err := table.GetChunk(chunkID)
	if err != nil {
		return nil, err
	}
	if chunk == nil {
		return nil, nil // already tombstoned, nothing to partition
	}

	clusterkeyDims := make([]clusterkey.Dimension, len(dims))
	for i, d := range dims {
		col, err := chunk.Column(d.columnIdx)
		if err != nil {
			return nil, err
		}
		clusterkeyDims[i] = clusterkey.Dimension{Column: col, Boundaries: d.boundaries}
	}

	keys, err := clusterkey.Assign(clusterkeyDims)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		result, err := part.Partition(ctx, table, chunk, keys)
		if err == nil {
			if result == nil {
				return nil, nil
			}
			return result.ChunkIDs, nil
		}
		lastErr = err
		if !dberr.IsTransient(err) {
			return nil, err
		}
		logging.WithError(logging.WithChunk(logger, chunkID), err).Warn("partition conflict, retrying", "attempt", attempt)
	}
	return nil, fmt.Errorf("chunk %d: exhausted %d partition retries: %w", chunkID, retries, lastErr)
}

// mergeSmallClusters re-partitions any cluster whose sole chunk has at most
// cfg.SmallChunkThreshold rows under a sentinel key; each such chunk's rows
// land in a new chunk filed under the shared mergeClusterKey cluster, whose
// chunks the sort step then combines into one sorted set.
func mergeSmallClusters(ctx context.Context, table *storage.Table, clusters map[string][]int, part partitioner.Partitioner, cfg Config, logger *slog.Logger) (int, error) {
	merged := 0
	for key, chunkIDs := range clusters {
		if key == mergeClusterKey || len(chunkIDs) != 1 {
			continue
		}
		chunk, err := table.GetChunk(chunkIDs[0])
		if err != nil {
			return merged, err
		}
		if chunk == nil || chunk.Size() > cfg.SmallChunkThreshold {
			continue
		}

		sentinelKeys := make([]clusterkey.Key, chunk.Size())
		for i := range sentinelKeys {
			sentinelKeys[i] = clusterkey.Key{-1}
		}

		result, err := part.Partition(ctx, table, chunk, sentinelKeys)
		if err != nil {
			if dberr.IsTransient(err) {
				logging.WithError(logging.WithChunk(logger, chunkIDs[0]), err).Warn("small-cluster merge conflict, skipping this round")
				continue
			}
			return merged, err
		}

		delete(clusters, key)
		for _, newChunkID := range result.ChunkIDs {
			clusters[mergeClusterKey] = append(clusters[mergeClusterKey], newChunkID)
		}
		merged++
	}
	return merged, nil
}

// sortClusters runs the Clustering Sorter once per cluster's chunk set,
// skipping (not failing the run) on a transient conflict — a future run
// will pick the cluster back up.
func sortClusters(clusters map[string][]int, table *storage.Table, sortColumnIdx int, logger *slog.Logger) (int, error) {
	sorted := 0
	for key, chunkIDs := range clusters {
		if len(chunkIDs) == 0 {
			continue
		}
		clusterLogger := logging.WithComponent(logger, key)
		s := sorter.NewSorter(table, chunkIDs, sortColumnIdx)
		if err := s.SortAndSnapshot(); err != nil {
			logging.WithError(clusterLogger, err).Warn("cluster sort: snapshot failed, skipping")
			continue
		}
		tid := mvcc.NextTID()
		if err := s.Lock(tid); err != nil {
			logging.WithError(logging.WithTx(clusterLogger, uint64(tid)), err).Warn("cluster sort: lock conflict, skipping")
			continue
		}
		commit := mvcc.NextCommitID()
		if err := s.Commit(commit); err != nil {
			logging.WithError(clusterLogger, err).Warn("cluster sort: commit failed, skipping")
			continue
		}
		sorted += len(chunkIDs)
	}
	return sorted, nil
}

// cleanup removes every chunk that is fully invalidated and whose cleanup
// commit id predates every active snapshot.
func cleanup(table *storage.Table, reg *mvcc.Registry, logger *slog.Logger) int {
	lowestActive := mvcc.MaxCommitID
	if reg != nil {
		lowestActive = reg.LowestActiveSnapshot()
	}

	removed := 0
	for _, chunkID := range table.ChunkIDs() {
		chunk, err := table.GetChunk(chunkID)
		if err != nil || chunk == nil {
			continue
		}
		if !chunk.IsFullyInvalidated() {
			continue
		}
		commit, ok := chunk.CleanupCommitID()
		if !ok || !(commit < lowestActive) {
			continue
		}
		if err := table.RemoveChunk(chunkID); err != nil {
			logging.WithError(logging.WithChunk(logger, chunkID), err).Warn("cleanup: failed to remove chunk")
			continue
		}
		removed++
	}
	return removed
}
