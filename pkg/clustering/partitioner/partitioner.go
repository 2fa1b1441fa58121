// Package partitioner defines the Clustering Partitioner contract (C6): the
// external collaborator that atomically moves a chunk's rows into new,
// per-cluster chunks. It is treated as an external collaborator, so this
// package only owns the interface plus one in-memory reference
// implementation sufficient to drive the orchestrator end to end.
package partitioner

import (
	"clustercore/pkg/clustering/clusterkey"
	"clustercore/pkg/dberr"
	"clustercore/pkg/mvcc"
	"clustercore/pkg/storage"
	"clustercore/pkg/types"
	"context"
	"fmt"
	"strconv"
	"strings"
)

// PartitionResult reports what a Partition call did: the chunk id each
// distinct cluster key landed in, and how many rows were moved overall.
type PartitionResult struct {
	ChunkIDs  map[string]int
	RowsMoved int
}

// Partitioner atomically moves every live row of chunk into new chunks
// appended to table, grouped by the per-row cluster keys computed by
// pkg/clustering/clusterkey. It must either move every row or move none: on
// any conflict (a row locked by a concurrent writer) it unwinds its own
// locks and returns a CategoryTransient error, which callers are expected
// to retry against the same chunk.
type Partitioner interface {
	Partition(ctx context.Context, table *storage.Table, chunk *storage.Chunk, keys []clusterkey.Key) (*PartitionResult, error)
}

// InMemoryPartitioner is the reference Partitioner over pkg/storage's
// Chunk/Table model. Each call runs under its own transaction id: it locks
// every live row via RowVersion.TryLock, builds one fresh chunk per distinct
// cluster key (its rows' begin commit id stamped to the same commit that
// invalidates the source rows, so no snapshot ever observes both), appends
// them to table under the append-mutex, then commits by invalidating the
// source rows. Locking failures unwind and return a transient error instead
// of partially moving the chunk.
type InMemoryPartitioner struct{}

// NewInMemoryPartitioner returns the reference Partitioner implementation.
func NewInMemoryPartitioner() *InMemoryPartitioner {
	return &InMemoryPartitioner{}
}

func (p *InMemoryPartitioner) Partition(ctx context.Context, table *storage.Table, chunk *storage.Chunk, keys []clusterkey.Key) (*PartitionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if chunk.Size() != len(keys) {
		return nil, dberr.New(dberr.CategoryPrecondition, "PARTITIONER_KEY_COUNT_MISMATCH",
			fmt.Sprintf("chunk has %d rows but %d cluster keys were supplied", chunk.Size(), len(keys)))
	}

	tid := mvcc.NextTID()

	locked := make([]int, 0, chunk.Size())
	unlockAll := func() {
		for _, offset := range locked {
			rv, err := chunk.RowVersion(offset)
			if err == nil {
				rv.Unlock()
			}
		}
	}

	columnCount := chunk.ColumnCount()
	groups := make(map[string][]int) // cluster-key string -> row offsets, in chunk order
	var order []string

	for offset := 0; offset < chunk.Size(); offset++ {
		rv, err := chunk.RowVersion(offset)
		if err != nil {
			unlockAll()
			return nil, err
		}
		if rv.EndCID() != mvcc.MaxCommitID {
			continue // already invalidated by someone else; not ours to move
		}
		if !rv.TryLock(tid) {
			unlockAll()
			return nil, dberr.New(dberr.CategoryTransient, "PARTITIONER_LOCK_CONFLICT",
				fmt.Sprintf("row %d is already held by another transaction", offset))
		}
		locked = append(locked, offset)

		key := keyString(keys[offset])
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], offset)
	}

	commit := mvcc.NextCommitID()

	newChunkIDs := make(map[string]int, len(order))
	unlock := table.AcquireAppendMutex()
	for _, key := range order {
		newChunk := storage.NewChunk(columnCount)
		for _, offset := range groups[key] {
			row, err := rowAt(chunk, offset, columnCount)
			if err != nil {
				unlock()
				unlockAll()
				return nil, err
			}
			if _, err := newChunk.Append(row); err != nil {
				unlock()
				unlockAll()
				return nil, err
			}
		}
		// Stamped with the same commit id that invalidates the source rows
		// below, so a reader on an older snapshot never sees both at once.
		newChunk.SetBeginCID(commit)
		newChunk.Finalize()
		newChunkIDs[key] = table.AppendChunk(newChunk)
	}
	unlock()

	for _, offset := range locked {
		rv, err := chunk.RowVersion(offset)
		if err != nil {
			return nil, err
		}
		rv.SetEndCID(commit)
	}
	if len(locked) > 0 {
		chunk.IncreaseInvalidRowCount(uint64(len(locked)))
	}

	return &PartitionResult{ChunkIDs: newChunkIDs, RowsMoved: len(locked)}, nil
}

// rowAt reads one row's values across all columns of chunk at offset.
func rowAt(chunk *storage.Chunk, offset, columnCount int) ([]types.Field, error) {
	row := make([]types.Field, columnCount)
	for col := 0; col < columnCount; col++ {
		v, err := chunk.Value(col, offset)
		if err != nil {
			return nil, err
		}
		row[col] = v
	}
	return row, nil
}

func keyString(k clusterkey.Key) string {
	parts := make([]string, len(k))
	for i, component := range k {
		parts[i] = strconv.Itoa(component)
	}
	return strings.Join(parts, "/")
}
