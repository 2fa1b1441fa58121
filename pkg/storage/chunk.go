// Package storage implements the minimal in-memory, append-only, MVCC-aware
// Chunk/Table model the clustering pipeline needs to run end to end: a
// Chunk holds column segments plus a per-row tid/end_cid, and a Table is an
// ordered, append-only sequence of Chunks guarded by a single append-mutex.
package storage

import (
	"clustercore/pkg/dberr"
	"clustercore/pkg/mvcc"
	"clustercore/pkg/types"
	"fmt"
	"sync"
)

// SortAnnotation records a single (column, ascending) ordering guarantee a
// chunk's construction established. It is informational: nothing in this
// package enforces it, the clustering sorter is the sole producer.
type SortAnnotation struct {
	ColumnID  int
	Ascending bool
}

// Chunk is an append-only block of rows plus per-row MVCC state. Appends are
// only legal before Finalize; once finalized a chunk's row count is fixed
// and only invalidation (end_cid, invalid row count) may still change.
type Chunk struct {
	mu sync.RWMutex

	columns  [][]types.Field // columns[c][r] is column c's value for row r
	versions []*mvcc.RowVersion

	finalized         bool
	sortedBy          []SortAnnotation
	cleanupCommitID   mvcc.CommitID
	hasCleanupCommit  bool
	invalidRowCount   uint64
}

// NewChunk builds an empty chunk for the given number of columns.
func NewChunk(columnCount int) *Chunk {
	return &Chunk{columns: make([][]types.Field, columnCount)}
}

// Append adds one row's worth of values (one per column, in column order)
// to the chunk, returning its offset. It is a precondition violation to
// append after Finalize.
func (c *Chunk) Append(row []types.Field) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finalized {
		return 0, dberr.New(dberr.CategoryPrecondition, "STORAGE_APPEND_AFTER_FINALIZE", "cannot append to a finalized chunk")
	}
	if len(row) != len(c.columns) {
		return 0, dberr.New(dberr.CategoryPrecondition, "STORAGE_COLUMN_COUNT_MISMATCH",
			fmt.Sprintf("row has %d values, chunk has %d columns", len(row), len(c.columns)))
	}

	offset := len(c.versions)
	for i, v := range row {
		c.columns[i] = append(c.columns[i], v)
	}
	c.versions = append(c.versions, mvcc.NewRowVersion())
	return offset, nil
}

// Size returns the number of rows (live or invalidated) in the chunk.
func (c *Chunk) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.versions)
}

// ColumnCount returns the number of columns.
func (c *Chunk) ColumnCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.columns)
}

// Value returns the value of column columnID at the given row offset.
func (c *Chunk) Value(columnID, offset int) (types.Field, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if columnID < 0 || columnID >= len(c.columns) {
		return nil, dberr.New(dberr.CategoryPrecondition, "STORAGE_COLUMN_OUT_OF_RANGE", fmt.Sprintf("column %d out of range", columnID))
	}
	if offset < 0 || offset >= len(c.columns[columnID]) {
		return nil, dberr.New(dberr.CategoryPrecondition, "STORAGE_OFFSET_OUT_OF_RANGE", fmt.Sprintf("offset %d out of range", offset))
	}
	return c.columns[columnID][offset], nil
}

// Column returns the full column slice for columnID without copying; callers
// must not mutate the returned slice.
func (c *Chunk) Column(columnID int) ([]types.Field, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if columnID < 0 || columnID >= len(c.columns) {
		return nil, dberr.New(dberr.CategoryPrecondition, "STORAGE_COLUMN_OUT_OF_RANGE", fmt.Sprintf("column %d out of range", columnID))
	}
	return c.columns[columnID], nil
}

// RowVersion returns the MVCC row state at the given offset.
func (c *Chunk) RowVersion(offset int) (*mvcc.RowVersion, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if offset < 0 || offset >= len(c.versions) {
		return nil, dberr.New(dberr.CategoryPrecondition, "STORAGE_OFFSET_OUT_OF_RANGE", fmt.Sprintf("offset %d out of range", offset))
	}
	return c.versions[offset], nil
}

// SetBeginCID stamps commit as the begin commit id of every row currently in
// the chunk. A committing operator that builds a chunk to replace other
// chunks (the clustering sorter, the partitioner) calls this once, at the
// same commit id it uses to invalidate the rows being replaced, so a reader
// holding an older snapshot never observes both the old and new row at once.
func (c *Chunk) SetBeginCID(commit mvcc.CommitID) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, rv := range c.versions {
		rv.SetBeginCID(commit)
	}
}

// Finalize forbids further appends. A chunk is finalized before it becomes
// visible to readers.
func (c *Chunk) Finalize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finalized = true
}

// IsFinalized reports whether Finalize has been called.
func (c *Chunk) IsFinalized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.finalized
}

// SetSortedBy records the ordering guarantee the chunk's construction
// established.
func (c *Chunk) SetSortedBy(annotations []SortAnnotation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sortedBy = annotations
}

// SortedBy returns the chunk's recorded ordering guarantee, if any.
func (c *Chunk) SortedBy() []SortAnnotation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sortedBy
}

// IncreaseInvalidRowCount adds delta to the cached invalid-row count.
func (c *Chunk) IncreaseInvalidRowCount(delta uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidRowCount += delta
}

// InvalidRowCount returns the cached count of rows with end_cid < MaxCommitID.
func (c *Chunk) InvalidRowCount() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.invalidRowCount
}

// SetCleanupCommitID marks the commit id at which the chunk became fully
// invalidated; it gates whether the chunk may later be removed from its table.
func (c *Chunk) SetCleanupCommitID(commit mvcc.CommitID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupCommitID = commit
	c.hasCleanupCommit = true
}

// CleanupCommitID returns the cleanup commit id and whether one was set.
func (c *Chunk) CleanupCommitID() (mvcc.CommitID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cleanupCommitID, c.hasCleanupCommit
}

// IsFullyInvalidated reports whether every row in the chunk has been
// invalidated, i.e. the chunk is a tombstone candidate.
func (c *Chunk) IsFullyInvalidated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.versions) > 0 && c.invalidRowCount == uint64(len(c.versions))
}
