package storage

import (
	"clustercore/pkg/dberr"
	"clustercore/pkg/types"
	"fmt"
	"sync"
)

// ColumnDefinition names and types one column of a Table.
type ColumnDefinition struct {
	Name     string
	Type     types.Type
	Nullable bool
}

// Table is an ordered, append-only sequence of Chunks sharing one schema, a
// target chunk size, and a single append-mutex serializing appends (reads
// of the chunk list are lock-free: chunks are only ever appended or
// tombstoned, never renumbered).
type Table struct {
	Name    string
	Columns []ColumnDefinition

	TargetChunkSize int

	appendMu sync.Mutex

	mu     sync.RWMutex
	chunks []*Chunk // nil entries are tombstoned (removed) chunks
}

// NewTable creates an empty table with the given schema and target chunk size.
func NewTable(name string, columns []ColumnDefinition, targetChunkSize int) *Table {
	return &Table{
		Name:            name,
		Columns:         columns,
		TargetChunkSize: targetChunkSize,
	}
}

// ColumnIndex returns the index of the named column, or an error if absent.
func (t *Table) ColumnIndex(name string) (int, error) {
	for i, c := range t.Columns {
		if c.Name == name {
			return i, nil
		}
	}
	return 0, dberr.New(dberr.CategoryPrecondition, "STORAGE_UNKNOWN_COLUMN", fmt.Sprintf("table %q has no column %q", t.Name, name))
}

// ColumnCount returns the number of columns in the table's schema.
func (t *Table) ColumnCount() int {
	return len(t.Columns)
}

// AcquireAppendMutex locks the table's append-mutex and returns an unlock
// function; callers hold it only for the duration of appending one or more
// chunks.
func (t *Table) AcquireAppendMutex() func() {
	t.appendMu.Lock()
	return t.appendMu.Unlock
}

// AppendChunk appends a new chunk, assigning it the next ChunkID. Callers
// performing a multi-chunk append (Clustering Sorter's Commit phase) should
// hold AcquireAppendMutex for the whole sequence.
func (t *Table) AppendChunk(chunk *Chunk) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.chunks = append(t.chunks, chunk)
	return len(t.chunks) - 1
}

// ChunkCount returns the number of chunk slots, including tombstoned ones.
func (t *Table) ChunkCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.chunks)
}

// GetChunk returns the chunk at chunkID, or nil if it has been tombstoned.
func (t *Table) GetChunk(chunkID int) (*Chunk, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if chunkID < 0 || chunkID >= len(t.chunks) {
		return nil, dberr.New(dberr.CategoryPrecondition, "STORAGE_CHUNK_OUT_OF_RANGE", fmt.Sprintf("chunk %d out of range", chunkID))
	}
	return t.chunks[chunkID], nil
}

// ChunkIDs returns the ids of every live (non-tombstoned) chunk, in order.
func (t *Table) ChunkIDs() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]int, 0, len(t.chunks))
	for i, c := range t.chunks {
		if c != nil {
			ids = append(ids, i)
		}
	}
	return ids
}

// RowCount sums the row count of every live chunk.
func (t *Table) RowCount() int {
	t.mu.RLock()
	chunks := make([]*Chunk, len(t.chunks))
	copy(chunks, t.chunks)
	t.mu.RUnlock()

	total := 0
	for _, c := range chunks {
		if c != nil {
			total += c.Size()
		}
	}
	return total
}

// RemoveChunk tombstones a chunk: its slot is cleared but not reused, so
// chunk ids already handed out remain stable.
func (t *Table) RemoveChunk(chunkID int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if chunkID < 0 || chunkID >= len(t.chunks) {
		return dberr.New(dberr.CategoryPrecondition, "STORAGE_CHUNK_OUT_OF_RANGE", fmt.Sprintf("chunk %d out of range", chunkID))
	}
	t.chunks[chunkID] = nil
	return nil
}
