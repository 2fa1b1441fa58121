// Package sorter implements the Clustering Sorter (C7): a transactional,
// four-phase operator that replaces a set of a table's chunks with new
// chunks holding the same rows sorted ascending on one column.
package sorter

import (
	"clustercore/pkg/dberr"
	"clustercore/pkg/mvcc"
	"clustercore/pkg/primitives"
	"clustercore/pkg/storage"
	"clustercore/pkg/types"
	"fmt"
	"sort"
	"sync"
)

// State is the operator's position in its Unstarted -> Sorted -> Locked ->
// (Committed | RolledBack) state machine.
type State int

const (
	Unstarted State = iota
	Sorted
	Locked
	Committed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Sorted:
		return "sorted"
	case Locked:
		return "locked"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// rowRef locates a row in one of the operator's source chunks.
type rowRef struct {
	chunkID int
	offset  int
}

// sortedRow pairs a source row reference with its full materialized value,
// one per column, captured at snapshot time.
type sortedRow struct {
	ref  rowRef
	vals []types.Field
}

// Sorter replaces Table's existing ChunkIDs with new chunks holding the
// same live rows sorted ascending on SortColumn, invalidating the inputs
// under MVCC. One instance is one-shot: SortAndSnapshot, then Lock, then
// exactly one of Commit or Rollback.
type Sorter struct {
	mu sync.Mutex

	table      *storage.Table
	chunkIDs   []int
	sortColumn int

	state State
	tid   mvcc.TID

	sortedRows  []sortedRow
	snapshotInv map[int]uint64

	locked []rowRef
}

// NewSorter constructs a Sorter targeting the given table, input chunk ids,
// and sort column. It takes no locks and reads no data until
// SortAndSnapshot is called.
func NewSorter(table *storage.Table, chunkIDs []int, sortColumn int) *Sorter {
	return &Sorter{
		table:      table,
		chunkIDs:   chunkIDs,
		sortColumn: sortColumn,
		state:      Unstarted,
	}
}

// State returns the operator's current phase.
func (s *Sorter) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func unexpectedState(op string, want, got State) error {
	return dberr.New(dberr.CategoryPrecondition, "SORTER_UNEXPECTED_STATE",
		fmt.Sprintf("%s requires state %s, but the operator is %s", op, want, got))
}

// SortAndSnapshot is phase 1: for each input chunk it snapshots the
// current invalid-row-count (used in Lock to detect concurrent inserts),
// materializes every live row across all input chunks, and sorts the
// result ascending on SortColumn. It does not mutate table state.
func (s *Sorter) SortAndSnapshot() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Unstarted {
		return unexpectedState("SortAndSnapshot", Unstarted, s.state)
	}

	snapshotInv := make(map[int]uint64, len(s.chunkIDs))
	var rows []sortedRow

	for _, chunkID := range s.chunkIDs {
		chunk, err := s.table.GetChunk(chunkID)
		if err != nil {
			return err
		}
		if chunk == nil {
			return dberr.New(dberr.CategoryPrecondition, "SORTER_CHUNK_TOMBSTONED",
				fmt.Sprintf("chunk %d has already been removed from the table", chunkID))
		}

		snapshotInv[chunkID] = chunk.InvalidRowCount()

		for offset := 0; offset < chunk.Size(); offset++ {
			rv, err := chunk.RowVersion(offset)
			if err != nil {
				return err
			}
			if rv.EndCID() != mvcc.MaxCommitID {
				continue // already invalidated, not ours to carry forward
			}

			vals := make([]types.Field, chunk.ColumnCount())
			for col := 0; col < chunk.ColumnCount(); col++ {
				v, err := chunk.Value(col, offset)
				if err != nil {
					return err
				}
				vals[col] = v
			}
			rows = append(rows, sortedRow{ref: rowRef{chunkID: chunkID, offset: offset}, vals: vals})
		}
	}

	if s.sortColumn < 0 || (len(rows) > 0 && s.sortColumn >= len(rows[0].vals)) {
		return dberr.New(dberr.CategoryPrecondition, "SORTER_SORT_COLUMN_OUT_OF_RANGE",
			fmt.Sprintf("sort column %d out of range", s.sortColumn))
	}

	var sortErr error
	sort.SliceStable(rows, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		less, err := rows[i].vals[s.sortColumn].Compare(primitives.LessThan, rows[j].vals[s.sortColumn])
		if err != nil {
			sortErr = err
			return false
		}
		return less
	})
	if sortErr != nil {
		return sortErr
	}

	s.sortedRows = rows
	s.snapshotInv = snapshotInv
	s.state = Sorted
	return nil
}

// Lock is phase 2: for every live row across the input chunks it attempts
// to CAS the row's tid from unheld to tid. Any CAS failure, or any chunk's
// invalid-row-count having drifted since SortAndSnapshot (meaning a
// concurrent writer invalidated rows we already materialized), releases
// every lock taken so far and transitions to RolledBack.
func (s *Sorter) Lock(tid mvcc.TID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Sorted {
		return unexpectedState("Lock", Sorted, s.state)
	}

	for _, chunkID := range s.chunkIDs {
		chunk, err := s.table.GetChunk(chunkID)
		if err != nil {
			s.rollbackLocked()
			return err
		}
		if chunk.InvalidRowCount() != s.snapshotInv[chunkID] {
			s.rollbackLocked()
			return dberr.New(dberr.CategoryTransient, "SORTER_CONCURRENT_INVALIDATION",
				fmt.Sprintf("chunk %d's invalid row count drifted since snapshot", chunkID))
		}
	}

	locked := make([]rowRef, 0, len(s.sortedRows))
	for _, row := range s.sortedRows {
		chunk, err := s.table.GetChunk(row.ref.chunkID)
		if err != nil {
			s.state = RolledBack
			unlockRefs(s.table, locked)
			return err
		}
		rv, err := chunk.RowVersion(row.ref.offset)
		if err != nil {
			s.state = RolledBack
			unlockRefs(s.table, locked)
			return err
		}
		if !rv.TryLock(tid) {
			s.state = RolledBack
			unlockRefs(s.table, locked)
			return dberr.New(dberr.CategoryTransient, "SORTER_LOCK_CONFLICT",
				fmt.Sprintf("row %+v is already held by another transaction", row.ref))
		}
		locked = append(locked, row.ref)
	}

	s.tid = tid
	s.locked = locked
	s.state = Locked
	return nil
}

func (s *Sorter) rollbackLocked() {
	unlockRefs(s.table, s.locked)
	s.locked = nil
	s.state = RolledBack
}

func unlockRefs(table *storage.Table, refs []rowRef) {
	for _, ref := range refs {
		chunk, err := table.GetChunk(ref.chunkID)
		if err != nil || chunk == nil {
			continue
		}
		rv, err := chunk.RowVersion(ref.offset)
		if err != nil {
			continue
		}
		rv.Unlock()
	}
}

// Commit is phase 3, invoked by the caller (transaction manager) once a
// commit id has been assigned. It invalidates every locked source row,
// appends the sorted rows as a new finalized chunk under the table's
// append-mutex (its rows' begin commit id stamped to the same commit, so a
// reader on an older snapshot never sees both the old and new row), and
// marks the original chunks as cleanup candidates as of commit. Every held
// lock is released before returning, on every path — unlike leaving dead
// rows' tid set, which serves no reader and would be a dangling marker on a
// row nothing can ever lock again.
func (s *Sorter) Commit(commit mvcc.CommitID) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Locked {
		return unexpectedState("Commit", Locked, s.state)
	}

	defer func() {
		unlockRefs(s.table, s.locked)
		s.locked = nil
		if err == nil {
			s.state = Committed
		} else {
			s.state = RolledBack
		}
	}()

	invalidated := make(map[int]uint64, len(s.chunkIDs))
	for _, ref := range s.locked {
		chunk, getErr := s.table.GetChunk(ref.chunkID)
		if getErr != nil {
			return getErr
		}
		rv, getErr := chunk.RowVersion(ref.offset)
		if getErr != nil {
			return getErr
		}
		if rv.HoldingTID() != s.tid {
			return dberr.New(dberr.CategoryInvariant, "SORTER_FOREIGN_LOCK_AT_COMMIT",
				fmt.Sprintf("row %+v is held by %v, not this operator's %v", ref, rv.HoldingTID(), s.tid))
		}
		rv.SetEndCID(commit)
		invalidated[ref.chunkID]++
	}
	for chunkID, count := range invalidated {
		chunk, getErr := s.table.GetChunk(chunkID)
		if getErr != nil {
			return getErr
		}
		chunk.IncreaseInvalidRowCount(count)
	}

	if len(s.sortedRows) > 0 {
		columnCount := len(s.sortedRows[0].vals)
		newChunk := storage.NewChunk(columnCount)
		for _, row := range s.sortedRows {
			if _, appendErr := newChunk.Append(row.vals); appendErr != nil {
				return appendErr
			}
		}
		newChunk.SetSortedBy([]storage.SortAnnotation{{ColumnID: s.sortColumn, Ascending: true}})
		newChunk.SetBeginCID(commit)
		newChunk.Finalize()

		unlock := s.table.AcquireAppendMutex()
		s.table.AppendChunk(newChunk)
		unlock()
	}

	for _, chunkID := range s.chunkIDs {
		chunk, getErr := s.table.GetChunk(chunkID)
		if getErr != nil {
			return getErr
		}
		chunk.SetCleanupCommitID(commit)
	}

	return nil
}

// Rollback is phase 4: it releases every lock Lock acquired and leaves no
// visible state change.
func (s *Sorter) Rollback() {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlockRefs(s.table, s.locked)
	s.locked = nil
	s.state = RolledBack
}
