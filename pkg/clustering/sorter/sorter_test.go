package sorter

import (
	"clustercore/pkg/mvcc"
	"clustercore/pkg/storage"
	"clustercore/pkg/types"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildTable(t *testing.T, values ...int64) (*storage.Table, int) {
	t.Helper()
	table := storage.NewTable("t", []storage.ColumnDefinition{{Name: "a", Type: types.Int64Type}}, 1000)
	chunk := storage.NewChunk(1)
	for _, v := range values {
		_, err := chunk.Append([]types.Field{types.NewInt64Value(v)})
		require.NoError(t, err)
	}
	unlock := table.AcquireAppendMutex()
	chunkID := table.AppendChunk(chunk)
	unlock()
	return table, chunkID
}

func runFullCommit(t *testing.T, table *storage.Table, chunkIDs []int) *Sorter {
	t.Helper()
	s := NewSorter(table, chunkIDs, 0)
	require.NoError(t, s.SortAndSnapshot())
	tid := mvcc.NextTID()
	require.NoError(t, s.Lock(tid))
	commit := mvcc.NextCommitID()
	require.NoError(t, s.Commit(commit))
	return s
}

func TestSorter_FullLifecycleProducesSortedChunk(t *testing.T) {
	table, chunkID := buildTable(t, 3, 1, 2)
	s := runFullCommit(t, table, []int{chunkID})

	require.Equal(t, Committed, s.State())

	// The original chunk is now fully invalidated and tombstone-eligible,
	// a fresh chunk was appended holding the same rows sorted ascending.
	original, err := table.GetChunk(chunkID)
	require.NoError(t, err)
	require.True(t, original.IsFullyInvalidated(), "expected the original chunk to be fully invalidated after commit")
	_, ok := original.CleanupCommitID()
	require.True(t, ok, "expected the original chunk to carry a cleanup commit id")

	ids := table.ChunkIDs()
	require.Len(t, ids, 2, "expected the original chunk (not yet cleaned up) plus the new sorted one")
	require.Equal(t, chunkID, ids[0])
	newChunk, err := table.GetChunk(ids[1])
	require.NoError(t, err)
	require.True(t, newChunk.IsFinalized())

	var got []int64
	for i := 0; i < newChunk.Size(); i++ {
		v, err := newChunk.Value(0, i)
		require.NoError(t, err)
		got = append(got, v.(*types.Int64Value).Value)
	}
	require.Equal(t, []int64{1, 2, 3}, got)

	sortedBy := newChunk.SortedBy()
	require.Len(t, sortedBy, 1)
	require.Equal(t, 0, sortedBy[0].ColumnID)
	require.True(t, sortedBy[0].Ascending)

	// A reader snapshotting before the commit must never see the new rows
	// alongside the still-visible old ones (property: no row visible twice).
	originalRV, err := original.RowVersion(0)
	require.NoError(t, err)
	preCommit := originalRV.EndCID() - 1
	require.True(t, originalRV.VisibleAt(preCommit), "expected the old row visible to a snapshot before the commit")
	for i := 0; i < newChunk.Size(); i++ {
		newRV, err := newChunk.RowVersion(i)
		require.NoError(t, err)
		require.False(t, newRV.VisibleAt(preCommit), "expected the new row invisible to a snapshot before the commit")
		require.True(t, newRV.VisibleAt(originalRV.EndCID()), "expected the new row visible to a snapshot at the commit")
	}
}

func TestSorter_CommitReleasesAllLocks(t *testing.T) {
	table, chunkID := buildTable(t, 5, 4)
	runFullCommit(t, table, []int{chunkID})

	original, err := table.GetChunk(chunkID)
	require.NoError(t, err)
	for offset := 0; offset < original.Size(); offset++ {
		rv, err := original.RowVersion(offset)
		require.NoError(t, err)
		require.False(t, rv.HoldingTID().IsHeld(), "expected row %d's lock released after commit, still held by %v", offset, rv.HoldingTID())
	}
}

func TestSorter_LockConflictRollsBack(t *testing.T) {
	table, chunkID := buildTable(t, 1, 2)
	s := NewSorter(table, []int{chunkID}, 0)
	require.NoError(t, s.SortAndSnapshot())

	chunk, err := table.GetChunk(chunkID)
	require.NoError(t, err)
	rv, err := chunk.RowVersion(0)
	require.NoError(t, err)
	rv.TryLock(mvcc.NextTID()) // simulate a concurrent holder

	err = s.Lock(mvcc.NextTID())
	require.Error(t, err, "expected a lock conflict error")
	require.Equal(t, RolledBack, s.State())
}

func TestSorter_ConcurrentInvalidationDetectedAtLock(t *testing.T) {
	table, chunkID := buildTable(t, 1, 2)
	s := NewSorter(table, []int{chunkID}, 0)
	require.NoError(t, s.SortAndSnapshot())

	// Simulate a concurrent writer invalidating a row between snapshot and lock.
	chunk, err := table.GetChunk(chunkID)
	require.NoError(t, err)
	rv, err := chunk.RowVersion(0)
	require.NoError(t, err)
	rv.SetEndCID(mvcc.NextCommitID())
	chunk.IncreaseInvalidRowCount(1)

	err = s.Lock(mvcc.NextTID())
	require.Error(t, err, "expected a concurrent-invalidation error")
	require.Equal(t, RolledBack, s.State())
}

func TestSorter_RollbackReleasesLocksWithoutCommitting(t *testing.T) {
	table, chunkID := buildTable(t, 1, 2)
	s := NewSorter(table, []int{chunkID}, 0)
	require.NoError(t, s.SortAndSnapshot())
	require.NoError(t, s.Lock(mvcc.NextTID()))

	s.Rollback()

	require.Equal(t, RolledBack, s.State())
	chunk, err := table.GetChunk(chunkID)
	require.NoError(t, err)
	for offset := 0; offset < chunk.Size(); offset++ {
		rv, err := chunk.RowVersion(offset)
		require.NoError(t, err)
		require.False(t, rv.HoldingTID().IsHeld(), "expected row %d unlocked after rollback", offset)
		require.Equal(t, mvcc.MaxCommitID, rv.EndCID(), "expected row %d still alive after rollback", offset)
	}
	require.Len(t, table.ChunkIDs(), 1, "expected no new chunks appended after rollback")
}

func TestSorter_RejectsOperationsOutOfOrder(t *testing.T) {
	table, chunkID := buildTable(t, 1, 2)
	s := NewSorter(table, []int{chunkID}, 0)

	require.Error(t, s.Lock(mvcc.NextTID()), "expected an error calling Lock before SortAndSnapshot")
	require.Error(t, s.Commit(mvcc.NextCommitID()), "expected an error calling Commit before Lock")
}
