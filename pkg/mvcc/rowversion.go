package mvcc

import "sync/atomic"

// RowVersion holds the three fields that make a row MVCC-visible: the
// transaction currently holding it for a write (Tid, 0 when unheld), the
// commit id at which it became visible (BeginCID, 0 for a row inserted
// outside any tracked commit), and the commit id at which it was
// invalidated (EndCID, MaxCommitID while alive). It is embedded once per
// row in a chunk (see pkg/storage).
type RowVersion struct {
	tid      atomic.Uint64
	beginCID atomic.Uint64
	endCID   atomic.Uint64
}

// NewRowVersion returns a row version for a freshly inserted, still-live row,
// visible to every snapshot from the start (BeginCID zero).
func NewRowVersion() *RowVersion {
	rv := &RowVersion{}
	rv.endCID.Store(uint64(MaxCommitID))
	return rv
}

// TryLock attempts to claim the row for tid via compare-and-swap from the
// unheld state (0). It returns false if another transaction already holds
// the row, the condition the clustering sorter retries or aborts on.
func (rv *RowVersion) TryLock(tid TID) bool {
	return rv.tid.CompareAndSwap(0, uint64(tid))
}

// Unlock releases the row back to the unheld state, used on rollback.
func (rv *RowVersion) Unlock() {
	rv.tid.Store(0)
}

// HoldingTID returns the transaction currently holding the row, or 0.
func (rv *RowVersion) HoldingTID() TID {
	return TID(rv.tid.Load())
}

// SetEndCID invalidates the row as of commit, making it invisible to any
// snapshot taken at or after that commit.
func (rv *RowVersion) SetEndCID(commit CommitID) {
	rv.endCID.Store(uint64(commit))
}

// EndCID returns the row's current invalidation commit id.
func (rv *RowVersion) EndCID() CommitID {
	return CommitID(rv.endCID.Load())
}

// SetBeginCID stamps the commit id at which the row became visible. A chunk
// built by a committing operator (the clustering sorter, the partitioner)
// calls this on every row of the chunk it appends, at the same commit id
// used to invalidate the rows it replaces — otherwise a reader holding an
// older snapshot would see both the old and the new row at once.
func (rv *RowVersion) SetBeginCID(commit CommitID) {
	rv.beginCID.Store(uint64(commit))
}

// BeginCID returns the commit id at which the row became visible, or 0 for
// a row inserted outside any tracked commit (visible to every snapshot).
func (rv *RowVersion) BeginCID() CommitID {
	return CommitID(rv.beginCID.Load())
}

// VisibleAt reports whether the row is visible to a reader holding snapshot.
func (rv *RowVersion) VisibleAt(snapshot CommitID) bool {
	return VisibleAt(rv.BeginCID(), rv.EndCID(), snapshot)
}
