package mvcc

import (
	"math"
	"sync/atomic"
)

var commitCounter uint64

// CommitID orders transaction commits. A row's BeginCID/EndCID are compared
// against a reader's snapshot CommitID to decide visibility: the row is
// visible iff the snapshot is at or after BeginCID and strictly before
// EndCID (or EndCID is still MaxCommitID, meaning never invalidated).
type CommitID uint64

// MaxCommitID marks a row that has not been invalidated by any commit yet,
// i.e. it is still alive as far as any reader can tell.
const MaxCommitID CommitID = math.MaxUint64

// NextCommitID returns a freshly allocated, monotonically increasing commit
// id. Called once per committing transaction.
func NextCommitID() CommitID {
	return CommitID(atomic.AddUint64(&commitCounter, 1))
}

// CurrentCommitID returns the most recently allocated commit id without
// allocating a new one, used to stamp a new snapshot's read frontier.
func CurrentCommitID() CommitID {
	return CommitID(atomic.LoadUint64(&commitCounter))
}

// VisibleAt reports whether a row with the given begin/end commit ids is
// visible to a reader holding snapshot: the reader's snapshot must be no
// older than the row's begin (it must have started existing yet) and the
// row must not have been invalidated at or before the snapshot.
func VisibleAt(begin, end CommitID, snapshot CommitID) bool {
	return snapshot >= begin && (end == MaxCommitID || end > snapshot)
}
