// Package mvcc provides the row-visibility primitives shared by the storage
// and clustering packages: the holding-transaction id stamped on a row, the
// commit id that invalidates it, and the registry of active snapshots that
// gates when a tombstoned chunk is safe to discard.
package mvcc

import (
	"fmt"
	"sync/atomic"
)

var tidCounter uint64

// TID identifies the transaction currently holding a row. Zero means
// unheld: no transaction has locked the row for a write.
type TID uint64

// NextTID returns a freshly allocated, process-unique transaction id.
func NextTID() TID {
	return TID(atomic.AddUint64(&tidCounter, 1))
}

func (t TID) String() string {
	return fmt.Sprintf("TID-%d", uint64(t))
}

// IsHeld reports whether t identifies a transaction (as opposed to the zero
// value, which means the row is unheld and free to be locked).
func (t TID) IsHeld() bool {
	return t != 0
}
