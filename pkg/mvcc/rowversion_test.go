package mvcc

import "testing"

func TestRowVersion_NewIsAliveAndUnheld(t *testing.T) {
	rv := NewRowVersion()

	if rv.HoldingTID().IsHeld() {
		t.Error("Expected a freshly created row version to be unheld")
	}
	if rv.EndCID() != MaxCommitID {
		t.Errorf("Expected new row to have EndCID MaxCommitID, got %d", rv.EndCID())
	}
	if !rv.VisibleAt(0) {
		t.Error("Expected a freshly created row to be visible at any snapshot")
	}
}

func TestRowVersion_TryLock(t *testing.T) {
	rv := NewRowVersion()
	tid1 := NextTID()
	tid2 := NextTID()

	if !rv.TryLock(tid1) {
		t.Fatal("Expected first lock attempt to succeed")
	}
	if rv.TryLock(tid2) {
		t.Error("Expected second lock attempt by a different transaction to fail")
	}
	if rv.HoldingTID() != tid1 {
		t.Errorf("Expected holding TID %v, got %v", tid1, rv.HoldingTID())
	}

	rv.Unlock()
	if !rv.TryLock(tid2) {
		t.Error("Expected lock to succeed after unlock")
	}
}

func TestRowVersion_SetEndCID(t *testing.T) {
	rv := NewRowVersion()
	rv.SetEndCID(CommitID(5))

	if rv.VisibleAt(CommitID(10)) {
		t.Error("Expected row invalidated at commit 5 to be invisible to snapshot 10")
	}
	if !rv.VisibleAt(CommitID(3)) {
		t.Error("Expected row invalidated at commit 5 to be visible to snapshot 3")
	}
}

func TestRowVersion_SetBeginCID(t *testing.T) {
	rv := NewRowVersion()
	rv.SetBeginCID(CommitID(20))

	if rv.BeginCID() != CommitID(20) {
		t.Errorf("Expected BeginCID 20, got %d", rv.BeginCID())
	}
	if rv.VisibleAt(CommitID(10)) {
		t.Error("Expected a row whose begin is 20 to be invisible to an older snapshot 10")
	}
	if !rv.VisibleAt(CommitID(20)) {
		t.Error("Expected a row to be visible to a snapshot exactly at its begin commit")
	}
	if !rv.VisibleAt(CommitID(30)) {
		t.Error("Expected a row to be visible to a snapshot taken after its begin commit")
	}
}

func TestRowVersion_BeginAndEndBothGateVisibility(t *testing.T) {
	rv := NewRowVersion()
	rv.SetBeginCID(CommitID(10))
	rv.SetEndCID(CommitID(20))

	if rv.VisibleAt(CommitID(5)) {
		t.Error("Expected invisible before begin")
	}
	if !rv.VisibleAt(CommitID(15)) {
		t.Error("Expected visible between begin and end")
	}
	if rv.VisibleAt(CommitID(25)) {
		t.Error("Expected invisible after end")
	}
}
