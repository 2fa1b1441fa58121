package mvcc

import "testing"

func TestRegistry_BeginAndGet(t *testing.T) {
	reg := NewRegistry()

	snap := reg.Begin()
	if reg.Count() != 1 {
		t.Errorf("Expected registry count 1, got %d", reg.Count())
	}

	got, err := reg.Get(snap.TID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != snap {
		t.Error("Expected to retrieve the same snapshot")
	}
}

func TestRegistry_Get_NotFound(t *testing.T) {
	reg := NewRegistry()

	if _, err := reg.Get(NextTID()); err == nil {
		t.Error("Expected error retrieving an unregistered TID")
	}
}

func TestRegistry_Remove(t *testing.T) {
	reg := NewRegistry()
	snap := reg.Begin()

	reg.Remove(snap.TID)
	if reg.Count() != 0 {
		t.Errorf("Expected registry count 0 after remove, got %d", reg.Count())
	}
	if _, err := reg.Get(snap.TID); err == nil {
		t.Error("Expected error getting a removed snapshot")
	}
}

func TestRegistry_LowestActiveSnapshot(t *testing.T) {
	reg := NewRegistry()

	if reg.LowestActiveSnapshot() != MaxCommitID {
		t.Error("Expected MaxCommitID when no transaction is active")
	}

	snap1 := reg.Begin()
	NextCommitID()
	snap2 := reg.Begin()

	if snap2.ID <= snap1.ID {
		t.Fatalf("Expected snap2 (%d) to have a later id than snap1 (%d)", snap2.ID, snap1.ID)
	}

	if reg.LowestActiveSnapshot() != snap1.ID {
		t.Errorf("Expected lowest active snapshot to be %d, got %d", snap1.ID, reg.LowestActiveSnapshot())
	}

	reg.Remove(snap1.TID)
	if reg.LowestActiveSnapshot() != snap2.ID {
		t.Errorf("Expected lowest active snapshot to be %d after removing snap1, got %d", snap2.ID, reg.LowestActiveSnapshot())
	}
}
