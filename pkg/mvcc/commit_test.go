package mvcc

import "testing"

func TestVisibleAt(t *testing.T) {
	tests := []struct {
		name     string
		begin    CommitID
		end      CommitID
		snapshot CommitID
		expected bool
	}{
		{"alive row always visible", 0, MaxCommitID, 42, true},
		{"invalidated before snapshot is invisible", 0, 10, 20, false},
		{"invalidated after snapshot is visible", 0, 20, 10, true},
		{"invalidated exactly at snapshot is invisible", 0, 10, 10, false},
		{"not yet begun is invisible", 30, MaxCommitID, 20, false},
		{"begun exactly at snapshot is visible", 30, MaxCommitID, 30, true},
		{"begun and since invalidated", 10, 20, 15, true},
		{"begun after snapshot and already invalidated", 30, 35, 20, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VisibleAt(tt.begin, tt.end, tt.snapshot); got != tt.expected {
				t.Errorf("VisibleAt(%d, %d, %d) = %v, expected %v", tt.begin, tt.end, tt.snapshot, got, tt.expected)
			}
		})
	}
}

func TestNextCommitID_Monotonic(t *testing.T) {
	a := NextCommitID()
	b := NextCommitID()

	if b <= a {
		t.Errorf("Expected commit ids to increase, got %d then %d", a, b)
	}
}
