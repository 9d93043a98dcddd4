package gcode

import "testing"

func TestTrackerFollowsZ(t *testing.T) {
	tr := NewTracker()

	lines := []string{
		"G28 Z",
		"G91",
		"G1 Z0.05 F100",
		"G1 Z0.05 F100",
		"G90",
		"G1 X10",
		"; comment",
		"M280 P0 S90",
	}
	for _, line := range lines {
		if err := tr.Feed(line); err != nil {
			t.Fatalf("Feed(%q) error = %v", line, err)
		}
	}

	if !tr.Homed() {
		t.Error("expected tracker to be homed")
	}
	if !tr.Absolute() {
		t.Error("expected absolute mode after G90")
	}
	if got := tr.Z(); got < 0.0999 || got > 0.1001 {
		t.Errorf("Z() = %f, want 0.1", got)
	}

	if err := tr.Feed("G1 Z20"); err != nil {
		t.Fatal(err)
	}
	if tr.Z() != 20 {
		t.Errorf("absolute Z() = %f, want 20", tr.Z())
	}

	if err := tr.Feed("G92 Z5"); err != nil {
		t.Fatal(err)
	}
	if tr.Z() != 5 {
		t.Errorf("Z() after G92 = %f, want 5", tr.Z())
	}
}

func TestTrackerRejectsGarbage(t *testing.T) {
	tr := NewTracker()
	if err := tr.Feed("up 10"); err == nil {
		t.Error("Feed() accepted a non-GCode line")
	}
}
