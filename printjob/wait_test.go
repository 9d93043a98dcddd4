package printjob

import (
	"testing"
	"time"
)

func TestWaitDuration(t *testing.T) {
	start := time.Now()
	wait(30*time.Millisecond, 5*time.Millisecond, nil)
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("wait returned after %v", elapsed)
	}
}

func TestWaitTriggersOnce(t *testing.T) {
	calls := 0
	wait(50*time.Millisecond, 5*time.Millisecond, func() { calls++ })
	if calls != 1 {
		t.Errorf("trigger called %d times, want 1", calls)
	}
}

func TestWaitTooShortForTrigger(t *testing.T) {
	calls := 0
	wait(6*time.Millisecond, 5*time.Millisecond, func() { calls++ })
	if calls != 0 {
		t.Errorf("trigger called %d times, want 0", calls)
	}
}

func TestWaitZero(t *testing.T) {
	calls := 0
	start := time.Now()
	wait(0, time.Second, func() { calls++ })
	wait(-time.Second, time.Second, func() { calls++ })
	if time.Since(start) > 100*time.Millisecond || calls != 0 {
		t.Errorf("zero wait blocked or triggered (calls=%d)", calls)
	}
}
