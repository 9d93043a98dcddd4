package progress

import (
	"context"
	"errors"
	"testing"
	"time"
)

// ackAll acknowledges every frame and records the indices.
func ackAll(h *Handoff, stop <-chan struct{}) <-chan []int {
	out := make(chan []int, 1)
	go func() {
		var seen []int
		for {
			select {
			case idx := <-h.Frames():
				seen = append(seen, idx)
				h.Ack()
			case <-stop:
				out <- seen
				return
			}
		}
	}()
	return out
}

func TestHandoffShowWaitsForAck(t *testing.T) {
	h := NewHandoff(newTestLogger())
	stop := make(chan struct{})
	seen := ackAll(h, stop)

	ctx := context.Background()
	for _, idx := range []int{Blank, 1, Blank, 2, Blank} {
		if err := h.Show(ctx, idx); err != nil {
			t.Fatalf("Show(%d) error = %v", idx, err)
		}
	}
	close(stop)

	got := <-seen
	want := []int{Blank, 1, Blank, 2, Blank}
	if len(got) != len(want) {
		t.Fatalf("display saw %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("display saw %v, want %v", got, want)
		}
	}
}

func TestHandoffDiscardsStaleAck(t *testing.T) {
	h := NewHandoff(newTestLogger())
	h.Ack() // left over from some earlier frame

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := h.Show(ctx, 5)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Show() error = %v, want the stale ack to be ignored", err)
	}
	if idx := <-h.Frames(); idx != 5 {
		t.Errorf("frame = %d, want 5", idx)
	}
}

func TestHandoffForceBlankNeverBlocks(t *testing.T) {
	h := NewHandoff(newTestLogger())

	done := make(chan struct{})
	go func() {
		h.ForceBlank()
		h.ForceBlank()
		h.ForceBlank()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ForceBlank blocked without a consumer")
	}

	if idx := <-h.Frames(); idx != Blank {
		t.Errorf("frame = %d, want Blank", idx)
	}
	select {
	case idx := <-h.Frames():
		t.Errorf("unexpected extra frame %d", idx)
	default:
	}
}

func TestHandoffBlankTwice(t *testing.T) {
	h := NewHandoff(newTestLogger())
	stop := make(chan struct{})
	seen := ackAll(h, stop)

	if err := h.Show(context.Background(), Blank); err != nil {
		t.Fatalf("Show(Blank) error = %v", err)
	}
	h.ForceBlank()

	// The forced blank gets acknowledged; the next Show must not mistake that
	// ack for its own.
	time.Sleep(20 * time.Millisecond)
	if err := h.Show(context.Background(), 1); err != nil {
		t.Fatalf("Show(1) error = %v", err)
	}
	close(stop)

	got := <-seen
	if len(got) != 3 || got[2] != 1 {
		t.Errorf("display saw %v, want [-1 -1 1]", got)
	}
}

func TestHandoffWarnsWhenStalled(t *testing.T) {
	h := NewHandoff(newTestLogger())
	h.AckWarnAfter = 5 * time.Millisecond

	go func() {
		<-h.Frames()
		time.Sleep(30 * time.Millisecond)
		h.Ack()
	}()

	if err := h.Show(context.Background(), 3); err != nil {
		t.Fatalf("Show() error = %v", err)
	}
}
