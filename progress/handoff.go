package progress

import (
	"context"
	"log/slog"
	"time"
)

// Blank is the slice index meaning "show nothing".
const Blank = -1

// DefaultAckWarnAfter is how long Show waits before warning that the display
// has not confirmed a frame.
const DefaultAckWarnAfter = 10 * time.Second

// Handoff is the rendezvous between the orchestrator and the display
// consumer. Each direction holds at most one value.
//
// The consumer must call Ack exactly once for every index it receives from
// Frames. A consumer that drops a frame stalls Show; Show logs a warning
// every AckWarnAfter while stalled.
type Handoff struct {
	frames chan int
	acks   chan struct{}

	logger       *slog.Logger
	AckWarnAfter time.Duration
}

// NewHandoff creates an empty handoff.
func NewHandoff(logger *slog.Logger) *Handoff {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handoff{
		frames:       make(chan int, 1),
		acks:         make(chan struct{}, 1),
		logger:       logger.With("component", "handoff"),
		AckWarnAfter: DefaultAckWarnAfter,
	}
}

// Show hands slice to the display and blocks until it is acknowledged. Any
// acknowledgement left over from an earlier frame is discarded first. ctx
// only bounds the wait; it is not a cancellation point for a print.
func (h *Handoff) Show(ctx context.Context, slice int) error {
	select {
	case <-h.acks:
		h.logger.Debug("discarded stale ack", "slice", slice)
	default:
	}

	select {
	case h.frames <- slice:
	case <-ctx.Done():
		return ctx.Err()
	}

	warnAfter := h.AckWarnAfter
	if warnAfter <= 0 {
		warnAfter = DefaultAckWarnAfter
	}
	warn := time.NewTicker(warnAfter)
	defer warn.Stop()
	start := time.Now()

	for {
		select {
		case <-h.acks:
			return nil
		case <-warn.C:
			h.logger.Warn("display has not acknowledged frame",
				"slice", slice, "waited", time.Since(start).Round(time.Millisecond))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ForceBlank queues a blank frame without waiting. A frame the display has
// not yet picked up is replaced.
func (h *Handoff) ForceBlank() {
	offer(h.frames, Blank)
}

// Frames is the consumer side of the index mailbox.
func (h *Handoff) Frames() <-chan int {
	return h.frames
}

// Ack confirms the last frame received. It never blocks.
func (h *Handoff) Ack() {
	select {
	case h.acks <- struct{}{}:
	default:
	}
}
