// Package channel implements the request/acknowledge links to the printer
// board and the projector.
package channel

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var (
	// ErrNotOpen is returned by Send before Open succeeds or after Close.
	ErrNotOpen = errors.New("channel not open")
	// ErrAckTimeout is returned when a command is not acknowledged within
	// its retry budget.
	ErrAckTimeout = errors.New("no acknowledgement within retry budget")
	// ErrUnknownCommand is returned for names the board does not know.
	ErrUnknownCommand = errors.New("unknown command")
)

// DefaultAckTimeout is the per-attempt acknowledgement wait. It is also the
// retry budget of a command that does not set one.
const DefaultAckTimeout = 2 * time.Second

// Command is one request to a device.
//
// Native boards use Name and Payload. Text devices send Line, which may hold
// several newline-separated lines.
type Command struct {
	Name        string
	Payload     int
	Line        string
	AckRequired bool
	Retry       time.Duration // total budget; 0 means one attempt
}

// Channel is a link to one device. Close must be safe to call on a channel
// that never opened, and more than once.
type Channel interface {
	Open(ctx context.Context) error
	Send(ctx context.Context, cmd Command) error
	Close() error
}

func ensureLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func budgetOf(cmd Command, ackTimeout time.Duration) time.Duration {
	if cmd.Retry > 0 {
		return cmd.Retry
	}
	return ackTimeout
}
