package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pc6b/monkeyprint/host/serial"
	"github.com/pc6b/monkeyprint/protocol"
)

// Board talks the framed native protocol to a monkeyprint controller.
type Board struct {
	cfg        *serial.Config
	open       serial.Opener
	logger     *slog.Logger
	ackTimeout time.Duration

	mu        sync.Mutex
	transport *protocol.HostTransport
}

// BoardOption configures a Board.
type BoardOption func(*Board)

// WithOpener replaces the serial opener, e.g. with an in-memory pipe.
func WithOpener(open serial.Opener) BoardOption {
	return func(b *Board) { b.open = open }
}

// WithAckTimeout sets the per-attempt acknowledgement wait.
func WithAckTimeout(d time.Duration) BoardOption {
	return func(b *Board) {
		if d > 0 {
			b.ackTimeout = d
		}
	}
}

// WithBoardLogger sets the logger.
func WithBoardLogger(logger *slog.Logger) BoardOption {
	return func(b *Board) { b.logger = ensureLogger(logger) }
}

// NewBoard returns an unopened board channel.
func NewBoard(cfg *serial.Config, opts ...BoardOption) *Board {
	b := &Board{
		cfg:        cfg,
		open:       serial.Open,
		logger:     slog.Default(),
		ackTimeout: DefaultAckTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "board")
	return b
}

// Open opens the serial port and starts the protocol read loop.
func (b *Board) Open(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.transport != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	port, err := b.open(b.cfg)
	if err != nil {
		return fmt.Errorf("open board: %w", err)
	}
	if err := port.Flush(); err != nil {
		b.logger.Debug("flush failed", "error", err)
	}

	t := protocol.NewHostTransport(port)
	t.SetResponseHandler(b.handleResponse)
	b.transport = t

	b.logger.Info("board connected", "device", b.cfg.Device, "baud", b.cfg.Baud)
	return nil
}

func (b *Board) current() *protocol.HostTransport {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.transport
}

// Send transmits cmd. Commands that require an ack are re-sent every ack
// timeout until the retry budget runs out.
func (b *Board) Send(ctx context.Context, cmd Command) error {
	t := b.current()
	if t == nil {
		return fmt.Errorf("send %s: %w", cmd.Name, ErrNotOpen)
	}

	id, ok := protocol.CommandID(cmd.Name)
	if !ok {
		return fmt.Errorf("send %s: %w", cmd.Name, ErrUnknownCommand)
	}
	arg := int32(cmd.Payload)

	if !cmd.AckRequired {
		if err := t.Post(id, arg); err != nil {
			return fmt.Errorf("send %s: %w", cmd.Name, err)
		}
		return nil
	}

	deadline := time.Now().Add(budgetOf(cmd, b.ackTimeout))
	for attempt := 1; ; attempt++ {
		wait := min(b.ackTimeout, time.Until(deadline))
		if wait <= 0 {
			wait = time.Millisecond
		}

		err := t.Send(id, arg, wait)
		if err == nil {
			if attempt > 1 {
				b.logger.Debug("command acknowledged after retry", "command", cmd.Name, "attempts", attempt)
			}
			return nil
		}
		if !errors.Is(err, protocol.ErrAckTimeout) {
			return fmt.Errorf("send %s: %w", cmd.Name, err)
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("send %s after %d attempts: %w", cmd.Name, attempt, ErrAckTimeout)
		}
		if ctx.Err() != nil {
			return fmt.Errorf("send %s: %w", cmd.Name, ctx.Err())
		}
		b.logger.Debug("no ack, retrying", "command", cmd.Name, "attempt", attempt)
	}
}

func (b *Board) handleResponse(cmdID uint16, payload []byte) {
	if cmdID != protocol.ResponseLog {
		b.logger.Debug("unexpected response", "id", cmdID, "bytes", len(payload))
		return
	}
	text, err := protocol.DecodeVLQString(&payload)
	if err != nil {
		b.logger.Warn("malformed board message", "error", err)
		return
	}
	b.logger.Info("board: " + text)
}

// Close stops the transport and closes the port.
func (b *Board) Close() error {
	b.mu.Lock()
	t := b.transport
	b.transport = nil
	b.mu.Unlock()

	if t == nil {
		return nil
	}
	if err := t.Close(); err != nil {
		return fmt.Errorf("close board: %w", err)
	}
	return nil
}
