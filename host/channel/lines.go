package channel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pc6b/monkeyprint/host/serial"
)

// Lines sends textual GCode to a board, one line at a time, waiting for the
// board's "ok" after each line when an ack is required.
type Lines struct {
	cfg        *serial.Config
	open       serial.Opener
	logger     *slog.Logger
	ackTimeout time.Duration

	mu   sync.Mutex
	port serial.Port
	oks  chan struct{}
	done chan struct{}

	sendMu sync.Mutex
}

// NewLines returns an unopened GCode line channel.
func NewLines(cfg *serial.Config, open serial.Opener, logger *slog.Logger) *Lines {
	if open == nil {
		open = serial.Open
	}
	return &Lines{
		cfg:        cfg,
		open:       open,
		logger:     ensureLogger(logger).With("component", "gcode-link"),
		ackTimeout: DefaultAckTimeout,
	}
}

// Open opens the port and starts reading responses.
func (l *Lines) Open(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	port, err := l.open(l.cfg)
	if err != nil {
		return fmt.Errorf("open gcode board: %w", err)
	}
	l.port = port
	l.oks = make(chan struct{}, 16)
	l.done = make(chan struct{})
	go l.readLoop(port, l.oks, l.done)

	l.logger.Info("gcode board connected", "device", l.cfg.Device, "baud", l.cfg.Baud)
	return nil
}

// Send writes every line of cmd.Line in order.
func (l *Lines) Send(ctx context.Context, cmd Command) error {
	l.mu.Lock()
	port, oks := l.port, l.oks
	l.mu.Unlock()
	if port == nil {
		return fmt.Errorf("send %s: %w", cmd.Name, ErrNotOpen)
	}

	l.sendMu.Lock()
	defer l.sendMu.Unlock()

	for _, raw := range strings.Split(cmd.Line, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || line[0] == ';' {
			continue
		}

		drain(oks)
		if _, err := io.WriteString(port, line+"\n"); err != nil {
			return fmt.Errorf("send %s: %w", cmd.Name, err)
		}
		l.logger.Debug("sent", "command", cmd.Name, "line", line)

		if !cmd.AckRequired {
			continue
		}
		if err := l.waitOK(ctx, oks, budgetOf(cmd, l.ackTimeout)); err != nil {
			return fmt.Errorf("send %s (%q): %w", cmd.Name, line, err)
		}
	}
	return nil
}

func (l *Lines) waitOK(ctx context.Context, oks <-chan struct{}, budget time.Duration) error {
	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case _, ok := <-oks:
		if !ok {
			return ErrNotOpen
		}
		return nil
	case <-timer.C:
		return ErrAckTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func drain(ch <-chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

// readLoop splits the response stream into lines. It does not use
// bufio.Scanner because timed-out reads return no data.
func (l *Lines) readLoop(port io.Reader, oks chan<- struct{}, done chan<- struct{}) {
	defer close(done)
	defer close(oks)

	buf := make([]byte, 256)
	var pending []byte
	for {
		n, err := port.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				i := bytes.IndexByte(pending, '\n')
				if i < 0 {
					break
				}
				l.handleLine(strings.TrimSpace(string(pending[:i])), oks)
				pending = pending[i+1:]
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				l.logger.Debug("read loop stopped", "error", err)
			}
			return
		}
	}
}

func (l *Lines) handleLine(line string, oks chan<- struct{}) {
	switch {
	case line == "":
	case strings.HasPrefix(line, "ok"):
		select {
		case oks <- struct{}{}:
		default:
		}
	case strings.HasPrefix(line, "Error") || strings.HasPrefix(line, "!!"):
		l.logger.Warn("board error", "line", line)
	default:
		l.logger.Debug("board says", "line", line)
	}
}

// Close closes the port and waits for the reader to exit.
func (l *Lines) Close() error {
	l.mu.Lock()
	port, done := l.port, l.done
	l.port = nil
	l.mu.Unlock()

	if port == nil {
		return nil
	}
	err := port.Close()
	<-done
	if err != nil {
		return fmt.Errorf("close gcode board: %w", err)
	}
	return nil
}
