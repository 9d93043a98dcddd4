package channel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/pc6b/monkeyprint/host/serial"
)

// Projector sends power commands to a projector's RS-232 port. Projectors
// answer inconsistently, so nothing is read back.
type Projector struct {
	cfg        *serial.Config
	open       serial.Opener
	logger     *slog.Logger
	Terminator string

	mu   sync.Mutex
	port serial.Port
}

// NewProjector returns an unopened projector channel.
func NewProjector(cfg *serial.Config, open serial.Opener, logger *slog.Logger) *Projector {
	if open == nil {
		open = serial.Open
	}
	return &Projector{
		cfg:        cfg,
		open:       open,
		logger:     ensureLogger(logger).With("component", "projector"),
		Terminator: "\r",
	}
}

func (p *Projector) Open(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	port, err := p.open(p.cfg)
	if err != nil {
		return fmt.Errorf("open projector: %w", err)
	}
	p.port = port
	p.logger.Info("projector connected", "device", p.cfg.Device)
	return nil
}

// Send writes cmd.Line followed by the terminator.
func (p *Projector) Send(ctx context.Context, cmd Command) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return fmt.Errorf("send %s: %w", cmd.Name, ErrNotOpen)
	}
	if _, err := io.WriteString(p.port, cmd.Line+p.Terminator); err != nil {
		return fmt.Errorf("send %s: %w", cmd.Name, err)
	}
	p.logger.Debug("sent", "command", cmd.Name, "line", cmd.Line)
	return nil
}

func (p *Projector) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	if err != nil {
		return fmt.Errorf("close projector: %w", err)
	}
	return nil
}
