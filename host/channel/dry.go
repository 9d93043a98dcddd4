package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pc6b/monkeyprint/gcode"
)

// Dry stands in for a device in debug runs. It accepts everything and keeps
// a record. GCode lines are fed to an optional Tracker.
type Dry struct {
	name    string
	logger  *slog.Logger
	tracker *gcode.Tracker

	mu     sync.Mutex
	opened bool
	sent   []Command
}

// NewDry returns a dry channel. tracker may be nil.
func NewDry(name string, logger *slog.Logger, tracker *gcode.Tracker) *Dry {
	return &Dry{
		name:    name,
		logger:  ensureLogger(logger).With("component", "dry-"+name),
		tracker: tracker,
	}
}

func (d *Dry) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	d.opened = true
	d.mu.Unlock()
	d.logger.Info("dry run, no device opened")
	return nil
}

func (d *Dry) Send(_ context.Context, cmd Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.opened {
		return fmt.Errorf("send %s: %w", cmd.Name, ErrNotOpen)
	}
	d.sent = append(d.sent, cmd)

	if d.tracker != nil && cmd.Line != "" {
		for _, line := range strings.Split(cmd.Line, "\n") {
			if err := d.tracker.Feed(line); err != nil {
				return fmt.Errorf("send %s: %w", cmd.Name, err)
			}
		}
		d.logger.Debug("command", "name", cmd.Name, "line", cmd.Line, "position", d.tracker.String())
		return nil
	}
	d.logger.Debug("command", "name", cmd.Name, "payload", cmd.Payload, "line", cmd.Line)
	return nil
}

func (d *Dry) Close() error {
	d.mu.Lock()
	d.opened = false
	d.mu.Unlock()
	return nil
}

// Sent returns a copy of every command accepted so far.
func (d *Dry) Sent() []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Command(nil), d.sent...)
}

// Z is the tracked platform height, or 0 without a tracker.
func (d *Dry) Z() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tracker == nil {
		return 0
	}
	return d.tracker.Z()
}
