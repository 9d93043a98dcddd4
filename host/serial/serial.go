// Package serial opens the serial links to the controller board and the
// projector.
package serial

import (
	"io"
	"time"
)

// Port is an open serial link. Implementations:
//   - native serial through github.com/tarm/serial
//   - in-memory pipes in tests
type Port interface {
	io.ReadWriteCloser

	// Flush discards data buffered by the driver in both directions.
	Flush() error
}

// Config describes one serial device.
type Config struct {
	// Device path, e.g. "/dev/ttyACM0" or "COM3".
	Device string

	Baud int

	// ReadTimeout bounds a single Read; 0 blocks.
	ReadTimeout time.Duration
}

// Opener opens a Port for a Config. Channels take an Opener so that tests can
// substitute pipes for hardware.
type Opener func(cfg *Config) (Port, error)

// DefaultConfig returns the settings used for the monkeyprint board.
func DefaultConfig(device string, baud int) *Config {
	if baud <= 0 {
		baud = 57600
	}
	return &Config{
		Device:      device,
		Baud:        baud,
		ReadTimeout: 100 * time.Millisecond,
	}
}
