package main

import (
	"log/slog"

	"github.com/pc6b/monkeyprint/config"
	"github.com/pc6b/monkeyprint/gcode"
	"github.com/pc6b/monkeyprint/host/channel"
	"github.com/pc6b/monkeyprint/host/serial"
	"github.com/pc6b/monkeyprint/printjob"
)

// newPrinter returns the channel for the printer board described by s.
func newPrinter(s config.Settings, logger *slog.Logger) channel.Channel {
	cfg := serial.DefaultConfig(s.Printer.Device, s.Printer.Baud)
	if s.MonkeyprintBoard {
		return channel.NewBoard(cfg, channel.WithBoardLogger(logger))
	}
	return channel.NewLines(cfg, serial.Open, logger)
}

// newDevices builds the job's channels. Debug settings get dry channels; the
// returned tracker then follows the platform height.
func newDevices(s config.Settings, logger *slog.Logger) (printjob.Devices, *gcode.Tracker) {
	if s.Debug {
		tracker := gcode.NewTracker()
		return printjob.Devices{
			Printer:   channel.NewDry("printer", logger, tracker),
			Projector: channel.NewDry("projector", logger, nil),
		}, tracker
	}

	projector := channel.NewProjector(serial.DefaultConfig(s.Projector.Device, s.Projector.Baud), serial.Open, logger)
	return printjob.Devices{
		Printer:   newPrinter(s, logger),
		Projector: projector,
	}, nil
}
