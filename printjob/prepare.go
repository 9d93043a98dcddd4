package printjob

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pc6b/monkeyprint/host/channel"
	"github.com/pc6b/monkeyprint/progress"
)

// bubbleTilts is the number of tilts that clear bubbles before printing.
const bubbleTilts = 3

func (o *Orchestrator) prepare(ctx context.Context) {
	o.setState(Preparing, 0)
	o.emit(progress.Count(progress.PhasePreparing, progress.SubNSlices, o.slices))
	o.sink.Printf("Initialising print process.")

	if !o.connectPrinter(ctx) {
		return
	}

	if o.act(ctx, "ping", o.dispatch.Ping) == nil && o.settings.MonkeyprintBoard {
		o.emit(progress.NewStatus(progress.PhasePreparing, progress.SubConnectionSuccess, ""))
	}

	o.act(ctx, "parameters", func(ctx context.Context) error {
		return o.dispatch.PushParameters(ctx, Parameters{
			Slices:        o.slices,
			Timing:        o.timing,
			ShutterOpen:   o.settings.Shutter.OpenPosition,
			ShutterClosed: o.settings.Shutter.ClosedPosition,
		})
	})
	o.act(ctx, "start", o.dispatch.Start)

	o.connectProjector(ctx)

	if !o.Cancelled() {
		o.show(ctx, progress.Blank)
	}

	if o.projectorConnected && !o.Cancelled() {
		o.emit(progress.NewStatus(progress.PhasePreparing, progress.SubStartingProjector, ""))
		o.sink.Printf("Activating projector.")
		if err := o.attempt(ctx, "activate projector", o.projectorPower(true)); err != nil {
			// Printing goes on; the operator switches the projector on by hand.
			o.projectorConnected = false
			o.emit(progress.NewStatus(progress.PhaseError, progress.SubProjectorNotFound, ""))
		}
	}

	if o.settings.Shutter.Enabled && !o.Cancelled() {
		o.emit(progress.NewStatus(progress.PhasePreparing, progress.SubShutter, ""))
		o.sink.Printf("Closing shutter.")
		o.act(ctx, "shutterClose", o.dispatch.ShutterClose)
		o.act(ctx, "shutterEnable", o.dispatch.ShutterEnable)
	}

	if !o.Cancelled() {
		o.emit(progress.NewStatus(progress.PhasePreparing, progress.SubHoming, ""))
		o.sink.Printf("Homing build platform.")
		o.act(ctx, "buildHome", o.dispatch.Home)
	}

	if o.settings.Tilt.Enabled && !o.Cancelled() {
		o.emit(progress.NewStatus(progress.PhasePreparing, progress.SubBubbles, ""))
		o.sink.Printf("Tilting to get rid of bubbles.")
		for i := 0; i < bubbleTilts; i++ {
			o.act(ctx, "tilt", o.dispatch.Tilt)
		}
	}

	if !o.Cancelled() {
		secs := strconv.FormatFloat(o.settings.ResinSettle.Seconds(), 'f', -1, 64)
		o.emit(progress.NewStatus(progress.PhasePreparing, progress.SubResinSettle, secs))
		o.sink.Printf("Waiting %s seconds for resin to settle.", secs)
		wait(o.settings.ResinSettle, o.tick, nil)
	}

	o.act(ctx, "printingFlag", func(ctx context.Context) error {
		return o.dispatch.PrintingFlag(ctx, true)
	})
}

// connectPrinter opens the printer channel. Failure is fatal for the run.
func (o *Orchestrator) connectPrinter(ctx context.Context) bool {
	if o.Cancelled() {
		return false
	}

	o.emit(progress.NewStatus(progress.PhasePreparing, progress.SubConnecting, ""))
	if err := o.printer.Open(ctx); err != nil {
		o.logger.Error("printer connection failed", "device", o.settings.Printer.Device, "error", err)
		o.setState(Error, 0)
		o.emit(progress.NewStatus(progress.PhaseError, progress.SubConnectionFail, ""))
		o.sink.Printf("Serial port %s not found. Aborting.\nMake sure your board is plugged in and you have defined the correct serial port in the settings.",
			o.settings.Printer.Device)
		o.escalate(fmt.Errorf("%w: %w", ErrConnection, err))
		return false
	}
	o.printerConnected = true
	return true
}

// connectProjector opens the projector channel. Failure only disables
// projector control.
func (o *Orchestrator) connectProjector(ctx context.Context) {
	if o.Cancelled() {
		return
	}

	o.emit(progress.NewStatus(progress.PhasePreparing, progress.SubStartingProjector, ""))
	if err := o.projector.Open(ctx); err != nil {
		o.logger.Warn("projector not found", "device", o.settings.Projector.Device, "error", err)
		o.emit(progress.NewStatus(progress.PhaseError, progress.SubProjectorNotFound, ""))
		o.sink.Printf("Projector not found on port %s.\nMake sure you have defined the correct serial port in the settings. Start the projector manually.",
			o.settings.Projector.Device)
		return
	}
	o.projectorConnected = true
	o.emit(progress.NewStatus(progress.PhasePreparing, progress.SubProjectorConnect, ""))
}

func (o *Orchestrator) projectorPower(on bool) func(context.Context) error {
	cmd := channel.Command{Name: "projectorOff", Line: o.settings.Projector.OffCommand}
	if on {
		cmd = channel.Command{Name: "projectorOn", Line: o.settings.Projector.OnCommand}
	}
	return func(ctx context.Context) error {
		return o.projector.Send(ctx, cmd)
	}
}
