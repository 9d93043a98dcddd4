package printjob

import (
	"context"
	"time"

	"github.com/pc6b/monkeyprint/progress"
)

// fastTiltSlice is the first slice printed with the fast tilt speed.
const fastTiltSlice = 20

func (o *Orchestrator) print(ctx context.Context) {
	if o.Cancelled() {
		return
	}

	for o.slice = 1; o.slice <= o.slices; o.slice++ {
		if o.Cancelled() {
			return
		}
		if !o.printSlice(ctx, o.slice) {
			return
		}
	}
}

// printSlice exposes one slice. It returns false when cancellation was
// observed before the exposure; the slice then does not count as printed.
// Steps after the exposure are skipped individually.
func (o *Orchestrator) printSlice(ctx context.Context, slice int) bool {
	o.setState(Printing, slice)
	o.sink.Printf("Printing slice %d.", slice)
	o.emit(progress.Count(progress.PhasePrinting, progress.SubNSlices, o.slices))
	o.emit(progress.Count(progress.PhasePrinting, progress.SubSlice, slice))

	exposure := o.settings.Exposure.Normal
	switch slice {
	case 1:
		exposure = o.settings.Exposure.Base
		o.sink.Printf("   Set exposure time to %g s.", exposure.Seconds())
		if o.settings.Tilt.Enabled {
			o.act(ctx, "tiltSpeed", o.tiltSpeed(o.settings.Tilt.SpeedSlow))
		}
	case 2:
		o.sink.Printf("   Set exposure time to %g s.", exposure.Seconds())
	}
	if slice == fastTiltSlice && o.settings.Tilt.Enabled {
		if o.act(ctx, "tiltSpeed", o.tiltSpeed(o.settings.Tilt.Speed)) == nil {
			o.sink.Printf("   Switched to fast tilting.")
		}
	}

	o.sink.Printf("   Moving build platform.")
	o.act(ctx, "buildMove", func(ctx context.Context) error {
		return o.dispatch.BuildMove(ctx, slice)
	})

	if o.settings.ResinSettle != 0 {
		if o.Cancelled() {
			return false
		}
		o.sink.Printf("   Waiting for resin to settle.")
		wait(o.settings.ResinSettle, o.tick, nil)
	}

	if o.settings.Shutter.Enabled {
		o.sink.Printf("   Opening shutter.")
		o.act(ctx, "shutterOpen", o.dispatch.ShutterOpen)
	}

	if o.Cancelled() {
		return false
	}
	o.expose(ctx, slice, exposure)

	if o.settings.Shutter.Enabled {
		o.sink.Printf("   Closing shutter.")
		o.act(ctx, "shutterClose", o.dispatch.ShutterClose)
	}

	if o.settings.CamTriggerAfterExposure && !o.Cancelled() {
		o.sink.Printf("   Triggering camera.")
		o.triggerCamera(ctx)
	}

	if o.settings.Tilt.Enabled {
		o.sink.Printf("   Tilting.")
		o.act(ctx, "tilt", o.dispatch.Tilt)
	}

	return true
}

// expose shows the slice for the exposure time and blanks the display. Once
// the slice is on screen the exposure always completes.
func (o *Orchestrator) expose(ctx context.Context, slice int, exposure time.Duration) {
	o.sink.Printf("   Exposing with %g s.", exposure.Seconds())
	o.show(ctx, slice)

	var trigger func()
	if o.settings.CamTriggerWithExposure {
		trigger = func() {
			o.sink.Printf("   Triggering camera.")
			o.triggerCamera(ctx)
		}
	}
	wait(exposure, o.tick, trigger)

	o.show(ctx, progress.Blank)
}

// triggerCamera fires the camera without waiting for an ack. Failures are
// logged only, since the camera is not part of the print.
func (o *Orchestrator) triggerCamera(ctx context.Context) {
	if err := o.dispatch.TriggerCam(ctx); err != nil {
		o.logger.Debug("camera trigger not sent", "error", err)
	}
}

func (o *Orchestrator) tiltSpeed(speed int) func(context.Context) error {
	return func(ctx context.Context) error {
		return o.dispatch.TiltSpeed(ctx, speed)
	}
}
