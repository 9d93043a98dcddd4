package printjob

import (
	"context"
	"errors"
	"time"

	"github.com/pc6b/monkeyprint/progress"
)

// teardown always runs. Each step is attempted even when an earlier one
// failed; a step is skipped only when the device it needs never connected.
func (o *Orchestrator) teardown(ctx context.Context) Result {
	o.setState(Stopping, 0)
	o.emit(progress.NewStatus(progress.PhaseStopping, "", ""))
	o.sink.Printf("Stopping print.")

	o.handoff.ForceBlank()

	var errs []error
	if o.printerConnected {
		if o.settings.Shutter.Enabled {
			errs = append(errs, o.attempt(ctx, "disable shutter", o.dispatch.ShutterDisable))
		}
		o.sink.Printf("Moving build platform to top.")
		errs = append(errs, o.attempt(ctx, "move build platform to top", o.dispatch.BuildTop))
		errs = append(errs, o.attempt(ctx, "clear printing flag", func(ctx context.Context) error {
			return o.dispatch.PrintingFlag(ctx, false)
		}))
		errs = append(errs, o.attempt(ctx, "send end commands", o.dispatch.End))
	}
	if o.projectorConnected {
		o.sink.Printf("Deactivating projector.")
		errs = append(errs, o.attempt(ctx, "deactivate projector", o.projectorPower(false)))
	}

	errs = append(errs, o.printer.Close(), o.projector.Close())
	teardownErr := errors.Join(errs...)
	if teardownErr != nil {
		o.logger.Warn("teardown incomplete", "error", teardownErr)
	}

	completed := o.slice - 1
	phase := Stopped
	if errors.Is(o.runErr, ErrConnection) {
		phase = Error
	}

	o.setState(Stopped, 0)
	o.emit(progress.Count(progress.PhaseStopped, progress.SubSlice, completed))
	o.sink.Printf("Print stopped after %d slices.", completed)

	if o.grace > 0 {
		time.Sleep(o.grace)
	}

	o.setState(Idle, 0)
	o.emit(progress.Count(progress.PhaseIdle, progress.SubSlice, 0))
	o.emit(progress.Destroy())

	return Result{
		JobID:           o.jobID,
		Phase:           phase,
		SlicesTotal:     o.slices,
		SlicesCompleted: completed,
		Cancelled:       o.Cancelled(),
		Err:             errors.Join(o.runErr, teardownErr),
	}
}
