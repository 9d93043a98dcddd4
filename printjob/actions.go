package printjob

import (
	"context"
	"errors"
	"fmt"

	"github.com/pc6b/monkeyprint/progress"
)

// errSkipped marks an action not run because the job was cancelled.
var errSkipped = errors.New("skipped after cancellation")

// abortOnFailure is the preparation step without which printing cannot
// start: the platform position is unknown until homing succeeds.
const abortOnFailure = "buildHome"

// act runs one hardware action at an action boundary: it is skipped once
// cancellation has been requested, and a failure is reported and counted.
// Unsupported actions succeed silently.
func (o *Orchestrator) act(ctx context.Context, name string, fn func(context.Context) error) error {
	if o.Cancelled() {
		return errSkipped
	}

	err := fn(ctx)
	switch {
	case err == nil, errors.Is(err, errors.ErrUnsupported):
		o.failures = 0
		return nil
	}

	o.commandFailed(name, err)
	return err
}

func (o *Orchestrator) commandFailed(name string, err error) {
	o.failures++
	o.logger.Warn("command failed", "command", name, "error", err, "consecutive", o.failures)
	o.emit(progress.NewStatus(progress.PhaseError, progress.SubCommandFailed, name))
	o.sink.Printf("Command %s failed: %v", name, err)

	switch {
	case o.State().Phase == Preparing && name == abortOnFailure:
		o.sink.Printf("Preparation failed. Aborting.")
		o.escalate(fmt.Errorf("%w: %s: %w", ErrPreparation, name, err))
	case o.maxFailures > 0 && o.failures >= o.maxFailures:
		o.sink.Printf("%d commands failed in a row. Stopping print.", o.failures)
		o.escalate(ErrTooManyFailures)
	}
}

// escalate turns an error into cancellation of the run.
func (o *Orchestrator) escalate(err error) {
	if o.runErr == nil {
		o.runErr = err
	}
	o.cancelled.Store(true)
}

// attempt runs an action whose failure is reported but neither counted nor
// escalated. It ignores cancellation.
func (o *Orchestrator) attempt(ctx context.Context, name string, fn func(context.Context) error) error {
	err := fn(ctx)
	if err == nil || errors.Is(err, errors.ErrUnsupported) {
		return nil
	}
	o.logger.Warn("step failed", "step", name, "error", err)
	o.sink.Printf("Could not %s: %v", name, err)
	return err
}
