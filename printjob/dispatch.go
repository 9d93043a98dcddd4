package printjob

import (
	"context"
	"errors"
	"time"

	"github.com/pc6b/monkeyprint/host/channel"
)

// Retry budgets handed to the printer channel.
const (
	HomeRetry = 240 * time.Second // buildHome, buildTop
	MoveRetry = 20 * time.Second  // buildMove, tilt
)

// Parameters are pushed to native boards before printing.
type Parameters struct {
	Slices        int
	Timing        Timing
	ShutterOpen   int
	ShutterClosed int
}

// Dispatcher issues hardware actions to the printer. Actions a strategy has
// no equivalent for return errors.ErrUnsupported and are skipped.
type Dispatcher interface {
	Ping(ctx context.Context) error
	PushParameters(ctx context.Context, p Parameters) error
	Start(ctx context.Context) error
	End(ctx context.Context) error
	ShutterEnable(ctx context.Context) error
	ShutterDisable(ctx context.Context) error
	ShutterOpen(ctx context.Context) error
	ShutterClose(ctx context.Context) error
	Home(ctx context.Context) error
	BuildMove(ctx context.Context, slice int) error
	BuildTop(ctx context.Context) error
	Tilt(ctx context.Context) error
	TiltSpeed(ctx context.Context, speed int) error
	PrintingFlag(ctx context.Context, on bool) error
	TriggerCam(ctx context.Context) error
}

// nativeDispatcher speaks the monkeyprint board's named commands.
type nativeDispatcher struct {
	ch     channel.Channel
	timing Timing
}

func newNativeDispatcher(ch channel.Channel, timing Timing) *nativeDispatcher {
	return &nativeDispatcher{ch: ch, timing: timing}
}

func (d *nativeDispatcher) send(ctx context.Context, name string, payload int, retry time.Duration) error {
	return d.ch.Send(ctx, channel.Command{Name: name, Payload: payload, AckRequired: true, Retry: retry})
}

func (d *nativeDispatcher) Ping(ctx context.Context) error {
	return d.send(ctx, "ping", 0, 0)
}

func (d *nativeDispatcher) PushParameters(ctx context.Context, p Parameters) error {
	params := []struct {
		name  string
		value int
	}{
		{"nSlices", p.Slices},
		{"buildRes", p.Timing.BuildStepsPerMm},
		{"buildMinMove", p.Timing.BuildMinimumMove},
		{"tiltRes", p.Timing.TiltStepsPerTurn},
		{"tiltAngle", p.Timing.TiltAngle},
		{"shttrOpnPs", p.ShutterOpen},
		{"shttrClsPs", p.ShutterClosed},
	}
	var errs []error
	for _, param := range params {
		if err := d.send(ctx, param.name, param.value, 0); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *nativeDispatcher) Start(context.Context) error { return errors.ErrUnsupported }
func (d *nativeDispatcher) End(context.Context) error { return errors.ErrUnsupported }

func (d *nativeDispatcher) ShutterEnable(ctx context.Context) error {
	return d.send(ctx, "shutterEnable", 0, 0)
}

func (d *nativeDispatcher) ShutterDisable(ctx context.Context) error {
	return d.send(ctx, "shutterDisable", 0, 0)
}

func (d *nativeDispatcher) ShutterOpen(ctx context.Context) error {
	return d.send(ctx, "shutterOpen", 0, 0)
}

func (d *nativeDispatcher) ShutterClose(ctx context.Context) error {
	return d.send(ctx, "shutterClose", 0, 0)
}

func (d *nativeDispatcher) Home(ctx context.Context) error {
	return d.send(ctx, "buildHome", 0, HomeRetry)
}

func (d *nativeDispatcher) BuildMove(ctx context.Context, _ int) error {
	return d.send(ctx, "buildMove", d.timing.LayerHeight, MoveRetry)
}

func (d *nativeDispatcher) BuildTop(ctx context.Context) error {
	return d.send(ctx, "buildTop", 0, HomeRetry)
}

func (d *nativeDispatcher) Tilt(ctx context.Context) error {
	return d.send(ctx, "tilt", 0, MoveRetry)
}

func (d *nativeDispatcher) TiltSpeed(ctx context.Context, speed int) error {
	return d.send(ctx, "tiltSpeed", speed, 0)
}

func (d *nativeDispatcher) PrintingFlag(ctx context.Context, on bool) error {
	flag := 0
	if on {
		flag = 1
	}
	return d.send(ctx, "printingFlag", flag, 0)
}

// TriggerCam does not wait for an ack so exposure timing is not disturbed.
func (d *nativeDispatcher) TriggerCam(ctx context.Context) error {
	return d.ch.Send(ctx, channel.Command{Name: "triggerCam"})
}
