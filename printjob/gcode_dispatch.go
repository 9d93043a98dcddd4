package printjob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pc6b/monkeyprint/config"
	"github.com/pc6b/monkeyprint/gcode"
	"github.com/pc6b/monkeyprint/host/channel"
)

// gcodeDispatcher renders actions through the configured templates and sends
// the resulting lines to a GCode board.
type gcodeDispatcher struct {
	ch         channel.Channel
	translator *gcode.Translator
	base       gcode.Context
}

func newGCodeDispatcher(ch channel.Channel, s config.Settings, timing Timing, slices int) (*gcodeDispatcher, error) {
	tr, err := gcode.NewTranslator(map[string]string{
		gcode.TemplateTilt:         s.GCode.Tilt,
		gcode.TemplateBuild:        s.GCode.Build,
		gcode.TemplateShutterOpen:  s.GCode.ShutterOpen,
		gcode.TemplateShutterClose: s.GCode.ShutterClose,
		gcode.TemplateHome:         s.GCode.Home,
		gcode.TemplateStart:        s.GCode.Start,
		gcode.TemplateEnd:          s.GCode.End,
	})
	if err != nil {
		return nil, err
	}

	d := &gcodeDispatcher{
		ch:         ch,
		translator: tr,
		base: gcode.Context{
			LayerHeight:      s.LayerHeight,
			LayerSteps:       timing.LayerHeight,
			TiltAngle:        s.Tilt.Angle,
			TiltSteps:        timing.TiltAngle,
			ShutterOpen:      s.Shutter.OpenPosition,
			ShutterClosed:    s.Shutter.ClosedPosition,
			Slices:           slices,
			BuildMinimumMove: timing.BuildMinimumMove,
		},
	}

	// Render everything once so template mistakes surface before printing.
	for _, name := range []string{
		gcode.TemplateTilt, gcode.TemplateBuild, gcode.TemplateShutterOpen,
		gcode.TemplateShutterClose, gcode.TemplateHome, gcode.TemplateStart, gcode.TemplateEnd,
	} {
		if _, err := tr.Render(name, d.base); err != nil {
			return nil, fmt.Errorf("gcode templates: %w", err)
		}
	}
	return d, nil
}

func (d *gcodeDispatcher) send(ctx context.Context, name string, slice int, retry time.Duration) error {
	gctx := d.base
	gctx.Slice = slice

	text, err := d.translator.Render(name, gctx)
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}
	return d.ch.Send(ctx, channel.Command{Name: name, Line: text, AckRequired: true, Retry: retry})
}

func (d *gcodeDispatcher) Ping(context.Context) error { return errors.ErrUnsupported }
func (d *gcodeDispatcher) PushParameters(context.Context, Parameters) error { return errors.ErrUnsupported }
func (d *gcodeDispatcher) ShutterEnable(context.Context) error { return errors.ErrUnsupported }
func (d *gcodeDispatcher) ShutterDisable(context.Context) error { return errors.ErrUnsupported }
func (d *gcodeDispatcher) TiltSpeed(context.Context, int) error { return errors.ErrUnsupported }
func (d *gcodeDispatcher) PrintingFlag(context.Context, bool) error { return errors.ErrUnsupported }
func (d *gcodeDispatcher) TriggerCam(context.Context) error { return errors.ErrUnsupported }

func (d *gcodeDispatcher) Start(ctx context.Context) error {
	return d.send(ctx, gcode.TemplateStart, 0, 0)
}

func (d *gcodeDispatcher) End(ctx context.Context) error {
	return d.send(ctx, gcode.TemplateEnd, 0, HomeRetry)
}

func (d *gcodeDispatcher) ShutterOpen(ctx context.Context) error {
	return d.send(ctx, gcode.TemplateShutterOpen, 0, 0)
}

func (d *gcodeDispatcher) ShutterClose(ctx context.Context) error {
	return d.send(ctx, gcode.TemplateShutterClose, 0, 0)
}

func (d *gcodeDispatcher) Home(ctx context.Context) error {
	return d.send(ctx, gcode.TemplateHome, 0, HomeRetry)
}

func (d *gcodeDispatcher) BuildMove(ctx context.Context, slice int) error {
	return d.send(ctx, gcode.TemplateBuild, slice, MoveRetry)
}

// BuildTop reuses the home template, as GCode boards have no separate top
// position.
func (d *gcodeDispatcher) BuildTop(ctx context.Context) error {
	return d.send(ctx, gcode.TemplateHome, 0, HomeRetry)
}

func (d *gcodeDispatcher) Tilt(ctx context.Context) error {
	return d.send(ctx, gcode.TemplateTilt, 0, MoveRetry)
}
