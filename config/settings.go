package config

import "time"

// Axis describes a stepper-driven axis.
type Axis struct {
	StepAngle   float64 // degrees per full step
	Microsteps  float64
	MinimumMove float64 // build axis: mm per microstep
}

// Tilt extends Axis with the peel motion parameters.
type Tilt struct {
	Axis
	Enabled   bool
	Angle     float64 // degrees
	SpeedSlow int
	Speed     int
}

// Exposure holds the per-slice exposure durations.
type Exposure struct {
	Base   time.Duration // slice 1
	Normal time.Duration // slices 2..N
}

// Shutter is the servo-driven light gate.
type Shutter struct {
	Enabled        bool
	OpenPosition   int
	ClosedPosition int
}

// Link is a serial device address.
type Link struct {
	Device string
	Baud   int
}

// Projector is the projector's serial link and its power commands.
type Projector struct {
	Link
	OnCommand  string
	OffCommand string
}

// GCode holds the raw command templates used when the board speaks GCode.
type GCode struct {
	Tilt         string
	Build        string
	ShutterOpen  string
	ShutterClose string
	Home         string
	Start        string
	End          string
}

// Settings is the typed, validated form of Options. It is a value; copies
// never alias each other except through the string fields.
type Settings struct {
	Build       Axis
	Tilt        Tilt
	LayerHeight float64 // mm
	Exposure    Exposure
	ResinSettle time.Duration
	Shutter     Shutter

	CamTriggerWithExposure  bool
	CamTriggerAfterExposure bool
	Debug                   bool
	MonkeyprintBoard        bool
	RunOnRaspberry          bool

	Printer   Link
	Projector Projector
	GCode     GCode
}

// Parse converts every option into its typed setting. The first invalid or
// missing option is returned as an *OptionError.
func Parse(opts Options) (Settings, error) {
	r := &reader{opts: opts}

	s := Settings{
		Build: Axis{
			StepAngle:   r.positive(BuildStepAngle),
			Microsteps:  r.positive(BuildMicrosteps),
			MinimumMove: r.positive(BuildMinimumMove),
		},
		Tilt: Tilt{
			Axis: Axis{
				StepAngle:  r.positive(TiltStepAngle),
				Microsteps: r.positive(TiltMicrosteps),
			},
			Enabled:   r.boolean(EnableTilt),
			Angle:     r.positive(TiltAngle),
			SpeedSlow: int(r.positive(TiltSpeedSlow)),
			Speed:     int(r.positive(TiltSpeed)),
		},
		LayerHeight: r.positive(LayerHeight),
		Exposure: Exposure{
			Base:   r.seconds(ExposureTimeBase, false),
			Normal: r.seconds(ExposureTime, false),
		},
		ResinSettle: r.seconds(ResinSettleTime, true),
		Shutter: Shutter{
			Enabled:        r.boolean(EnableShutter),
			OpenPosition:   int(r.nonNegative(ShutterPosOpen)),
			ClosedPosition: int(r.nonNegative(ShutterPosClosed)),
		},

		CamTriggerWithExposure:  r.boolean(CamTriggerWith),
		CamTriggerAfterExposure: r.boolean(CamTriggerAfter),
		Debug:                   r.boolean(Debug),
		MonkeyprintBoard:        r.boolean(MonkeyprintBoard),
		RunOnRaspberry:          r.boolean(RunOnRaspberry),

		Printer: Link{
			Device: r.text(Port),
			Baud:   int(r.positive(BaudRate)),
		},
		Projector: Projector{
			Link: Link{
				Device: r.text(PortProjector),
				Baud:   int(r.positive(BaudRateProjector)),
			},
			OnCommand:  r.text(ProjectorOnCommand),
			OffCommand: r.text(ProjectorOffCommand),
		},
		GCode: GCode{
			Tilt:         r.text(TiltGCode),
			Build:        r.text(BuildGCode),
			ShutterOpen:  r.text(ShutterOpenGCode),
			ShutterClose: r.text(ShutterCloseGCode),
			Home:         r.text(HomeGCode),
			Start:        r.text(StartGCode),
			End:          r.text(EndGCode),
		},
	}

	if r.err != nil {
		return Settings{}, r.err
	}
	return s, nil
}

// DefaultSettings returns Parse(Defaults()).
func DefaultSettings() Settings {
	s, err := Parse(Defaults())
	if err != nil {
		panic("config: defaults do not parse: " + err.Error())
	}
	return s
}
