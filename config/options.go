package config

// Option names as they appear in printer configuration files.
const (
	BuildStepAngle      = "Build step angle"
	BuildMicrosteps     = "Build microsteps per step"
	BuildMinimumMove    = "Build minimum move"
	TiltStepAngle       = "Tilt step angle"
	TiltMicrosteps      = "Tilt microsteps per step"
	TiltAngle           = "Tilt angle"
	TiltSpeedSlow       = "Tilt speed slow"
	TiltSpeed           = "Tilt speed"
	LayerHeight         = "Layer height"
	ExposureTimeBase    = "Exposure time base"
	ExposureTime        = "Exposure time"
	ResinSettleTime     = "Resin settle time"
	EnableShutter       = "Enable shutter servo"
	ShutterPosOpen      = "Shutter position open"
	ShutterPosClosed    = "Shutter position closed"
	EnableTilt          = "Enable tilt"
	CamTriggerWith      = "camTriggerWithExposure"
	CamTriggerAfter     = "camTriggerAfterExposure"
	Debug               = "Debug"
	MonkeyprintBoard    = "monkeyprintBoard"
	RunOnRaspberry      = "runOnRaspberry"
	Port                = "Port"
	BaudRate            = "Baud rate"
	PortProjector       = "Port projector"
	BaudRateProjector   = "Baud rate projector"
	ProjectorOnCommand  = "Projector ON command"
	ProjectorOffCommand = "Projector OFF command"
	TiltGCode           = "Tilt GCode"
	BuildGCode          = "Build platform GCode"
	ShutterOpenGCode    = "Shutter open GCode"
	ShutterCloseGCode   = "Shutter close GCode"
	HomeGCode           = "Home GCode"
	StartGCode          = "Start commands GCode"
	EndGCode            = "End commands GCode"
)

// Options is the raw, human-keyed option map as read from YAML.
type Options map[string]any

// Defaults returns a fresh option map for a stock monkeyprint board with a
// 1.8° stepper on a 4 mm lead screw.
func Defaults() Options {
	return Options{
		BuildStepAngle:   1.8,
		BuildMicrosteps:  16,
		BuildMinimumMove: 0.00125,
		TiltStepAngle:    1.8,
		TiltMicrosteps:   2,
		TiltAngle:        14.0,
		TiltSpeedSlow:    4,
		TiltSpeed:        10,
		LayerHeight:      0.1,
		ExposureTimeBase: 14.0,
		ExposureTime:     9.0,
		ResinSettleTime:  1.0,
		EnableShutter:    false,
		ShutterPosOpen:   4,
		ShutterPosClosed: 10,
		EnableTilt:       true,
		CamTriggerWith:   false,
		CamTriggerAfter:  false,
		Debug:            false,
		MonkeyprintBoard: true,
		RunOnRaspberry:   false,

		Port:                "/dev/ttyACM0",
		BaudRate:            57600,
		PortProjector:       "/dev/ttyUSB0",
		BaudRateProjector:   9600,
		ProjectorOnCommand:  "* 0 IR 001",
		ProjectorOffCommand: "* 0 IR 002",

		TiltGCode:         "G91\nG1 X{{.TiltAngle}} F1000\nG1 X-{{.TiltAngle}} F1000\nG90",
		BuildGCode:        "G91\nG1 Z{{.LayerHeight}} F100\nG90",
		ShutterOpenGCode:  "M280 P0 S{{.ShutterOpen}}",
		ShutterCloseGCode: "M280 P0 S{{.ShutterClosed}}",
		HomeGCode:         "G28 Z",
		StartGCode:        "G21\nG90",
		EndGCode:          "G28 Z\nM84",
	}
}

// WithDefaults returns a copy of opts with every missing option taken from
// Defaults.
func WithDefaults(opts Options) Options {
	merged := Defaults()
	for k, v := range opts {
		merged[k] = v
	}
	return merged
}

// Unknown lists option names in opts that no setting reads.
func Unknown(opts Options) []string {
	known := Defaults()
	var unknown []string
	for k := range opts {
		if _, ok := known[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	return unknown
}
