package printjob

import "github.com/pc6b/monkeyprint/config"

// Timing holds the step counts the board works in. Every value is truncated
// toward zero.
type Timing struct {
	BuildStepsPerMm  int // steps per revolution of the build screw
	BuildMinimumMove int
	LayerHeight      int // build steps per layer
	TiltAngle        int // tilt steps per peel
	TiltStepsPerTurn int
}

// DeriveTiming computes Timing from settings.
func DeriveTiming(s config.Settings) Timing {
	buildStepsPerMm := 360 / s.Build.StepAngle * s.Build.Microsteps
	return Timing{
		BuildStepsPerMm:  int(buildStepsPerMm),
		BuildMinimumMove: int(float64(int(buildStepsPerMm)) * s.Build.MinimumMove),
		LayerHeight:      int(s.LayerHeight / s.Build.MinimumMove),
		TiltAngle:        int(s.Tilt.Angle / (s.Tilt.StepAngle / s.Tilt.Microsteps)),
		TiltStepsPerTurn: int(360 / s.Tilt.StepAngle * s.Tilt.Microsteps),
	}
}
