package printjob

import (
	"testing"

	"github.com/pc6b/monkeyprint/config"
)

func TestDeriveTiming(t *testing.T) {
	s := config.DefaultSettings()

	got := DeriveTiming(s)
	want := Timing{
		BuildStepsPerMm:  3200,
		BuildMinimumMove: 4,
		LayerHeight:      80,
		TiltAngle:        15,
		TiltStepsPerTurn: 400,
	}
	if got != want {
		t.Errorf("DeriveTiming() = %+v, want %+v", got, want)
	}

	for i := 0; i < 3; i++ {
		if again := DeriveTiming(s); again != got {
			t.Fatalf("DeriveTiming() not deterministic: %+v vs %+v", again, got)
		}
	}
}

func TestDeriveTimingTruncates(t *testing.T) {
	s := config.DefaultSettings()
	s.Build.StepAngle = 7.5
	s.Build.Microsteps = 3
	s.Build.MinimumMove = 0.3
	s.LayerHeight = 1
	s.Tilt.StepAngle = 1.8
	s.Tilt.Microsteps = 16
	s.Tilt.Angle = 10

	got := DeriveTiming(s)
	want := Timing{
		BuildStepsPerMm:  144, // 360 / 7.5 * 3
		BuildMinimumMove: 43,  // 144 * 0.3 = 43.2
		LayerHeight:      3,   // 1 / 0.3 = 3.33
		TiltAngle:        88,  // 10 / 0.1125 = 88.9
		TiltStepsPerTurn: 3200,
	}
	if got != want {
		t.Errorf("DeriveTiming() = %+v, want %+v", got, want)
	}
}
