package gcode

import "fmt"

// Tracker follows the build platform height through a stream of GCode, for
// dry runs where no board reports a position.
type Tracker struct {
	absolute bool
	homed    bool
	z        float64
	lines    int
}

// NewTracker returns a tracker in absolute mode at Z=0, not homed.
func NewTracker() *Tracker {
	return &Tracker{absolute: true}
}

// Feed parses and executes one line.
func (tr *Tracker) Feed(line string) error {
	cmd, err := ParseLine(line)
	if err != nil {
		return err
	}
	tr.Execute(cmd)
	return nil
}

// Execute applies a parsed command. Unsupported commands are ignored.
func (tr *Tracker) Execute(cmd *Command) {
	if cmd == nil || cmd.IsComment() {
		return
	}
	tr.lines++

	if cmd.Type != 'G' {
		return
	}

	switch cmd.Number {
	case 0, 1: // Linear move
		if !cmd.HasParameter('Z') {
			return
		}
		if tr.absolute {
			tr.z = cmd.Parameter('Z', tr.z)
		} else {
			tr.z += cmd.Parameter('Z', 0)
		}
	case 28: // Home
		if len(cmd.Parameters) == 0 || cmd.HasParameter('Z') {
			tr.homed = true
			tr.z = 0
		}
	case 90:
		tr.absolute = true
	case 91:
		tr.absolute = false
	case 92: // Set position
		if cmd.HasParameter('Z') {
			tr.z = cmd.Parameter('Z', 0)
		}
	}
}

// Z returns the current platform height in mm.
func (tr *Tracker) Z() float64 {
	return tr.z
}

// Homed reports whether a G28 covering Z has been seen.
func (tr *Tracker) Homed() bool {
	return tr.homed
}

// Absolute reports the positioning mode.
func (tr *Tracker) Absolute() bool {
	return tr.absolute
}

func (tr *Tracker) String() string {
	mode := "abs"
	if !tr.absolute {
		mode = "rel"
	}
	return fmt.Sprintf("Z=%.3f %s homed=%t lines=%d", tr.z, mode, tr.homed, tr.lines)
}
