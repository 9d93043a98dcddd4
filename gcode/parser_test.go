package gcode

import (
	"errors"
	"testing"
)

func TestParseBasicCommands(t *testing.T) {
	tests := []struct {
		input   string
		cmdType byte
		cmdNum  int
		params  map[byte]float64
	}{
		{
			input:   "G1 Z0.05 F100",
			cmdType: 'G',
			cmdNum:  1,
			params:  map[byte]float64{'Z': 0.05, 'F': 100},
		},
		{
			input:   "G28 Z",
			cmdType: 'G',
			cmdNum:  28,
			params:  map[byte]float64{'Z': 0},
		},
		{
			input:   "M280 P0 S90",
			cmdType: 'M',
			cmdNum:  280,
			params:  map[byte]float64{'P': 0, 'S': 90},
		},
		{
			input:   "G92 Z0",
			cmdType: 'G',
			cmdNum:  92,
			params:  map[byte]float64{'Z': 0},
		},
	}

	for _, test := range tests {
		cmd, err := ParseLine(test.input)
		if err != nil {
			t.Errorf("Failed to parse '%s': %v", test.input, err)
			continue
		}

		if cmd == nil {
			t.Errorf("Got nil command for '%s'", test.input)
			continue
		}

		if cmd.Type != test.cmdType {
			t.Errorf("Expected type %c, got %c for '%s'", test.cmdType, cmd.Type, test.input)
		}

		if cmd.Number != test.cmdNum {
			t.Errorf("Expected number %d, got %d for '%s'", test.cmdNum, cmd.Number, test.input)
		}

		for param, value := range test.params {
			if !cmd.HasParameter(param) {
				t.Errorf("Missing parameter %c in '%s'", param, test.input)
			} else if cmd.Parameter(param, 0) != value {
				t.Errorf("Expected %c=%f, got %c=%f in '%s'",
					param, value, param, cmd.Parameter(param, 0), test.input)
			}
		}
	}
}

func TestParseNegativeNumbers(t *testing.T) {
	cmd, err := ParseLine("G1 Z-10.5 Y-20")
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	if cmd.Parameter('Z', 0) != -10.5 {
		t.Errorf("Expected Z=-10.5, got Z=%f", cmd.Parameter('Z', 0))
	}

	if cmd.Parameter('Y', 0) != -20 {
		t.Errorf("Expected Y=-20, got Y=%f", cmd.Parameter('Y', 0))
	}
}

func TestParseComments(t *testing.T) {
	tests := []string{
		"; This is a comment",
		"G0 Z10 ; Move to Z10",
		"(This is a comment)",
	}

	for _, test := range tests {
		cmd, err := ParseLine(test)
		if err != nil {
			t.Errorf("Failed to parse '%s': %v", test, err)
		}

		if cmd == nil {
			t.Errorf("Got nil command for '%s'", test)
		}
	}
}

func TestParseLowercase(t *testing.T) {
	cmd, err := ParseLine("g1 z10")
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	if cmd.Type != 'G' || cmd.Number != 1 {
		t.Errorf("Expected G1, got %c%d", cmd.Type, cmd.Number)
	}

	if cmd.Parameter('Z', 0) != 10 {
		t.Errorf("Expected Z=10, got Z=%f", cmd.Parameter('Z', 0))
	}
}

func TestParseEmptyLine(t *testing.T) {
	for _, line := range []string{"", "   ", "\t\r"} {
		cmd, err := ParseLine(line)
		if err != nil {
			t.Errorf("Blank line %q should not error: %v", line, err)
		}
		if cmd != nil {
			t.Errorf("Blank line %q should return nil command", line)
		}
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, line := range []string{"hello", "X10", "G", "G1 Z1 #", "Tilt 10"} {
		if _, err := ParseLine(line); !errors.Is(err, ErrInvalidLine) {
			t.Errorf("ParseLine(%q) error = %v, want ErrInvalidLine", line, err)
		}
	}
}

func TestCommandString(t *testing.T) {
	cmd, err := ParseLine("g1 f300 z-0.1")
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if got := cmd.String(); got != "G1 F300 Z-0.1" {
		t.Errorf("String() = %q", got)
	}
}
