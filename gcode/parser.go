package gcode

import (
	"errors"
	"fmt"
)

// ErrInvalidLine is returned for non-empty lines that are neither a G/M/T
// command nor a comment.
var ErrInvalidLine = errors.New("invalid gcode line")

// ParseLine parses a single line of GCode. Blank lines yield (nil, nil).
func ParseLine(line string) (*Command, error) {
	i := skipSpace(line, 0)
	if i >= len(line) {
		return nil, nil
	}

	cmd := &Command{
		Parameters: make(map[byte]float64),
	}

	if line[i] == ';' || line[i] == '(' {
		cmd.Comment = line[i:]
		return cmd, nil
	}

	// Command word
	switch toUpper(line[i]) {
	case 'G', 'M', 'T':
		cmd.Type = toUpper(line[i])
		i++
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidLine, line)
	}

	num, next := parseInt(line, i)
	if next <= i {
		return nil, fmt.Errorf("%w: missing number in %q", ErrInvalidLine, line)
	}
	cmd.Number = num
	i = next

	// Parameters
	for {
		i = skipSpace(line, i)
		if i >= len(line) {
			break
		}

		if line[i] == ';' || line[i] == '(' {
			cmd.Comment = line[i:]
			break
		}

		if !isLetter(line[i]) {
			return nil, fmt.Errorf("%w: unexpected %q at column %d", ErrInvalidLine, line[i], i+1)
		}
		letter := toUpper(line[i])
		i++

		value, next := parseFloat(line, i)
		if next > i {
			i = next
		}
		cmd.Parameters[letter] = value
	}

	return cmd, nil
}

func skipSpace(s string, pos int) int {
	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t' || s[pos] == '\r') {
		pos++
	}
	return pos
}

// parseInt parses an integer from the string starting at pos
func parseInt(s string, pos int) (int, int) {
	if pos >= len(s) {
		return 0, pos
	}

	negative := false
	if s[pos] == '-' {
		negative = true
		pos++
	} else if s[pos] == '+' {
		pos++
	}

	start := pos
	value := 0

	for pos < len(s) && s[pos] >= '0' && s[pos] <= '9' {
		value = value*10 + int(s[pos]-'0')
		pos++
	}

	if pos == start {
		return 0, start - 1 // No digits found
	}

	if negative {
		value = -value
	}

	return value, pos
}

// parseFloat parses a floating-point number from the string starting at pos
func parseFloat(s string, pos int) (float64, int) {
	if pos >= len(s) {
		return 0, pos
	}

	negative := false
	if s[pos] == '-' {
		negative = true
		pos++
	} else if s[pos] == '+' {
		pos++
	}

	start := pos
	intPart := 0
	fracPart := 0.0
	fracDigits := 0

	for pos < len(s) && s[pos] >= '0' && s[pos] <= '9' {
		intPart = intPart*10 + int(s[pos]-'0')
		pos++
	}

	if pos < len(s) && s[pos] == '.' {
		pos++
		fracStart := pos
		for pos < len(s) && s[pos] >= '0' && s[pos] <= '9' {
			fracPart = fracPart*10.0 + float64(s[pos]-'0')
			pos++
		}
		fracDigits = pos - fracStart
	}

	if pos == start || (pos == start+1 && s[start] == '.') {
		return 0, start - 1 // No valid number found
	}

	value := float64(intPart)
	if fracDigits > 0 {
		divisor := 1.0
		for i := 0; i < fracDigits; i++ {
			divisor *= 10.0
		}
		value += fracPart / divisor
	}

	if negative {
		value = -value
	}

	return value, pos
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
