package gcode

import (
	"sort"
	"strconv"
	"strings"
)

// Command is one parsed GCode line.
type Command struct {
	Type       byte // 'G', 'M', 'T' or 0 for a comment-only line
	Number     int
	Parameters map[byte]float64
	Comment    string
}

// HasParameter checks if a parameter exists in the command
func (cmd *Command) HasParameter(param byte) bool {
	_, ok := cmd.Parameters[param]
	return ok
}

// Parameter returns a parameter value, or def if it is not present.
func (cmd *Command) Parameter(param byte, def float64) float64 {
	if val, ok := cmd.Parameters[param]; ok {
		return val
	}
	return def
}

// IsComment reports whether the line carried no command word.
func (cmd *Command) IsComment() bool {
	return cmd.Type == 0
}

// String renders the command in canonical form, parameters sorted by letter.
func (cmd *Command) String() string {
	if cmd.IsComment() {
		return cmd.Comment
	}

	var b strings.Builder
	b.WriteByte(cmd.Type)
	b.WriteString(strconv.Itoa(cmd.Number))

	letters := make([]byte, 0, len(cmd.Parameters))
	for l := range cmd.Parameters {
		letters = append(letters, l)
	}
	sort.Slice(letters, func(i, j int) bool { return letters[i] < letters[j] })
	for _, l := range letters {
		b.WriteByte(' ')
		b.WriteByte(l)
		b.WriteString(strconv.FormatFloat(cmd.Parameters[l], 'f', -1, 64))
	}
	return b.String()
}
