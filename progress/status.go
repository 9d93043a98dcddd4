// Package progress carries print progress from the orchestrator to its
// observers: machine-readable status tokens, human-readable console lines and
// the slice handoff to the display consumer.
package progress

import (
	"fmt"
	"strconv"
	"strings"
)

// Status phases.
const (
	PhaseIdle      = "idle"
	PhasePreparing = "preparing"
	PhasePrinting  = "printing"
	PhaseStopping  = "stopping"
	PhaseStopped   = "stopped"
	PhaseError     = "error"
	PhaseDestroy   = "destroy"
)

// Status subtypes.
const (
	SubNSlices           = "nSlices"
	SubSlice             = "slice"
	SubConnecting        = "connecting"
	SubConnectionSuccess = "connectionSuccess"
	SubConnectionFail    = "connectionFail"
	SubStartingProjector = "startingProjector"
	SubProjectorConnect  = "projectorConnected"
	SubProjectorNotFound = "projectorNotFound"
	SubShutter           = "shutter"
	SubHoming            = "homing"
	SubBubbles           = "bubbles"
	SubResinSettle       = "resinSettle"
	SubCommandFailed     = "commandFailed"
)

// Status is one colon-delimited status token: phase:subtype:detail.
type Status struct {
	Phase   string
	Subtype string
	Detail  string
}

// NewStatus builds a status with a string detail.
func NewStatus(phase, subtype, detail string) Status {
	return Status{Phase: phase, Subtype: subtype, Detail: detail}
}

// Count builds a status with an integer detail, e.g. printing:slice:37.
func Count(phase, subtype string, n int) Status {
	return Status{Phase: phase, Subtype: subtype, Detail: strconv.Itoa(n)}
}

// Destroy is the terminal status telling observers to release the job.
func Destroy() Status {
	return Status{Phase: PhaseDestroy}
}

func (s Status) String() string {
	if s.Phase == PhaseDestroy && s.Subtype == "" && s.Detail == "" {
		return PhaseDestroy
	}
	return s.Phase + ":" + s.Subtype + ":" + s.Detail
}

// Int returns the detail as an integer.
func (s Status) Int() (int, error) {
	return strconv.Atoi(s.Detail)
}

// ParseStatus splits a status token. A bare word is a phase with no subtype.
// The detail may itself contain colons.
func ParseStatus(token string) (Status, error) {
	if token == "" {
		return Status{}, fmt.Errorf("empty status")
	}
	parts := strings.SplitN(token, ":", 3)
	switch len(parts) {
	case 1:
		return Status{Phase: parts[0]}, nil
	case 3:
		return Status{Phase: parts[0], Subtype: parts[1], Detail: parts[2]}, nil
	}
	return Status{}, fmt.Errorf("malformed status %q", token)
}
