// Package printjob runs a print: it prepares the printer, exposes every
// slice in turn and always brings the hardware back to rest, while observers
// follow along through a progress.Sink.
package printjob

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyStarted is returned when a job is run twice.
	ErrAlreadyStarted = errors.New("print job already started")
	// ErrNoSlices is returned for a model without slices.
	ErrNoSlices = errors.New("model has no slices")
	// ErrConnection wraps a printer channel that failed to open.
	ErrConnection = errors.New("printer connection failed")
	// ErrPreparation is recorded when a command failed while preparing.
	ErrPreparation = errors.New("preparation failed")
	// ErrTooManyFailures is recorded when consecutive command failures
	// stopped the job.
	ErrTooManyFailures = errors.New("too many consecutive command failures")
)

// Phase is the orchestrator's position in the job lifecycle.
type Phase int

const (
	Idle Phase = iota
	Preparing
	Printing
	Stopping
	Stopped
	Error
)

// String returns the phase token used in status events.
func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Preparing:
		return "preparing"
	case Printing:
		return "printing"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	case Error:
		return "error"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// State is a snapshot for observers. Slice is 1-based; 0 means no exposure
// is active.
type State struct {
	Phase Phase
	Slice int
	Total int
}

// Model supplies the slice count and layer height, read once at New.
type Model interface {
	NumberOfSlices() int
	LayerHeight() float64
}

// StaticModel is a Model with fixed values.
type StaticModel struct {
	Slices int
	Height float64 // mm; 0 keeps the configured layer height
}

func (m StaticModel) NumberOfSlices() int { return m.Slices }
func (m StaticModel) LayerHeight() float64 { return m.Height }

// Outcomes recorded for finished jobs.
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeError     = "error"
)

// Result summarises a finished run.
type Result struct {
	JobID           string
	Phase           Phase // Stopped, or Error when the printer never connected
	SlicesTotal     int
	SlicesCompleted int
	Cancelled       bool
	Err             error
}

// Outcome classifies the result for history and monitoring.
func (r Result) Outcome() string {
	switch {
	case r.Phase == Error,
		errors.Is(r.Err, ErrConnection),
		errors.Is(r.Err, ErrPreparation),
		errors.Is(r.Err, ErrTooManyFailures):
		return OutcomeError
	case r.SlicesCompleted < r.SlicesTotal:
		return OutcomeCancelled
	}
	return OutcomeCompleted
}
