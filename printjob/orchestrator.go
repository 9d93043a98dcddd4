package printjob

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pc6b/monkeyprint/config"
	"github.com/pc6b/monkeyprint/host/channel"
	"github.com/pc6b/monkeyprint/progress"
)

// Defaults for Options.
const (
	DefaultGrace                  = 3 * time.Second
	DefaultMaxConsecutiveFailures = 5
)

// Devices are the channels a job drives. The orchestrator opens and closes
// them.
type Devices struct {
	Printer   channel.Channel
	Projector channel.Channel
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTick sets the polling increment of timed waits.
func WithTick(d time.Duration) Option {
	return func(o *Orchestrator) { o.tick = d }
}

// WithGrace sets the pause between the stopped and idle statuses.
func WithGrace(d time.Duration) Option {
	return func(o *Orchestrator) { o.grace = d }
}

// WithMaxConsecutiveFailures sets how many command failures in a row stop
// the job. Zero or less never stops it.
func WithMaxConsecutiveFailures(n int) Option {
	return func(o *Orchestrator) { o.maxFailures = n }
}

// WithHandoffTimeout bounds each wait for a display acknowledgement. The
// default of zero waits forever.
func WithHandoffTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.handoffTimeout = d }
}

// WithJobID overrides the generated job ID.
func WithJobID(id string) Option {
	return func(o *Orchestrator) { o.jobID = id }
}

// Orchestrator runs one print job. It must not be reused.
type Orchestrator struct {
	settings config.Settings
	timing   Timing
	slices   int
	jobID    string

	printer   channel.Channel
	projector channel.Channel
	dispatch  Dispatcher

	sink    *progress.Sink
	handoff *progress.Handoff
	logger  *slog.Logger

	tick           time.Duration
	grace          time.Duration
	maxFailures    int
	handoffTimeout time.Duration

	cancelled atomic.Bool
	started   atomic.Bool
	done      chan struct{}

	mu     sync.Mutex
	state  State
	result Result

	// Owned by the run goroutine.
	slice              int
	failures           int
	printerConnected   bool
	projectorConnected bool
	runErr             error
}

// New validates the model, derives timing and picks the dispatch strategy.
// settings is copied; the caller's value is never modified. A nil sink gets
// a private one.
func New(settings config.Settings, model Model, devices Devices, sink *progress.Sink, handoff *progress.Handoff, opts ...Option) (*Orchestrator, error) {
	slices := model.NumberOfSlices()
	if slices < 1 {
		return nil, fmt.Errorf("%w: %d", ErrNoSlices, slices)
	}
	if devices.Printer == nil || devices.Projector == nil {
		return nil, fmt.Errorf("printer and projector channels are required")
	}
	if handoff == nil {
		return nil, fmt.Errorf("a slice handoff is required")
	}
	if h := model.LayerHeight(); h > 0 {
		settings.LayerHeight = h
	}

	o := &Orchestrator{
		settings:    settings,
		timing:      DeriveTiming(settings),
		slices:      slices,
		printer:     devices.Printer,
		projector:   devices.Projector,
		sink:        sink,
		handoff:     handoff,
		logger:      slog.Default(),
		tick:        DefaultTick,
		grace:       DefaultGrace,
		maxFailures: DefaultMaxConsecutiveFailures,
		done:        make(chan struct{}),
		state:       State{Phase: Idle, Total: slices},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.sink == nil {
		o.sink = progress.NewSink(o.logger)
	}
	if o.jobID == "" {
		o.jobID = uuid.NewString()
	}
	o.logger = o.logger.With("component", "printjob", "job_id", o.jobID)

	if settings.MonkeyprintBoard {
		o.dispatch = newNativeDispatcher(o.printer, o.timing)
	} else {
		d, err := newGCodeDispatcher(o.printer, settings, o.timing, slices)
		if err != nil {
			return nil, err
		}
		o.dispatch = d
	}

	o.logger.Debug("timing derived",
		"build_steps_per_mm", o.timing.BuildStepsPerMm,
		"build_min_move", o.timing.BuildMinimumMove,
		"layer_steps", o.timing.LayerHeight,
		"tilt_steps", o.timing.TiltAngle,
		"tilt_steps_per_turn", o.timing.TiltStepsPerTurn)
	return o, nil
}

// ID returns the job ID.
func (o *Orchestrator) ID() string { return o.jobID }

// Timing returns the derived step counts.
func (o *Orchestrator) Timing() Timing { return o.timing }

// Slices returns the total slice count.
func (o *Orchestrator) Slices() int { return o.slices }

// State returns a snapshot of the current phase and slice.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(phase Phase, slice int) {
	o.mu.Lock()
	o.state = State{Phase: phase, Slice: slice, Total: o.slices}
	o.mu.Unlock()
}

// Cancel asks the job to stop at the next action boundary. It is safe to
// call from any goroutine and more than once.
func (o *Orchestrator) Cancel() {
	if o.cancelled.CompareAndSwap(false, true) {
		o.logger.Info("cancellation requested")
		o.sink.Printf("Cancelled. Finishing current action.")
	}
}

// Cancelled reports whether cancellation has been requested.
func (o *Orchestrator) Cancelled() bool {
	return o.cancelled.Load()
}

// Start runs the job on a new goroutine.
func (o *Orchestrator) Start(ctx context.Context) error {
	if !o.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	go o.run(ctx)
	return nil
}

// Run runs the job on the calling goroutine and returns when the terminal
// destroy status has been emitted. Cancelling ctx is the same as Cancel.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	if !o.started.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyStarted
	}
	return o.run(ctx), nil
}

// Done is closed when the job has finished.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// Wait blocks until the job has finished and returns its result.
func (o *Orchestrator) Wait() Result {
	<-o.done
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}

func (o *Orchestrator) run(ctx context.Context) Result {
	stop := context.AfterFunc(ctx, o.Cancel)
	defer stop()

	// Hardware calls are never interrupted mid-way.
	hw := context.WithoutCancel(ctx)

	o.logger.Info("print job started", "slices", o.slices, "native", o.settings.MonkeyprintBoard)
	o.slice = 1

	o.prepare(hw)
	o.print(hw)
	res := o.teardown(hw)

	o.mu.Lock()
	o.result = res
	o.mu.Unlock()
	close(o.done)

	o.logger.Info("print job finished", "outcome", res.Outcome(), "slices_completed", res.SlicesCompleted)
	return res
}

func (o *Orchestrator) emit(st progress.Status) {
	o.sink.Emit(st)
}

// show hands a frame to the display and waits for the acknowledgement.
func (o *Orchestrator) show(ctx context.Context, slice int) {
	if o.handoffTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.handoffTimeout)
		defer cancel()
	}
	if err := o.handoff.Show(ctx, slice); err != nil {
		o.logger.Error("display did not acknowledge frame", "slice", slice, "error", err)
		o.sink.Printf("Display did not confirm frame %d.", slice)
	}
}
