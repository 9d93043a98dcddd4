package progress

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Channel capacities. When full the oldest entry is dropped.
const (
	StatusBuffer  = 64
	ConsoleBuffer = 1024
)

// EventKind distinguishes the two one-way streams.
type EventKind string

const (
	KindStatus  EventKind = "status"
	KindConsole EventKind = "console"
)

// Event is what subscribers receive.
type Event struct {
	Kind   EventKind
	Text   string
	Status Status // set for KindStatus
	Time   time.Time
}

// Sink fans status and console output out to bounded channels and
// subscribers. Publishing never blocks.
type Sink struct {
	logger *slog.Logger

	statuses chan Status
	console  chan string

	mu      sync.Mutex
	last    Status
	hasLast bool
	subs    map[int]chan Event
	nextSub int
	now     func() time.Time
}

// NewSink creates a sink. A nil logger uses slog.Default.
func NewSink(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		logger:   logger.With("component", "progress"),
		statuses: make(chan Status, StatusBuffer),
		console:  make(chan string, ConsoleBuffer),
		subs:     make(map[int]chan Event),
		now:      time.Now,
	}
}

// Emit publishes a status token.
func (s *Sink) Emit(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = st
	s.hasLast = true
	offer(s.statuses, st)
	s.broadcast(Event{Kind: KindStatus, Text: st.String(), Status: st, Time: s.now()})
	s.logger.Debug("status", "status", st.String())
}

// Printf publishes a console line.
func (s *Sink) Printf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)

	s.mu.Lock()
	defer s.mu.Unlock()

	offer(s.console, line)
	s.broadcast(Event{Kind: KindConsole, Text: line, Time: s.now()})
	s.logger.Debug("console", "line", line)
}

// Statuses is the bounded status stream.
func (s *Sink) Statuses() <-chan Status {
	return s.statuses
}

// Console is the bounded console stream.
func (s *Sink) Console() <-chan string {
	return s.console
}

// Last returns the most recent status.
func (s *Sink) Last() (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.hasLast
}

// Subscribe registers a listener receiving every event published after the
// call. Slow listeners lose their oldest events. The returned func
// unsubscribes and closes the channel.
func (s *Sink) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = StatusBuffer
	}
	ch := make(chan Event, buffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Sink) broadcast(ev Event) {
	for _, ch := range s.subs {
		offer(ch, ev)
	}
}

// offer sends v without blocking, evicting the oldest entry when full.
func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
