package monitor

import (
	"errors"
	"sync"
	"testing"

	"github.com/pc6b/monkeyprint/progress"
)

type published struct {
	topic    string
	retained bool
	payload  string
}

type recordingBroker struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (b *recordingBroker) publish(topic string, retained bool, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, published{topic, retained, string(payload)})
	return b.err
}

func TestTopic(t *testing.T) {
	tests := []struct {
		prefix string
		kind   progress.EventKind
		want   string
	}{
		{"", progress.KindStatus, "monkeyprint/j1/status"},
		{"lab/printer", progress.KindConsole, "lab/printer/j1/console"},
		{"lab/", progress.KindStatus, "lab/j1/status"},
	}
	for _, tt := range tests {
		if got := Topic(tt.prefix, "j1", tt.kind); got != tt.want {
			t.Errorf("Topic(%q, %q) = %q, want %q", tt.prefix, tt.kind, got, tt.want)
		}
	}
}

func TestPublisherFollow(t *testing.T) {
	broker := &recordingBroker{}
	p := newPublisher(broker.publish, "", newTestLogger())
	sink := progress.NewSink(newTestLogger())

	p.Follow("j1", sink)
	sink.Emit(progress.Count(progress.PhasePrinting, progress.SubSlice, 2))
	sink.Printf("Printing slice %d.", 2)
	p.Close()

	want := []published{
		{"monkeyprint/j1/status", true, "printing:slice:2"},
		{"monkeyprint/j1/console", false, "Printing slice 2."},
	}
	if len(broker.msgs) != len(want) {
		t.Fatalf("published %d messages, want %d: %+v", len(broker.msgs), len(want), broker.msgs)
	}
	for i := range want {
		if broker.msgs[i] != want[i] {
			t.Errorf("message %d = %+v, want %+v", i, broker.msgs[i], want[i])
		}
	}

	// Nothing is published after Close.
	sink.Printf("late")
	if len(broker.msgs) != len(want) {
		t.Errorf("published after Close: %+v", broker.msgs)
	}
}

func TestPublisherKeepsGoingOnError(t *testing.T) {
	broker := &recordingBroker{err: errors.New("broker gone")}
	p := newPublisher(broker.publish, "x", newTestLogger())
	sink := progress.NewSink(newTestLogger())

	p.Follow("j1", sink)
	sink.Printf("one")
	sink.Printf("two")
	p.Close()

	if len(broker.msgs) != 2 {
		t.Errorf("published %d messages, want 2", len(broker.msgs))
	}
}

func TestConnectWithoutClient(t *testing.T) {
	p := newPublisher(func(string, bool, []byte) error { return nil }, "", newTestLogger())
	if err := p.Connect(); err == nil {
		t.Error("Connect() without client succeeded")
	}
}
