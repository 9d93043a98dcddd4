package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pc6b/monkeyprint/history"
	"github.com/pc6b/monkeyprint/printjob"
	"github.com/pc6b/monkeyprint/progress"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeJob struct {
	cancelled atomic.Bool
}

func (j *fakeJob) ID() string { return "job-1" }

func (j *fakeJob) State() printjob.State {
	return printjob.State{Phase: printjob.Printing, Slice: 4, Total: 10}
}

func (j *fakeJob) Cancel() { j.cancelled.Store(true) }

type fakeHistory struct {
	jobs []history.Job
	err  error
}

func (h *fakeHistory) List(ctx context.Context, limit int) ([]history.Job, error) {
	if h.err != nil {
		return nil, h.err
	}
	if limit < len(h.jobs) {
		return h.jobs[:limit], nil
	}
	return h.jobs, nil
}

func newTestServer(t *testing.T, hist HistoryLister) (*Server, *progress.Sink, *httptest.Server) {
	t.Helper()
	sink := progress.NewSink(newTestLogger())
	s := New(Config{Sink: sink, History: hist, Logger: newTestLogger()})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return s, sink, ts
}

func TestStatusWithoutJob(t *testing.T) {
	_, _, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var got StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Phase != "idle" || got.JobID != "" {
		t.Errorf("status = %+v", got)
	}
}

func TestStatusWithJob(t *testing.T) {
	s, sink, ts := newTestServer(t, nil)
	s.SetJob(&fakeJob{})
	sink.Emit(progress.Count(progress.PhasePrinting, progress.SubSlice, 4))

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var got StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	want := StatusResponse{JobID: "job-1", Phase: "printing", Slice: 4, Total: 10, Status: "printing:slice:4"}
	if got != want {
		t.Errorf("status = %+v, want %+v", got, want)
	}
}

func TestCancel(t *testing.T) {
	s, _, ts := newTestServer(t, nil)

	resp, err := http.Post(ts.URL+"/api/cancel", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("cancel without job = %d, want 409", resp.StatusCode)
	}

	job := &fakeJob{}
	s.SetJob(job)
	resp, err = http.Post(ts.URL+"/api/cancel", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("cancel = %d, want 202", resp.StatusCode)
	}
	if !job.cancelled.Load() {
		t.Error("job not cancelled")
	}

	resp, err = http.Get(ts.URL + "/api/cancel")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/cancel = %d, want 405", resp.StatusCode)
	}
}

func TestHistory(t *testing.T) {
	hist := &fakeHistory{jobs: []history.Job{
		{ID: "b", Status: history.StatusCompleted, SlicesTotal: 3, SlicesCompleted: 3},
		{ID: "a", Status: history.StatusCancelled, SlicesTotal: 5, SlicesCompleted: 2},
	}}
	_, _, ts := newTestServer(t, hist)

	resp, err := http.Get(ts.URL + "/api/history?limit=1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var got []history.Job
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("history = %+v", got)
	}

	resp2, err := http.Get(ts.URL + "/api/history?limit=x")
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit = %d, want 400", resp2.StatusCode)
	}
}

func TestHistoryErrors(t *testing.T) {
	_, _, ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/api/history")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("history disabled = %d, want 404", resp.StatusCode)
	}

	_, _, ts = newTestServer(t, &fakeHistory{err: errors.New("disk on fire")})
	resp, err = http.Get(ts.URL + "/api/history")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("history failure = %d, want 500", resp.StatusCode)
	}
}

func TestWebSocketStream(t *testing.T) {
	s, sink, ts := newTestServer(t, nil)
	sink.Emit(progress.Count(progress.PhasePreparing, progress.SubNSlices, 3))

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.Type != "status" || msg.Text != "preparing:nSlices:3" {
		t.Errorf("first message = %+v", msg)
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	sink.Printf("Printing slice %d.", 1)
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.Type != "console" || msg.Text != "Printing slice 1." {
		t.Errorf("second message = %+v", msg)
	}

	sink.Emit(progress.Count(progress.PhasePrinting, progress.SubSlice, 1))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.Type != "status" || msg.Text != "printing:slice:1" {
		t.Errorf("third message = %+v", msg)
	}
}

func TestCloseDisconnectsClients(t *testing.T) {
	s, _, ts := newTestServer(t, nil)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	s.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("ReadMessage() after Close() succeeded")
	}
}
