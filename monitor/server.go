// Package monitor exposes a running print to remote observers over HTTP,
// websockets and MQTT.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/pc6b/monkeyprint/history"
	"github.com/pc6b/monkeyprint/printjob"
	"github.com/pc6b/monkeyprint/progress"
)

// Job is the part of a print job the server needs.
type Job interface {
	ID() string
	State() printjob.State
	Cancel()
}

// HistoryLister lists recorded jobs.
type HistoryLister interface {
	List(ctx context.Context, limit int) ([]history.Job, error)
}

// Config configures a Server.
type Config struct {
	Addr    string
	Sink    *progress.Sink
	History HistoryLister // optional
	Logger  *slog.Logger
}

// Server serves job status and a live event stream.
type Server struct {
	addr     string
	sink     *progress.Sink
	history  HistoryLister
	logger   *slog.Logger
	upgrader websocket.Upgrader
	router   *mux.Router

	jobMu sync.RWMutex
	job   Job

	clientMu sync.Mutex
	clients  map[int64]*wsClient
	nextID   atomic.Int64

	unsubscribe func()
	pumpDone    chan struct{}
	closeOnce   sync.Once
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	JobID  string `json:"job_id,omitempty"`
	Phase  string `json:"phase"`
	Slice  int    `json:"slice"`
	Total  int    `json:"total"`
	Status string `json:"status,omitempty"`
}

// Message is pushed to websocket clients for every progress event.
type Message struct {
	Type string    `json:"type"`
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

// New builds the server and starts relaying sink events to websocket
// clients. Call Close to release it.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sink := cfg.Sink
	if sink == nil {
		sink = progress.NewSink(logger)
	}

	s := &Server{
		addr:     cfg.Addr,
		sink:     sink,
		history:  cfg.History,
		logger:   logger.With("component", "monitor"),
		clients:  make(map[int64]*wsClient),
		pumpDone: make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/cancel", s.handleCancel).Methods(http.MethodPost)
	api.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWebSocket)
	s.router = r

	events, unsubscribe := sink.Subscribe(progress.ConsoleBuffer)
	s.unsubscribe = unsubscribe
	go s.pump(events)

	return s
}

// SetJob attaches the job whose state is reported and which /api/cancel
// cancels.
func (s *Server) SetJob(job Job) {
	s.jobMu.Lock()
	s.job = job
	s.jobMu.Unlock()
}

func (s *Server) currentJob() Job {
	s.jobMu.RLock()
	defer s.jobMu.RUnlock()
	return s.job
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on the configured address until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("monitor listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.closeClients()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// Close stops relaying events and disconnects every websocket client.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.unsubscribe()
		<-s.pumpDone
		s.closeClients()
	})
}

func (s *Server) pump(events <-chan progress.Event) {
	defer close(s.pumpDone)
	for ev := range events {
		msg := Message{Type: string(ev.Kind), Text: ev.Text, Time: ev.Time}
		s.clientMu.Lock()
		for _, c := range s.clients {
			c.send(msg)
		}
		s.clientMu.Unlock()
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Phase: printjob.Idle.String()}
	if job := s.currentJob(); job != nil {
		st := job.State()
		resp.JobID = job.ID()
		resp.Phase = st.Phase.String()
		resp.Slice = st.Slice
		resp.Total = st.Total
	}
	if last, ok := s.sink.Last(); ok {
		resp.Status = last.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	job := s.currentJob()
	if job == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no job running"})
		return
	}
	job.Cancel()
	s.logger.Info("cancel requested over http", "remote", r.RemoteAddr, "job_id", job.ID())
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID(), "result": "cancelling"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "history disabled"})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}
	jobs, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("list history", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if jobs == nil {
		jobs = []history.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}
