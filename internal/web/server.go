// Package web provides an HTTP status server for the feeder-monitor daemon.
package web

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/pawsense/feeder-monitor/internal/recorder"
	"github.com/pawsense/feeder-monitor/internal/status"
)

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	history    recorder.Recorder
}

// New creates a Server that reads live state from the tracker and archived
// events from the recorder. A nil recorder serves empty histories.
func New(addr string, tracker *status.Tracker, history recorder.Recorder) *Server {
	if history == nil {
		history = recorder.NewNoopRecorder()
	}
	s := &Server{tracker: tracker, history: history}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/devices/", s.handleDevice)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// handleDevice serves /devices/<id>.json and /devices/<id>/history.json.
func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/devices/")
	if id, ok := strings.CutSuffix(path, "/history.json"); ok {
		s.handleHistory(w, r, id)
		return
	}

	id := strings.TrimSuffix(path, ".json")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	snap := s.tracker.Snapshot()
	dev, ok := snap.Device(id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatDeviceJSON(dev))
}

// handleHistory serves archived eating events for one feeder. The window
// defaults to 7 days, capped at 90.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	if _, ok := snap.Device(id); !ok {
		http.NotFound(w, r)
		return
	}

	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 90 {
			http.Error(w, "days must be between 1 and 90", http.StatusBadRequest)
			return
		}
		days = n
	}

	since := snap.Now.AddDate(0, 0, -days)
	events, err := s.history.EventsSince(id, since)
	if err != nil {
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatHistoryJSON(id, since, events))
}
