// Package server exposes the notification core over HTTP: synchronous
// dispatch, reminder replay, and a pending-jobs view.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"tribunal-notifier/pkg/notify"
	"tribunal-notifier/snapshot"
)

// Engine processes case events.
type Engine interface {
	Process(ctx context.Context, rawEventID string, oldState notify.CaseState, snap *notify.CaseSnapshot) ([]notify.DispatchResult, error)
	Replay(ctx context.Context, rawEventID string, snap *notify.CaseSnapshot) ([]notify.DispatchResult, error)
}

// Scheduler lists pending jobs for the administrative surface.
type Scheduler interface {
	Pending(caseID, groupKey string) []notify.ScheduledJob
}

// SnapshotSink records the latest snapshot per case for fire-time
// re-resolution. May be nil when no store is configured.
type SnapshotSink interface {
	SaveSnapshot(ctx context.Context, snap *notify.CaseSnapshot) error
}

// Server handles HTTP requests.
type Server struct {
	engine    Engine
	scheduler Scheduler
	snapshots SnapshotSink
	logger    *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Engine    Engine
	Scheduler Scheduler
	Snapshots SnapshotSink
	Logger    *slog.Logger
}

// New creates a new HTTP server handler.
func New(cfg *Config) *Server {
	return &Server{
		engine:    cfg.Engine,
		scheduler: cfg.Scheduler,
		snapshots: cfg.Snapshots,
		logger:    cfg.Logger,
	}
}

// Routes registers all endpoints on the mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/notify", s.handleNotify)
	mux.HandleFunc("/replay", s.handleReplay)
	mux.HandleFunc("/jobs", s.handleJobs)
	mux.HandleFunc("/health", handleHealth)
}

// ListenAndServe starts the server on the given port.
func (s *Server) ListenAndServe(port string) error {
	mux := http.NewServeMux()
	s.Routes(mux)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting HTTP server", "port", port)
	return srv.ListenAndServe()
}

// eventRequest is the inbound payload for /notify and /replay: the raw event
// identifier, the case state before the event, and the raw case record.
type eventRequest struct {
	Event    string          `json:"event"`
	OldState string          `json:"old_state,omitempty"`
	Case     json.RawMessage `json:"case"`
}

type resultView struct {
	Role       notify.Role    `json:"role"`
	Channel    notify.Channel `json:"channel"`
	TemplateID string         `json:"template_id"`
	Reference  string         `json:"reference"`
	Error      string         `json:"error,omitempty"`
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	s.handleEvent(w, r, false)
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	s.handleEvent(w, r, true)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request, replay bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		http.Error(w, "Failed to read request", http.StatusBadRequest)
		return
	}

	var req eventRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Malformed request", http.StatusBadRequest)
		return
	}
	if req.Event == "" {
		http.Error(w, "Missing event", http.StatusBadRequest)
		return
	}

	// An unreadable case record is the one condition surfaced as a request
	// failure; everything downstream degrades to an empty plan instead.
	snap, err := snapshot.Parse(req.Case)
	if err != nil {
		s.logger.Warn("Unreadable case payload", "event", req.Event, "error", err)
		http.Error(w, fmt.Sprintf("Unreadable case payload: %v", err), http.StatusBadRequest)
		return
	}

	if s.snapshots != nil {
		if err := s.snapshots.SaveSnapshot(r.Context(), snap); err != nil {
			s.logger.Warn("Failed to record case snapshot", "case_id", snap.CaseID, "error", err)
		}
	}

	var results []notify.DispatchResult
	if replay {
		results, err = s.engine.Replay(r.Context(), req.Event, snap)
	} else {
		results, err = s.engine.Process(r.Context(), req.Event, notify.CaseState(req.OldState), snap)
	}
	if err != nil {
		s.logger.Error("Event processing failed", "case_id", snap.CaseID, "event", req.Event, "error", err)
		http.Error(w, "Processing failed", http.StatusInternalServerError)
		return
	}

	views := make([]resultView, 0, len(results))
	for _, res := range results {
		v := resultView{
			Role:       res.Instruction.Role,
			Channel:    res.Instruction.Channel,
			TemplateID: res.Instruction.TemplateID,
			Reference:  res.Reference,
		}
		if res.Err != nil {
			v.Error = res.Err.Error()
		}
		views = append(views, v)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"case_id": snap.CaseID,
		"event":   req.Event,
		"results": views,
	})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	caseID := r.URL.Query().Get("case_id")
	if caseID == "" {
		http.Error(w, "Missing case_id", http.StatusBadRequest)
		return
	}

	jobs := s.scheduler.Pending(caseID, r.URL.Query().Get("group"))
	s.writeJSON(w, http.StatusOK, map[string]any{
		"case_id": caseID,
		"jobs":    jobs,
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, `{"status":"healthy"}`); err != nil && !errors.Is(err, http.ErrBodyNotAllowed) {
		return
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}
