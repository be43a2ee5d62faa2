package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/joescharf/pulse/internal/engine"
	"github.com/joescharf/pulse/internal/models"
	"github.com/joescharf/pulse/internal/store"
)

// Server provides the REST API handlers.
type Server struct {
	source engine.Source
	engine *engine.Engine
	logger *slog.Logger
}

// NewServer creates a new API server over src.
func NewServer(src engine.Source, eng *engine.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{source: src, engine: eng, logger: logger}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/projects", s.listProjects)
	mux.HandleFunc("GET /api/v1/projects/{id}", s.getProject)
	mux.HandleFunc("GET /api/v1/projects/{id}/health", s.projectHealth)
	mux.HandleFunc("GET /api/v1/projects/{id}/priorities", s.projectPriorities)
	mux.HandleFunc("GET /api/v1/projects/{id}/chat", s.projectChat)
	mux.HandleFunc("GET /api/v1/projects/{id}/chat/trends", s.projectChatTrends)
	mux.HandleFunc("GET /api/v1/projects/{id}/burndown", s.projectBurndown)
	mux.HandleFunc("GET /api/v1/projects/{id}/recommendations", s.projectRecommendations)
	mux.HandleFunc("GET /api/v1/projects/{id}/report", s.projectReport)

	return s.requestLogger(corsMiddleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogger tags every request with an X-Request-ID, reusing the
// caller's when present, and logs it once served.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		s.logger.Info("http request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeErr maps engine and store errors to status codes.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// intParam reads an integer query parameter, falling back to def when absent.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.InvalidParam(name, raw, "is not a number")
	}
	return n, nil
}

func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, models.InvalidParam(name, raw, "is not a boolean")
	}
	return b, nil
}

func (s *Server) snapshot(r *http.Request) (*engine.Snapshot, error) {
	return engine.Load(r.Context(), s.source, r.PathValue("id"), time.Time{})
}

// --- Projects ---

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.source.ListProjects(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if projects == nil {
		projects = []*models.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	p, err := engine.ResolveProject(r.Context(), s.source, r.PathValue("id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// --- Analytics ---

func (s *Server) projectHealth(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	report, err := s.engine.AnalyzeHealth(snap.Project, snap.Tasks)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) projectPriorities(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	snap, err := s.snapshot(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	ranked, err := s.engine.ScoreTaskPriorities(snap.Tasks, limit)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ranked)
}

func (s *Server) projectChat(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", engine.DefaultChatWindowDays)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	snap, err := s.snapshot(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	summary, err := s.engine.AnalyzeChatActivity(snap.Project, snap.Messages, days)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) projectChatTrends(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	trends, err := s.engine.ChatTrends(snap.Project, snap.Messages)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trends)
}

func (s *Server) projectBurndown(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	series, err := s.engine.BuildBurndown(snap.Project, snap.Tasks)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) analyze(r *http.Request) (*engine.ProjectReport, error) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		return nil, err
	}
	days, err := intParam(r, "days", engine.DefaultChatWindowDays)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		return nil, models.InvalidParam("days", days, "must be positive")
	}
	ai, err := boolParam(r, "ai")
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshot(r)
	if err != nil {
		return nil, err
	}
	return s.engine.Analyze(r.Context(), *snap, engine.Options{
		PriorityLimit:  limit,
		ChatWindowDays: days,
		IncludeChat:    true,
		Narrative:      ai,
	})
}

func (s *Server) projectRecommendations(w http.ResponseWriter, r *http.Request) {
	report, err := s.analyze(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report.Recommendations)
}

func (s *Server) projectReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.analyze(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
