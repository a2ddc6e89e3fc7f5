// Package api implements the inbound HTTP boundary. It is deliberately
// thin: decode, dispatch to the orchestrator or store, encode.
// Authentication, rate limiting, and media rendering belong to the web
// layer in front of this service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/huddleai/huddle/internal/agent"
	"github.com/huddleai/huddle/internal/buildinfo"
	"github.com/huddleai/huddle/internal/memory"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response.
func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, logger *slog.Logger) {
	writeJSON(w, status, map[string]string{"error": msg}, logger)
}

// Server is the HTTP API server.
type Server struct {
	address  string
	port     int
	orch     *agent.Orchestrator
	store    *memory.Store
	mediaDir string
	logger   *slog.Logger
	server   *http.Server
}

// NewServer creates the API server. mediaDir is where rendered diagrams
// live; it is served under /media/diagrams/.
func NewServer(address string, port int, orch *agent.Orchestrator, store *memory.Store, mediaDir string, logger *slog.Logger) *Server {
	return &Server{
		address:  address,
		port:     port,
		orch:     orch,
		store:    store,
		mediaDir: mediaDir,
		logger:   logger,
	}
}

// Routes builds the router. Split out from Start so tests can drive the
// handler directly.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.withLogging)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Post("/chat", s.handleChat)
	r.Post("/reset", s.handleReset)

	r.Get("/predictions", s.handlePredictionList)
	r.Post("/predictions", s.handlePredictionCreate)
	r.Post("/predictions/{id}/resolve", s.handlePredictionResolve)

	r.Put("/fantasy/credentials", s.handleSetCredentials)

	if s.mediaDir != "" {
		fs := http.StripPrefix("/media/diagrams/", http.FileServer(http.Dir(s.mediaDir)))
		r.Get("/media/diagrams/*", fs.ServeHTTP)
	}

	return r
}

// Start begins serving HTTP requests and blocks until the listener
// fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second, // turns can span several tool rounds
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    "Huddle",
		"version": buildinfo.Version,
		"status":  "ok",
	}, s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"store":  err.Error(),
		}, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"}, s.logger)
}

type chatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", s.logger)
		return
	}
	if req.UserID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "user_id and message are required", s.logger)
		return
	}

	reply, err := s.orch.HandleTurn(r.Context(), req.UserID, req.Message)
	if err != nil {
		var loadErr *memory.LoadError
		var saveErr *memory.SaveError
		switch {
		case errors.As(err, &loadErr), errors.As(err, &saveErr):
			writeError(w, http.StatusServiceUnavailable, "conversation store unavailable, retry shortly", s.logger)
		case errors.Is(err, context.Canceled):
			// Client went away; nothing left to write.
		default:
			writeError(w, http.StatusInternalServerError, "turn failed", s.logger)
		}
		return
	}

	writeJSON(w, http.StatusOK, reply, s.logger)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", s.logger)
		return
	}
	if err := s.store.Clear(req.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, "reset failed", s.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"}, s.logger)
}

func (s *Server) handlePredictionList(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id query parameter is required", s.logger)
		return
	}
	preds, err := s.store.ListPredictions(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing predictions failed", s.logger)
		return
	}
	if preds == nil {
		preds = []memory.Prediction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"predictions": preds}, s.logger)
}

func (s *Server) handlePredictionCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Text   string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, "user_id and text are required", s.logger)
		return
	}
	p, err := s.store.CreatePrediction(req.UserID, req.Text)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "saving prediction failed", s.logger)
		return
	}
	writeJSON(w, http.StatusCreated, p, s.logger)
}

func (s *Server) handlePredictionResolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Status string `json:"status"` // "correct" or "incorrect"
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", s.logger)
		return
	}
	status := memory.PredictionStatus(req.Status)
	if err := s.store.ResolvePrediction(id, status); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error(), s.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)}, s.logger)
}

func (s *Server) handleSetCredentials(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   string `json:"user_id"`
		LeagueID string `json:"league_id"`
		ESPNS2   string `json:"espn_s2"`
		SWID     string `json:"swid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.LeagueID == "" {
		writeError(w, http.StatusBadRequest, "user_id and league_id are required", s.logger)
		return
	}
	if err := s.store.SetFantasyCredentials(req.UserID, req.LeagueID, req.ESPNS2, req.SWID); err != nil {
		writeError(w, http.StatusServiceUnavailable, "storing credentials failed", s.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "linked"}, s.logger)
}
