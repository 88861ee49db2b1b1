// Package api exposes the router over HTTP as JSON endpoints.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"querybridge/internal/logger"
	"querybridge/internal/router"
)

// MaxUploadBytes caps the size of an imported file.
const MaxUploadBytes = 64 << 20

type Options struct {
	// WebDir is served at / when set.
	WebDir string
	// Bridge, when set, is mounted at /bridge for hosts that dial in.
	Bridge http.Handler
}

type Server struct {
	db     *router.Router
	router *mux.Router
}

func NewServer(db *router.Router, opts Options) *Server {
	s := &Server{db: db, router: mux.NewRouter()}
	s.setupMiddleware()
	s.setupRoutes(opts)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
		})
	})
}

func (s *Server) setupRoutes(opts Options) {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/dialects", s.handleDialects).Methods(http.MethodGet)
	api.HandleFunc("/connections", s.handleListConnections).Methods(http.MethodGet)
	api.HandleFunc("/connections/import", s.handleImport).Methods(http.MethodPost)

	conn := api.PathPrefix("/connections/{id}").Subrouter()
	conn.HandleFunc("/schema", s.handleSchema).Methods(http.MethodGet)
	conn.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	conn.HandleFunc("/query", s.handleQuery).Methods(http.MethodPost)
	conn.HandleFunc("/explain", s.handleExplain).Methods(http.MethodPost)
	conn.HandleFunc("/insights", s.handleInsights).Methods(http.MethodPost)
	conn.HandleFunc("/sessions/{session}/kill", s.handleKill).Methods(http.MethodPost)
	conn.HandleFunc("/tables/{table}/rebuild", s.handleRebuild).Methods(http.MethodPost)
	conn.HandleFunc("/advice", s.handleAdvice).Methods(http.MethodGet)
	conn.HandleFunc("/compose", s.handleCompose).Methods(http.MethodPost)

	if opts.Bridge != nil {
		s.router.Handle("/bridge", opts.Bridge)
	}
	if opts.WebDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(opts.WebDir)))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
