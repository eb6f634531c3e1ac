// Package server is a local stand-in for the care plan API. It speaks the same
// HTTP+JSON contract as the production backend so the CLI and TUI can be
// exercised without it.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/config"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/processing"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/storage"
)

const maxBodySize = 1 << 20

// Server hosts the order endpoints over an in-memory store.
type Server struct {
	cfg       config.StubConfig
	store     *storage.MemoryStore
	processor *processing.Processor
	log       zerolog.Logger
	once      sync.Once
	newID     func() string
}

// New creates a configured server.
func New(cfg config.StubConfig, store *storage.MemoryStore, processor *processing.Processor, log zerolog.Logger) *Server {
	return &Server{
		cfg:       cfg,
		store:     store,
		processor: processor,
		log:       log.With().Str("component", "stub-server").Logger(),
		newID:     newOrderID,
	}
}

// Start launches the processing pool. Serve calls it; tests that only need
// Handler call it directly.
func (s *Server) Start(ctx context.Context) {
	s.once.Do(func() {
		s.processor.Start(ctx)
	})
}

// Serve runs the HTTP server until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.Start(ctx)
	httpServer := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()
	s.log.Info().Str("address", s.cfg.Address).Msg("stub server listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(s.log))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/orders", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Post("/search/", s.handleSearch)
		r.Get("/{orderID}/", s.handleDetail)
		r.Get("/{orderID}", s.handleDetail)
		r.Get("/{orderID}/download", s.handleDownload)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, &apiError{Type: typeError, Code: "NOT_FOUND", Message: "Not found", status: http.StatusNotFound})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, &apiError{Type: typeError, Code: "METHOD_NOT_ALLOWED", Message: "Method not allowed", status: http.StatusMethodNotAllowed})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) *apiError {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &apiError{
			Type:    typeValidation,
			Code:    "INVALID_JSON",
			Message: "Request body is not valid JSON.",
			status:  http.StatusBadRequest,
		}
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
