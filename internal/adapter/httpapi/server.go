package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"regbot/internal/domain"
	"regbot/internal/logger"
)

const maxRequestBody = 1 << 20

// Answerer is the query orchestrator as seen by the HTTP layer.
type Answerer interface {
	Answer(ctx context.Context, question string) domain.Response
}

// Server exposes the orchestrator over HTTP.
type Server struct {
	answerer       Answerer
	log            *slog.Logger
	mux            *http.ServeMux
	indexAvailable bool
}

// Option configures a Server.
type Option func(*Server)

// WithIndexAvailable sets the index status reported by /healthz.
func WithIndexAvailable(available bool) Option {
	return func(s *Server) {
		s.indexAvailable = available
	}
}

func NewServer(answerer Answerer, log *slog.Logger, opts ...Option) *Server {
	s := &Server{
		answerer:       answerer,
		log:            logger.OrDiscard(log),
		mux:            http.NewServeMux(),
		indexAvailable: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mux.HandleFunc("POST /query", s.handleQuery)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	log := s.log.With("request_id", requestID)
	start := time.Now()

	var req domain.QueryRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		log.Warn("malformed query request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp := s.answerer.Answer(r.Context(), req.Question)
	log.Info("query served", "outcome", resp.Outcome, "retrieved", len(resp.Retrieved), "elapsed", time.Since(start))

	w.Header().Set("X-Request-ID", requestID)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	index := "available"
	if !s.indexAvailable {
		index = "unavailable"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "index": index})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
