// Package server exposes scanning and ledger queries over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ppiankov/phishfuse/internal/ledger"
	"github.com/ppiankov/phishfuse/internal/model"
	"github.com/ppiankov/phishfuse/internal/pipeline"
)

const (
	maxRequestBytes = 4 << 20
	defaultRecent   = 10
	maxRecent       = 1000
)

// Scanner produces a report for one URL
type Scanner interface {
	Scan(ctx context.Context, rawURL string, prefetchedHTML string) (*model.Report, error)
}

// ScanRequest is the POST /scan body
type ScanRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server handles the HTTP routes
type Server struct {
	scanner     Scanner
	ledger      ledger.Ledger
	logger      *slog.Logger
	scanTimeout time.Duration
}

// New creates a server. scanTimeout bounds each POST /scan; zero means none.
func New(scanner Scanner, l ledger.Ledger, logger *slog.Logger, scanTimeout time.Duration) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{scanner: scanner, ledger: l, logger: logger, scanTimeout: scanTimeout}
}

// Routes returns the router
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	r.Post("/scan", s.scan)
	r.Get("/stats", s.stats)
	r.Get("/recent", s.recent)
	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	ctx := r.Context()
	if s.scanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.scanTimeout)
		defer cancel()
	}

	report, err := s.scanner.Scan(ctx, req.URL, req.HTML)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidURL) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("scan failed", "url", req.URL, "request_id", middleware.GetReqID(r.Context()), "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeError(w, http.StatusServiceUnavailable, "no ledger configured")
		return
	}
	st, err := s.ledger.Stats(r.Context())
	if err != nil {
		s.ledgerFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) recent(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeError(w, http.StatusServiceUnavailable, "no ledger configured")
		return
	}
	n := defaultRecent
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "n must be a non-negative integer")
			return
		}
		n = min(v, maxRecent)
	}
	records, err := s.ledger.Recent(r.Context(), n)
	if err != nil {
		s.ledgerFailure(w, r, err)
		return
	}
	if records == nil {
		records = []model.ScanRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) ledgerFailure(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("ledger read failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
	writeError(w, http.StatusInternalServerError, "ledger unavailable")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("listening", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
