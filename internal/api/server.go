// Package api serves the renamer operations as a JSON HTTP API.
package api

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kbruxvoort/file-renamer/internal/config"
	"github.com/kbruxvoort/file-renamer/internal/logging"
	"github.com/kbruxvoort/file-renamer/internal/media"
	"github.com/kbruxvoort/file-renamer/internal/scanner"
	"github.com/kbruxvoort/file-renamer/internal/service"
	"github.com/kbruxvoort/file-renamer/internal/undo"
)

// Backend is the set of operations the API exposes. *service.Service
// implements it.
type Backend interface {
	Scan(ctx context.Context, roots []string, minSizeMB float64) ([]scanner.Result, error)
	Execute(ctx context.Context, items []service.ExecuteItem) (*service.ExecuteReport, error)
	Undo(ctx context.Context) (*undo.Report, error)
	History() ([]undo.Batch, error)
	Search(ctx context.Context, query string, t media.Type, year int) ([]media.Candidate, error)
	Preview(path string, c *media.Candidate) (string, error)
	Health() service.HealthReport
	Config() *config.Config
}

// Reloader builds a new backend after the configuration file changed.
type Reloader func(cfg *config.Config) (Backend, error)

// Server implements the API
type Server struct {
	mu      sync.RWMutex
	backend Backend

	configPath string
	reload     Reloader
	origins    []string
	logger     *logging.Logger
}

type Option func(*Server)

// WithConfigEditing enables PUT /config. Updates are written to path and
// the backend is swapped for the one reload returns.
func WithConfigEditing(path string, reload Reloader) Option {
	return func(s *Server) {
		s.configPath = path
		s.reload = reload
	}
}

func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

func WithLogger(l *logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server
func NewServer(backend Backend, opts ...Option) *Server {
	s := &Server{
		backend: backend,
		origins: []string{"*"},
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) current() Backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend
}

// swap installs b and closes the backend it replaces.
func (s *Server) swap(b Backend) {
	s.mu.Lock()
	old := s.backend
	s.backend = b
	s.mu.Unlock()

	if err := closeBackend(old); err != nil {
		s.logger.Warn("api", "Failed to close previous backend", logging.F("error", err))
	}
}

// Close releases the current backend.
func (s *Server) Close() error {
	return closeBackend(s.current())
}

func closeBackend(b Backend) error {
	if c, ok := b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Handler returns the HTTP handler with CORS and the API routes mounted at
// /api/v1.
func (s *Server) Handler() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Mount("/api/v1", s.apiRouter())
	return r
}

func (s *Server) apiRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Get("/health", s.handleHealth)
	r.Get("/config", s.handleGetConfig)
	r.Put("/config", s.handleSetConfig)
	r.Post("/config", s.handleSetConfig)
	r.Post("/scan", s.handleScan)
	r.Post("/execute", s.handleExecute)
	r.Post("/undo", s.handleUndo)
	r.Get("/history", s.handleHistory)
	r.Get("/search", s.handleSearch)
	r.Post("/preview", s.handlePreview)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// requestLogger logs one line per request through the component logger.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("api", "Request",
			logging.F("method", r.Method),
			logging.F("path", r.URL.Path),
			logging.F("status", ww.Status()),
			logging.F("bytes", ww.BytesWritten()),
			logging.F("duration", time.Since(start).Round(time.Millisecond)),
			logging.F("request_id", middleware.GetReqID(r.Context())))
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api", "Listening", logging.F("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("api", "Shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
