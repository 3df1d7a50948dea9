package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/RyanBlaney/genre-mood-classifier/configs"
	"github.com/RyanBlaney/genre-mood-classifier/internal/mood"
	"github.com/RyanBlaney/genre-mood-classifier/internal/prediction"
	"github.com/RyanBlaney/genre-mood-classifier/internal/telemetry"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/logging"
)

// shutdownTimeout bounds how long in-flight requests may finish on shutdown
const shutdownTimeout = 10 * time.Second

// Classifier is the prediction surface the API exposes
type Classifier interface {
	ClassifyBytes(ctx context.Context, name string, data []byte) (*prediction.Result, error)
	Moods() mood.Table
	Classes() []string
}

// Server is the HTTP API in front of a loaded classifier
type Server struct {
	config     configs.ServerConfig
	router     chi.Router
	server     *http.Server
	classifier Classifier
	metrics    *telemetry.Client
	logger     logging.Logger
}

// NewServer creates a server for classifier
func NewServer(cfg configs.ServerConfig, classifier Classifier, metrics *telemetry.Client) *Server {
	if metrics == nil {
		metrics = telemetry.NewNop()
	}

	s := &Server{
		config:     cfg,
		router:     chi.NewRouter(),
		classifier: classifier,
		metrics:    metrics,
		logger: logging.WithFields(logging.Fields{
			"component": "http_server",
		}),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(requestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.New(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Filename", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	}).Handler)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/predict", s.handlePredict)
		r.Get("/moods", s.handleMoods)
		r.Get("/genres", s.handleGenres)
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	logger := s.logger.WithFields(logging.Fields{
		"function": "Run",
		"address":  s.config.Address,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("HTTP server stopped")
	return nil
}
