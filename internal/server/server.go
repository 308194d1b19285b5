// Package server is the HTTP boundary: it routes OData and browse requests
// to the backend and maps errors to status codes.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/odatasql/internal/logger"
	"github.com/koustreak/odatasql/internal/odata"
	"github.com/koustreak/odatasql/internal/schema"
)

// Backend produces the documents served by the routes.
type Backend interface {
	ServiceDocument(ctx context.Context, c odata.Context) ([]byte, error)
	Metadata(ctx context.Context, c odata.Context) ([]byte, error)
	EntityCollection(ctx context.Context, c odata.Context) ([]byte, error)
	Databases(ctx context.Context) ([]string, error)
	Objects(ctx context.Context, dbName string) ([]schema.DatabaseObject, error)
	Ping(ctx context.Context) error
}

var _ Backend = (*odata.Service)(nil)

// Config holds listener settings.
type Config struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultConfig returns the listener defaults. Entity collections are not
// paged, so the write timeout is generous.
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":5000",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    5 * time.Minute,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server serves the OData routes.
type Server struct {
	cfg     *Config
	backend Backend
	log     *logger.Logger
	router  chi.Router
}

// New builds the router. A nil logger discards output.
func New(cfg *Config, backend Backend, log *logger.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{cfg: cfg, backend: backend, log: log}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logger.Middleware(s.log))

	r.Get("/healthz", s.handleHealth)

	r.Route("/odata/v4/{database}", func(r chi.Router) {
		r.Get("/", s.handleServiceDocument)
		r.Get("/$metadata", s.handleMetadata)
		r.Get("/{object}", s.handleEntityCollection)
	})

	r.Route("/api/databases", func(r chi.Router) {
		r.Get("/", s.handleDatabases)
		r.Get("/{database}/objects", s.handleObjects)
	})

	return r
}

// Run listens on cfg.Addr until ctx is cancelled, then drains in-flight
// requests for at most ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.With().Str("addr", s.cfg.Addr).Logger().Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("server stopped")
	return <-errCh
}
