// Package server provides the web interface and JSON API for controlnotes.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/controlnotes/internal/config"
	"github.com/thebtf/controlnotes/internal/server/sse"
	"github.com/thebtf/controlnotes/internal/workflow"
	"github.com/thebtf/controlnotes/pkg/models"
)

const (
	shutdownTimeout = 10 * time.Second
	pingTimeout     = 2 * time.Second
)

// Catalog is the part of the control catalog the server needs.
type Catalog interface {
	ListControlIDs() []string
	Len() int
	Loaded() bool
	Reload(ctx context.Context) bool
}

// Lookup runs a control lookup.
type Lookup interface {
	Run(ctx context.Context, in workflow.Input) (*models.LookupResult, error)
}

// Asker answers free-form questions.
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// History reads past lookups.
type History interface {
	Recent(ctx context.Context, limit int) ([]*models.HistoryEntry, error)
	FindByControl(ctx context.Context, control string) ([]*models.HistoryEntry, error)
}

// Database reports on the history database connection.
type Database interface {
	Driver() string
	Ping(ctx context.Context) error
}

// Deps are the collaborators of a Service. Database is optional.
type Deps struct {
	Catalog  Catalog
	Lookup   Lookup
	Asker    Asker
	History  History
	Database Database
}

// Service is the HTTP front end.
type Service struct {
	version   string
	config    *config.Config
	catalog   Catalog
	lookup    Lookup
	asker     Asker
	history   History
	database  Database
	events    *sse.Broadcaster
	router    chi.Router
	startTime time.Time
	ready     atomic.Bool
}

// NewService creates a Service and registers its routes.
func NewService(version string, cfg *config.Config, deps Deps) *Service {
	s := &Service{
		version:   version,
		config:    cfg,
		catalog:   deps.Catalog,
		lookup:    deps.Lookup,
		asker:     deps.Asker,
		history:   deps.History,
		database:  deps.Database,
		events:    sse.NewBroadcaster(),
		router:    chi.NewRouter(),
		startTime: time.Now(),
	}
	s.setupRoutes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Service) Handler() http.Handler {
	return s.router
}

// ReloadCatalog re-reads the control catalog and notifies event subscribers.
func (s *Service) ReloadCatalog(ctx context.Context) bool {
	loaded := s.catalog.Reload(ctx)
	s.events.Publish(sse.EventCatalogReload, map[string]any{
		"loaded":   loaded,
		"controls": s.catalog.Len(),
	})
	return loaded
}

// publishLookup announces a completed lookup to event subscribers.
func (s *Service) publishLookup(result *models.LookupResult) {
	s.events.Publish(sse.EventLookup, map[string]any{
		"request_id": result.RequestID,
		"control":    result.Control,
		"persisted":  result.Persisted,
	})
}

// Run serves HTTP on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (s *Service) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.ready.Store(true)
	log.Info().Str("addr", s.config.ListenAddr).Str("version", s.version).Msg("HTTP server listening")

	select {
	case err := <-errCh:
		s.ready.Store(false)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.ready.Store(false)
	log.Info().Msg("Shutting down HTTP server")
	s.events.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
