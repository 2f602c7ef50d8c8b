// Package server wires the devnote HTTP service together.
//
// This is the composition root: New turns a config.Config into
//
//	sqlite.DB → NotebookService (+ cloudsync.Syncer) → TransferService
//	         → handlers → chi router
//
// and Start runs it until SIGINT/SIGTERM, then shuts down in order: stop
// accepting requests, push pending sync work, close the database.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/devnote/internal/auth"
	"github.com/sakif/devnote/internal/cloudsync"
	"github.com/sakif/devnote/internal/config"
	"github.com/sakif/devnote/internal/export"
	"github.com/sakif/devnote/internal/handler"
	"github.com/sakif/devnote/internal/middleware"
	"github.com/sakif/devnote/internal/normalize"
	"github.com/sakif/devnote/internal/notebook"
	sqliteRepo "github.com/sakif/devnote/internal/repository/sqlite"
	"github.com/sakif/devnote/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection and the syncer; both are released
// by Close, which Start calls on the way out.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	syncer *cloudsync.Syncer // nil when sync is off
	tokens *auth.TokenService

	notebooks  *service.NotebookService
	transfers  *service.TransferService
	normalizer *normalize.Normalizer
}

// New opens the database, builds the services and registers the routes.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	if err := s.wire(); err != nil {
		db.Close()
		return nil, err
	}
	s.setupRoutes()
	return s, nil
}

// wire builds everything between the database and the handlers.
func (s *Server) wire() error {
	cfg := s.config

	policy, err := notebook.ParseOrphanPolicy(cfg.Notebook.OrphanPolicy)
	if err != nil {
		return fmt.Errorf("notebook config: %w", err)
	}
	opts := notebook.DefaultOptions()
	opts.OrphanPolicy = policy
	opts.UncategorizedName = cfg.Notebook.UncategorizedName

	var svcOpts []service.Option
	if cfg.Sync.Enabled {
		// Loading AWS config can hit the credential chain; bound it.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := cloudsync.NewS3Store(ctx, cloudsync.S3Config{
			Endpoint:        cfg.Sync.Endpoint,
			Region:          cfg.Sync.Region,
			Bucket:          cfg.Sync.Bucket,
			Prefix:          cfg.Sync.Prefix,
			AccessKeyID:     cfg.Sync.AccessKeyID,
			SecretAccessKey: cfg.Sync.SecretAccessKey,
		})
		if err != nil {
			return fmt.Errorf("creating sync store: %w", err)
		}
		s.syncer = cloudsync.NewSyncer(store, cfg.Sync.Debounce, s.logger)
		svcOpts = append(svcOpts, service.WithSyncer(s.syncer))
	}

	if cfg.Auth.JWTSecret != "" {
		s.tokens, err = auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		if err != nil {
			return err
		}
	}

	s.normalizer, err = normalize.New(normalize.Config{
		InlineCodeMaxLength: cfg.Notebook.InlineCodeMax,
		TableClass:          cfg.Notebook.TableClass,
	}, s.logger)
	if err != nil {
		return err
	}

	exportOpts := export.DefaultOptions()
	exportOpts.UncategorizedName = cfg.Notebook.UncategorizedName

	s.notebooks = service.NewNotebookService(s.db, opts, s.logger, svcOpts...)
	s.transfers = service.NewTransferService(s.notebooks, s.normalizer, export.New(exportOpts), s.logger)
	return nil
}

// setupRoutes configures middleware and routes.
//
// ROUTES:
// GET    /healthz                 → liveness probe
// POST   /api/normalize           → clipboard → Markdown (no owner needed)
// GET    /api/notes               → list notes (?q=&category=&tag=)
// POST   /api/notes               → create note
// GET    /api/notes/{id}          → get note
// PUT    /api/notes/{id}          → update note
// DELETE /api/notes/{id}          → delete note
// GET    /api/categories          → list categories
// POST   /api/categories          → create category
// GET    /api/categories/tree     → category forest with counts
// PUT    /api/categories/{id}     → rename and/or move
// DELETE /api/categories/{id}     → delete category
// GET    /api/tags                → distinct tags
// GET    /api/view-mode           → list display mode
// PUT    /api/view-mode           → set list display mode
// POST   /api/import              → multipart file → note
// GET    /api/export              → HTML download
// POST   /api/sync/push           → push to the cloud now
// POST   /api/sync/pull           → replace local data with the cloud copy
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID, so the logger can print it
// 2. RealIP
// 3. Logger
// 4. Recoverer, inside the logger so a panic is logged as a 500
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	notes := handler.NewNoteHandler(s.notebooks, s.logger)
	categories := handler.NewCategoryHandler(s.notebooks, s.logger)
	views := handler.NewViewHandler(s.notebooks, s.logger)
	norm := handler.NewNormalizeHandler(s.normalizer, s.logger)
	transfers := handler.NewTransferHandler(s.transfers, s.config.Server.MaxUploadMB<<20, s.logger)
	syncs := handler.NewSyncHandler(s.notebooks, s.logger)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/normalize", norm.HandleNormalize)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireOwner(s.tokens, s.config.Auth.DefaultOwner))

			r.Route("/notes", func(r chi.Router) {
				r.Get("/", notes.HandleList)
				r.Post("/", notes.HandleCreate)
				r.Get("/{id}", notes.HandleGet)
				r.Put("/{id}", notes.HandleUpdate)
				r.Delete("/{id}", notes.HandleDelete)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", categories.HandleList)
				r.Post("/", categories.HandleCreate)
				r.Get("/tree", categories.HandleTree)
				r.Put("/{id}", categories.HandleUpdate)
				r.Delete("/{id}", categories.HandleDelete)
			})

			r.Get("/tags", views.HandleTags)
			r.Get("/view-mode", views.HandleGetViewMode)
			r.Put("/view-mode", views.HandleSetViewMode)

			r.Post("/import", transfers.HandleImport)
			r.Get("/export", transfers.HandleExport)

			r.Post("/sync/push", syncs.HandlePush)
			r.Post("/sync/pull", syncs.HandlePull)
		})
	})
}

// Handler returns the root handler; tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close pushes pending sync work and closes the database.
func (s *Server) Close(ctx context.Context) error {
	if s.syncer != nil {
		s.syncer.Flush(ctx)
	}
	return s.db.Close()
}

// Start runs the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (Server.ShutdownTimeout)
// 3. Push debounced sync work that has not fired yet
// 4. Close the database (flushes WAL, releases file lock)
func (s *Server) Start() error {
	sc := s.config.Server
	srv := &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.router,
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
		IdleTimeout:  sc.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", sc.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", sc.Port)),
			slog.String("database", s.config.Database.Path),
			slog.Bool("auth", s.tokens != nil),
			slog.Bool("sync", s.syncer != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		ctx, cancel := context.WithTimeout(context.Background(), sc.ShutdownTimeout)
		defer cancel()
		closeErr := s.Close(ctx)
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return closeErr

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), sc.ShutdownTimeout)
		defer cancel()

		shutdownErr := srv.Shutdown(ctx)
		if err := s.Close(ctx); err != nil {
			s.logger.Error("closing resources", slog.String("error", err.Error()))
		}
		if shutdownErr != nil {
			return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
