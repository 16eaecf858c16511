package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/artpar/berth/internal/core/admission"
	"github.com/artpar/berth/internal/core/crypto"
	"github.com/artpar/berth/internal/shell/api"
	"github.com/artpar/berth/internal/shell/api/middleware"
	"github.com/artpar/berth/internal/shell/deploy"
	"github.com/artpar/berth/internal/shell/dns"
	"github.com/artpar/berth/internal/shell/docker"
	"github.com/artpar/berth/internal/shell/store"
	"github.com/artpar/berth/internal/shell/workspace"
	"github.com/spf13/afero"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitDatabaseError   = 2
	ExitHTTPServerError = 4
)

// =============================================================================
// Server
// =============================================================================

// Server represents the Berth application server.
type Server struct {
	config     *Config
	httpServer *http.Server
	store      store.Store
	logger     *slog.Logger
}

// NewServer creates a new server with the given config.
func NewServer(cfg *Config, logger *slog.Logger) (*Server, error) {
	var storeOpts []store.Option
	if cfg.Secrets.Key != "" {
		key, err := crypto.DeriveKey(cfg.Secrets.Key)
		if err != nil {
			return nil, &ServerError{Op: "NewServer", Err: err, ExitCode: ExitConfigError}
		}
		storeOpts = append(storeOpts, store.WithSecretKey(key))
	} else {
		logger.Warn("secrets.key not set, service secrets are stored in plaintext")
	}

	s, err := store.NewSQLiteStore(cfg.Database.DSN, storeOpts...)
	if err != nil {
		return nil, &ServerError{Op: "NewServer", Err: err, ExitCode: ExitDatabaseError}
	}

	resolver := dns.NewResolver(cfg.DNS.Servers, cfg.DNS.Timeout, logger)
	controller := admission.NewController(s, resolver, cfg.Server.DevMode, logger)

	cli := docker.NewComposeCLI(docker.ExecRunner{}, cfg.Docker.CertPath, logger)
	engine := docker.NewHostEngine(cli, cfg.Docker.CertPath, logger)
	ws := workspace.New(afero.NewOsFs(), cfg.Workspace.Dir)
	executor := deploy.NewExecutor(ws, engine, logger)

	handler := api.NewHandler(api.Config{
		Store:     s,
		Admission: controller,
		Deployer:  executor,
		Auth: middleware.AuthConfig{
			Mode:         cfg.Auth.Mode,
			SharedSecret: cfg.Auth.SharedSecret,
			Logger:       logger,
		},
		Version: Version,
		Logger:  logger,
	})

	if cfg.Server.DevMode {
		logger.Warn("dev mode enabled, custom domains are admitted without DNS verification")
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		store:      s,
		logger:     logger,
	}, nil
}

// Start starts the server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server",
			"address", s.config.Server.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		return &ServerError{
			Op:       "Start",
			Err:      err,
			ExitCode: ExitHTTPServerError,
		}
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server. In-flight deployments keep running
// until the shutdown timeout expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error("database close error", "error", err)
	}

	s.logger.Info("shutdown complete")
	return nil
}

// =============================================================================
// Server Error
// =============================================================================

// ServerError represents an error during server operation.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
