// Package main is the entry point for the devnote API server.
//
// The main package stays minimal:
// 1. Read configuration (YAML file named by DEVNOTE_CONFIG, then env vars)
// 2. Create the logger and make sure the data directory exists
// 3. Start the server
//
// All actual logic lives in internal/server and below.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/devnote/internal/config"
	"github.com/sakif/devnote/internal/server"
)

func main() {
	// === 1. CONFIGURATION ===
	// DEVNOTE_CONFIG is optional; without it defaults + env vars apply.
	cfg, err := config.Load(os.Getenv("DEVNOTE_CONFIG"))
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. LOGGING ===
	// Log levels (least to most severe): Debug → Info → Warn → Error.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	if cfg.File != "" {
		logger.Info("configuration loaded", slog.String("file", cfg.File))
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, every request uses the default owner",
			slog.String("owner", cfg.Auth.DefaultOwner),
		)
	}

	// === 3. DATA DIRECTORY ===
	// os.MkdirAll is `mkdir -p`; 0755 = rwx for owner, r-x for others.
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
