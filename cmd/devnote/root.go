package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/devnote/internal/config"
	"github.com/sakif/devnote/internal/export"
	"github.com/sakif/devnote/internal/normalize"
	"github.com/sakif/devnote/internal/notebook"
	sqliteRepo "github.com/sakif/devnote/internal/repository/sqlite"
	"github.com/sakif/devnote/internal/service"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	config string // YAML file; defaults to $DEVNOTE_CONFIG
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:          "devnote",
		Short:        "DevNote tooling",
		Long:         `Convert pasted rich text to Markdown, audit brace balance and manage the notebook database.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&flags.config, "config", "c", os.Getenv("DEVNOTE_CONFIG"),
		"configuration file (default $DEVNOTE_CONFIG)")

	root.AddCommand(
		newNormalizeCmd(flags),
		newBracesCmd(),
		newTokenCmd(flags),
		newExportCmd(flags),
		newImportCmd(flags),
		newOwnersCmd(flags),
	)
	return root
}

func (f *globalFlags) load() (*config.Config, error) {
	return config.Load(f.config)
}

// newLogger writes to stderr so command output on stdout stays clean.
func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

func newNormalizer(cfg *config.Config, logger *slog.Logger) (*normalize.Normalizer, error) {
	return normalize.New(normalize.Config{
		InlineCodeMaxLength: cfg.Notebook.InlineCodeMax,
		TableClass:          cfg.Notebook.TableClass,
	}, logger)
}

// workspace is the notebook stack opened against the configured database.
// Cloud sync stays off: a CLI run ends before a debounced push would fire.
type workspace struct {
	db        *sqliteRepo.DB
	notebooks *service.NotebookService
	transfers *service.TransferService
}

func openWorkspace(cfg *config.Config, logger *slog.Logger) (*workspace, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	policy, err := notebook.ParseOrphanPolicy(cfg.Notebook.OrphanPolicy)
	if err != nil {
		db.Close()
		return nil, err
	}
	opts := notebook.DefaultOptions()
	opts.OrphanPolicy = policy
	opts.UncategorizedName = cfg.Notebook.UncategorizedName

	normalizer, err := newNormalizer(cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	exportOpts := export.DefaultOptions()
	exportOpts.UncategorizedName = cfg.Notebook.UncategorizedName

	notebooks := service.NewNotebookService(db, opts, logger)
	return &workspace{
		db:        db,
		notebooks: notebooks,
		transfers: service.NewTransferService(notebooks, normalizer, export.New(exportOpts), logger),
	}, nil
}

func (w *workspace) Close() error {
	return w.db.Close()
}
