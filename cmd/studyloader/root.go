package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"studyloader/internal/config"
	"studyloader/internal/genes"
	"studyloader/internal/persistence"
	"studyloader/pkg/domain"
)

// app carries state shared by every subcommand once the root has loaded
// the configuration.
type app struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
	stdout     io.Writer
	stderr     io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "studyloader",
		Short:         "Import cancer genomics studies from staging directories",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = newLogger(a.stderr, cfg.Log)
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML configuration file")
	root.AddCommand(newImportCmd(a), newDeleteCmd(a), newImportGenesCmd(a))
	return root
}

func newLogger(w io.Writer, cfg config.Log) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openStore opens the configured backend. The close function is never nil.
func (a *app) openStore(ctx context.Context) (domain.Store, func() error, error) {
	store, closeFn, err := persistence.Open(ctx, a.cfg.Storage)
	if err != nil {
		return nil, closeFn, fmt.Errorf("open %s store: %w", a.cfg.Storage.Driver, err)
	}
	return store, closeFn, nil
}

// loadResolver builds the gene resolver, seeding an empty catalog from the
// configured gene file first.
func (a *app) loadResolver(ctx context.Context, store domain.Store) (*genes.Resolver, error) {
	known, err := store.ListGenes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list genes: %w", err)
	}
	if len(known) == 0 && a.cfg.Import.GeneFile != "" {
		n, err := importGeneFile(ctx, store, a.cfg.Import.GeneFile)
		if err != nil {
			return nil, err
		}
		a.logger.Info("gene catalog seeded", "file", a.cfg.Import.GeneFile, "genes", n)
	} else if len(known) == 0 {
		a.logger.Warn("gene catalog is empty; gene based rows will be skipped")
	}
	return genes.LoadResolver(ctx, store)
}
