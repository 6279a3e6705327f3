package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"studyloader/internal/genes"
	"studyloader/internal/persistence"
	"studyloader/pkg/domain"
)

func newImportGenesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import-genes <file>",
		Short: "Load a tab-delimited gene catalog into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			store, closeStore, err := a.openStore(ctx)
			defer func() { err = errors.Join(err, closeStore()) }()
			if err != nil {
				return err
			}
			n, err := importGeneFile(ctx, store, args[0])
			if err != nil {
				return err
			}
			a.logger.Info("genes imported", "file", args[0], "genes", n)
			fmt.Fprintf(a.stdout, "imported %d genes\n", n)
			return nil
		},
	}
}

// importGeneFile stores every gene of the file and flushes the store.
func importGeneFile(ctx context.Context, store domain.Store, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open gene file: %w", err)
	}
	defer func() { _ = f.Close() }()
	list, err := genes.ParseGeneFile(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	for _, g := range list {
		if _, err := store.AddGene(ctx, g); err != nil {
			return 0, fmt.Errorf("add gene %d: %w", g.EntrezID, err)
		}
	}
	if err := persistence.Flush(ctx, store); err != nil {
		return 0, fmt.Errorf("flush genes: %w", err)
	}
	return len(list), nil
}
