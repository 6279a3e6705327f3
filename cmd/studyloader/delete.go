package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"studyloader/internal/pipeline"
)

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <study-id>",
		Short: "Delete a study and everything imported with it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			store, closeStore, err := a.openStore(ctx)
			defer func() { err = errors.Join(err, closeStore()) }()
			if err != nil {
				return err
			}
			if err := pipeline.DeleteStudy(ctx, store, args[0]); err != nil {
				return err
			}
			a.logger.Info("study deleted", "study", args[0])
			fmt.Fprintf(a.stdout, "deleted %s\n", args[0])
			return nil
		},
	}
}
