package main

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"studyloader/internal/blob"
	"studyloader/internal/pipeline"
	"studyloader/internal/stages"
)

// errRolledBack makes the process exit non-zero when a run did not commit.
var errRolledBack = errors.New("import rolled back")

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <staging-dir>",
		Short: "Import the study in a staging directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImport(cmd.Context(), args[0])
		},
	}
}

func (a *app) runImport(ctx context.Context, dir string) (err error) {
	staging, err := pipeline.OpenStaging(ctx, a.stagingConfig(dir))
	if err != nil {
		return err
	}
	store, closeStore, err := a.openStore(ctx)
	defer func() { err = errors.Join(err, closeStore()) }()
	if err != nil {
		return err
	}
	resolver, err := a.loadResolver(ctx, store)
	if err != nil {
		return err
	}
	metrics, err := pipeline.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		return err
	}

	job := pipeline.NewJob(staging, dir, store, resolver,
		stages.Default(a.cfg.Import.PromoterWhitelist),
		pipeline.WithLogger(a.logger),
		pipeline.WithMetrics(metrics),
	)
	rc, runErr := job.Run(ctx)
	if file := a.cfg.Metrics.TextFile; file != "" {
		if err := metrics.WriteTextfile(file); err != nil {
			a.logger.Warn("metrics textfile not written", "file", file, "error", err)
		}
	}
	a.printSummary(rc)
	if runErr != nil {
		return runErr
	}
	if rc.Outcome != pipeline.OutcomeCommitted {
		return fmt.Errorf("%w: %s", errRolledBack, strings.Join(rc.RollbackReasons(), "; "))
	}
	return nil
}

// stagingConfig points the staging backend at dir: the root directory for
// the fs driver, a key prefix below the configured one for s3.
func (a *app) stagingConfig(dir string) blob.Config {
	cfg := a.cfg.Staging
	if cfg.Driver == blob.DriverS3 {
		cfg.S3.Prefix = path.Join(cfg.S3.Prefix, dir)
		return cfg
	}
	cfg.Root = dir
	return cfg
}

func (a *app) printSummary(rc *pipeline.RunContext) {
	fmt.Fprintf(a.stdout, "run %s: %s (%s)\n", rc.RunID, rc.Outcome, rc.Status)
	if rc.Study.StableID != "" {
		fmt.Fprintf(a.stdout, "study %s\n", rc.Study.StableID)
	}
	for _, r := range rc.Results() {
		fmt.Fprintf(a.stdout, "  %-16s imported=%d skipped=%d\n", r.Datatype, r.Imported, r.Skipped)
	}
}
