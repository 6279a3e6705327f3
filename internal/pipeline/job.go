// Package pipeline runs the per-datatype import stages of one study over a
// typed run context and decides between commit and whole-study rollback.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"studyloader/internal/blob"
	"studyloader/internal/discovery"
	"studyloader/internal/genes"
	"studyloader/pkg/domain"
)

var (
	// ErrStudyMetaMissing aborts a run whose staging directory has no study meta file.
	ErrStudyMetaMissing = errors.New("study meta file missing")
	// ErrStagingDirMissing reports a staging location that does not exist.
	ErrStagingDirMissing = errors.New("staging directory missing")
)

// Option configures a Job.
type Option func(*Job)

// WithLogger sets the job logger. Nil keeps the no-op logger.
func WithLogger(l Logger) Option {
	return func(j *Job) {
		if l != nil {
			j.logger = l
		}
	}
}

// WithClock overrides the time source used for stage durations.
func WithClock(now func() time.Time) Option {
	return func(j *Job) {
		if now != nil {
			j.now = now
		}
	}
}

// WithMetrics records stage and run outcomes.
func WithMetrics(m *Metrics) Option {
	return func(j *Job) { j.metrics = m }
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(j *Job) {
		if id != "" {
			j.runID = id
		}
	}
}

// Job imports one staging directory.
type Job struct {
	staging     blob.Store
	stagingName string
	store       domain.Store
	genes       *genes.Resolver
	stages      map[string]Stage
	logger      Logger
	now         func() time.Time
	metrics     *Metrics
	runID       string
}

// NewJob wires a job. Stages are matched to discovered datatypes by name;
// stagingName only labels the run in logs.
func NewJob(staging blob.Store, stagingName string, store domain.Store, resolver *genes.Resolver, stages []Stage, opts ...Option) *Job {
	j := &Job{
		staging:     staging,
		stagingName: stagingName,
		store:       store,
		genes:       resolver,
		stages:      make(map[string]Stage, len(stages)),
		logger:      noopLogger{},
		now:         time.Now,
		runID:       uuid.NewString(),
	}
	for _, s := range stages {
		j.stages[s.Datatype()] = s
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run executes Init, DiscoverStudy, every ready stage and Finalize. The
// returned context is never nil. An error is returned when the run aborted
// before creating the study, when a stage failed fatally, or when Finalize
// could not complete; a zero-yield rollback alone is reported through
// RunContext.Outcome.
func (j *Job) Run(ctx context.Context) (*RunContext, error) {
	rc := newRunContext(j.runID, j.stagingName)
	log := &runLogger{base: j.logger, runID: rc.RunID}
	log.Info("import started", "staging", j.stagingName)

	if err := j.discoverStudy(ctx, rc, log); err != nil {
		rc.Status = StatusFailed
		rc.Outcome = OutcomeAborted
		j.metrics.ObserveRun(rc.Outcome)
		log.Error("import aborted", "error", err)
		return rc, err
	}

	stageErr := j.runStages(ctx, rc, log)
	if stageErr == nil {
		rc.Status = StatusCompleted
	}
	if err := j.finalize(ctx, rc, log); err != nil {
		return rc, errors.Join(stageErr, err)
	}
	return rc, stageErr
}

func (j *Job) discoverStudy(ctx context.Context, rc *RunContext, log Logger) error {
	meta, err := discovery.LoadStudyMeta(ctx, j.staging)
	if errors.Is(err, discovery.ErrMissingMetaFile) {
		return fmt.Errorf("%w: %v", ErrStudyMetaMissing, err)
	}
	if err != nil {
		return err
	}
	rc.Meta = meta
	records, err := discovery.Discover(ctx, j.staging, meta.Identifier)
	if err != nil {
		return fmt.Errorf("discover datatypes: %w", err)
	}
	rc.Datatypes = records

	existing, found, err := j.store.GetStudy(ctx, meta.Identifier)
	if err != nil {
		return fmt.Errorf("lookup study: %w", err)
	}
	if found {
		log.Warn("study already exists, replacing it", "study", meta.Identifier, "study_key", existing.ID)
		if err := j.store.DeleteStudy(ctx, existing.ID); err != nil {
			return fmt.Errorf("delete existing study: %w", err)
		}
	}
	study, err := j.store.AddStudy(ctx, domain.Study{
		StableID:          meta.Identifier,
		Name:              meta.Name,
		Description:       meta.Description,
		CancerTypeID:      meta.CancerType,
		ShortName:         meta.ShortName,
		PMID:              meta.PMID,
		Citation:          meta.Citation,
		Groups:            meta.Groups,
		ReferenceGenomeID: meta.ReferenceGenome,
	})
	if err != nil {
		return fmt.Errorf("add study: %w", err)
	}
	rc.Study = study
	log.Info("study created", "study", study.StableID, "study_key", study.ID)
	return nil
}

func (j *Job) runStages(ctx context.Context, rc *RunContext, log *runLogger) error {
	for _, rec := range rc.Datatypes {
		name := rec.Datatype.Name
		if !rec.Ready {
			log.Info("datatype skipped", "datatype", name, "reason", rec.Skip)
			continue
		}
		stage, ok := j.stages[name]
		if !ok {
			log.Warn("no stage registered for ready datatype", "datatype", name)
			continue
		}
		if err := ctx.Err(); err != nil {
			rc.Status = StatusFailed
			rc.MarkRollback("run cancelled")
			return err
		}
		started := j.now()
		result, err := stage.Run(ctx, StageInput{
			RunID:   rc.RunID,
			Study:   rc.Study,
			Record:  rec,
			Staging: j.staging,
			Store:   j.store,
			Genes:   j.genes,
			Logger:  log.with("datatype", name),
		})
		j.metrics.ObserveStage(name, result, j.now().Sub(started))
		if err != nil {
			rc.Status = StatusFailed
			rc.MarkRollback(fmt.Sprintf("%s stage failed: %v", name, err))
			log.Error("stage failed, stopping import", "datatype", name, "error", err)
			return fmt.Errorf("%s stage: %w", name, err)
		}
		result.Datatype = name
		j.afterStage(rc, result, log)
	}
	return nil
}

// afterStage applies the zero-yield rule and merges the stage output.
func (j *Job) afterStage(rc *RunContext, result StageResult, log Logger) {
	args := append([]any{"datatype", result.Datatype, "imported", result.Imported, "skipped", result.Skipped}, result.SkipArgs()...)
	if result.Imported == 0 {
		rc.MarkRollback(fmt.Sprintf("%s imported zero records", result.Datatype))
		log.Error("no records imported, study will be rolled back", args...)
		return
	}
	rc.setResult(result)
	log.Info("stage completed", args...)
}

func (j *Job) finalize(ctx context.Context, rc *RunContext, log Logger) error {
	if rc.RollbackRequested() || rc.Status != StatusCompleted {
		return j.rollback(ctx, rc, log)
	}
	if err := j.writeCaseLists(ctx, rc); err != nil {
		rc.Status = StatusFailed
		rc.MarkRollback(fmt.Sprintf("case lists: %v", err))
		log.Error("writing case lists failed", "error", err)
		return errors.Join(err, j.rollback(ctx, rc, log))
	}
	if err := flush(ctx, j.store); err != nil {
		return fmt.Errorf("flush store: %w", err)
	}
	rc.Outcome = OutcomeCommitted
	j.metrics.ObserveRun(rc.Outcome)
	log.Info("import committed", "study", rc.Study.StableID, "datatypes", len(rc.order))
	return nil
}

func (j *Job) rollback(ctx context.Context, rc *RunContext, log Logger) error {
	rc.Outcome = OutcomeRolledBack
	j.metrics.ObserveRun(rc.Outcome)
	log.Error("rolling back study", "study", rc.Study.StableID, "reasons", rc.RollbackReasons())
	// A cancelled run still has to remove what it wrote.
	ctx = context.WithoutCancel(ctx)
	if err := j.store.DeleteStudy(ctx, rc.Study.ID); err != nil {
		return fmt.Errorf("rollback study %s: %w", rc.Study.StableID, err)
	}
	if err := flush(ctx, j.store); err != nil {
		return fmt.Errorf("flush store: %w", err)
	}
	return nil
}

// writeCaseLists stores one list per datatype that defines a suffix and
// collected samples, plus the union of all samples under the _all suffix.
func (j *Job) writeCaseLists(ctx context.Context, rc *RunContext) error {
	studyID := rc.Study.StableID
	var all StageResult
	for _, result := range rc.Results() {
		ids := result.CaseList()
		for _, id := range ids {
			all.AddCase(id)
		}
		dt, ok := discovery.Lookup(result.Datatype)
		if !ok || dt.CaseListSuffix == "" || len(ids) == 0 {
			continue
		}
		if _, err := j.store.AddCaseList(ctx, domain.CaseList{
			StableID:    dt.CaseListID(studyID),
			StudyID:     rc.Study.ID,
			Category:    "all_cases_with_" + categoryFor(dt.Name) + "_data",
			Name:        dt.CaseListName,
			Description: fmt.Sprintf("%s (%d samples)", dt.CaseListName, len(ids)),
			SampleIDs:   ids,
		}); err != nil {
			return err
		}
	}
	ids := all.CaseList()
	if len(ids) == 0 {
		return nil
	}
	_, err := j.store.AddCaseList(ctx, domain.CaseList{
		StableID:    studyID + discovery.AllCasesSuffix,
		StudyID:     rc.Study.ID,
		Category:    "all_cases_in_study",
		Name:        "All Tumors",
		Description: fmt.Sprintf("All tumor samples (%d samples)", len(ids)),
		SampleIDs:   ids,
	})
	return err
}

func categoryFor(datatype string) string {
	switch datatype {
	case discovery.Mutation:
		return "mutation"
	case discovery.CNA:
		return "cna"
	case discovery.MRNAExpression:
		return "mrna"
	case discovery.Methylation:
		return "methylation"
	case discovery.RPPA:
		return "rppa"
	default:
		return datatype
	}
}

func flush(ctx context.Context, store domain.Store) error {
	if f, ok := store.(domain.Flusher); ok {
		return f.Flush(ctx)
	}
	return nil
}

// DeleteStudy removes a study by stable id with a single cascading call.
func DeleteStudy(ctx context.Context, store domain.Store, stableID string) error {
	study, found, err := store.GetStudy(ctx, stableID)
	if err != nil {
		return fmt.Errorf("lookup study: %w", err)
	}
	if !found {
		return domain.ErrNotFound{Entity: domain.EntityStudy, ID: stableID}
	}
	if err := store.DeleteStudy(ctx, study.ID); err != nil {
		return err
	}
	return flush(ctx, store)
}

// OpenStaging opens the staging store, reporting a missing directory as
// ErrStagingDirMissing before any stage runs.
func OpenStaging(ctx context.Context, cfg blob.Config) (blob.Store, error) {
	store, err := blob.Open(ctx, cfg)
	if errors.Is(err, blob.ErrRootMissing) {
		return nil, fmt.Errorf("%w: %s", ErrStagingDirMissing, cfg.Root)
	}
	return store, err
}

// runLogger attaches the run id, and optionally more fields, to every line.
type runLogger struct {
	base  Logger
	runID string
	extra []any
}

func (l *runLogger) with(args ...any) Logger {
	return &runLogger{base: l.base, runID: l.runID, extra: append(append([]any(nil), l.extra...), args...)}
}

func (l *runLogger) args(args []any) []any {
	out := make([]any, 0, 2+len(l.extra)+len(args))
	out = append(out, "run_id", l.runID)
	out = append(out, l.extra...)
	return append(out, args...)
}

func (l *runLogger) Debug(msg string, args ...any) { l.base.Debug(msg, l.args(args)...) }
func (l *runLogger) Info(msg string, args ...any)  { l.base.Info(msg, l.args(args)...) }
func (l *runLogger) Warn(msg string, args ...any)  { l.base.Warn(msg, l.args(args)...) }
func (l *runLogger) Error(msg string, args ...any) { l.base.Error(msg, l.args(args)...) }
