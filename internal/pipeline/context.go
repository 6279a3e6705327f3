package pipeline

import (
	"sort"

	"studyloader/internal/discovery"
	"studyloader/pkg/domain"
)

// Status is the terminal status of a job's stage sequence.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Outcome is what Finalize did with the study.
type Outcome string

const (
	// OutcomeAborted means the run stopped before the study was created.
	OutcomeAborted    Outcome = "aborted"
	OutcomeCommitted  Outcome = "committed"
	OutcomeRolledBack Outcome = "rolled_back"
)

// StageResult is the output one stage reports for its datatype.
type StageResult struct {
	Datatype string
	// Imported counts the records that reached persistence. Zero triggers rollback.
	Imported int
	Skipped  int
	// SkipReasons breaks Skipped down by named reason.
	SkipReasons map[string]int
	// Buckets carries datatype specific tallies, such as mutation filter decisions.
	Buckets   map[string]int
	ProfileID int64

	caseList []int64
	seen     map[int64]struct{}
}

// NewStageResult returns an empty result for datatype.
func NewStageResult(datatype string) StageResult {
	return StageResult{Datatype: datatype, SkipReasons: map[string]int{}, Buckets: map[string]int{}}
}

// Skip counts one skipped record under reason.
func (r *StageResult) Skip(reason string) {
	if r.SkipReasons == nil {
		r.SkipReasons = map[string]int{}
	}
	r.Skipped++
	r.SkipReasons[reason]++
}

// AddCase records a sample in the datatype's case list. Repeats keep their
// first position.
func (r *StageResult) AddCase(sampleID int64) {
	if r.seen == nil {
		r.seen = map[int64]struct{}{}
	}
	if _, ok := r.seen[sampleID]; ok {
		return
	}
	r.seen[sampleID] = struct{}{}
	r.caseList = append(r.caseList, sampleID)
}

// CaseList returns the sample ids in first-seen order.
func (r StageResult) CaseList() []int64 {
	return append([]int64(nil), r.caseList...)
}

// SkipArgs flattens SkipReasons into sorted key/value pairs for a log line.
func (r StageResult) SkipArgs() []any {
	reasons := make([]string, 0, len(r.SkipReasons))
	for k := range r.SkipReasons {
		reasons = append(reasons, k)
	}
	sort.Strings(reasons)
	args := make([]any, 0, 2*len(reasons))
	for _, k := range reasons {
		args = append(args, "skip_"+k, r.SkipReasons[k])
	}
	return args
}

// RunContext is the typed state shared across one import run. Stage outputs
// are written once per datatype by the job and read by Finalize.
type RunContext struct {
	RunID         string
	StagingPrefix string
	Meta          discovery.StudyMeta
	Study         domain.Study
	// Datatypes holds the discovery records in catalog order.
	Datatypes []discovery.Record
	Status    Status
	Outcome   Outcome

	results  map[string]StageResult
	order    []string
	rollback bool
	reasons  []string
}

func newRunContext(runID, staging string) *RunContext {
	return &RunContext{
		RunID:         runID,
		StagingPrefix: staging,
		Status:        StatusRunning,
		results:       map[string]StageResult{},
	}
}

// MarkRollback requests whole-study rollback. The flag never resets.
func (rc *RunContext) MarkRollback(reason string) {
	rc.rollback = true
	rc.reasons = append(rc.reasons, reason)
}

// RollbackRequested reports whether any stage asked for rollback.
func (rc *RunContext) RollbackRequested() bool { return rc.rollback }

// RollbackReasons lists why rollback was requested, in order.
func (rc *RunContext) RollbackReasons() []string { return append([]string(nil), rc.reasons...) }

// Result returns the stage output recorded for datatype.
func (rc *RunContext) Result(datatype string) (StageResult, bool) {
	r, ok := rc.results[datatype]
	return r, ok
}

// Results returns stage outputs in the order stages ran.
func (rc *RunContext) Results() []StageResult {
	out := make([]StageResult, 0, len(rc.order))
	for _, name := range rc.order {
		out = append(out, rc.results[name])
	}
	return out
}

func (rc *RunContext) setResult(r StageResult) {
	if _, exists := rc.results[r.Datatype]; !exists {
		rc.order = append(rc.order, r.Datatype)
	}
	rc.results[r.Datatype] = r
}
