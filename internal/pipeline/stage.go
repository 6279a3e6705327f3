package pipeline

import (
	"context"

	"studyloader/internal/blob"
	"studyloader/internal/discovery"
	"studyloader/internal/genes"
	"studyloader/pkg/domain"
)

// StageInput is everything a stage may read. Stages write only through Store
// and their returned StageResult.
type StageInput struct {
	RunID   string
	Study   domain.Study
	Record  discovery.Record
	Staging blob.Store
	Store   domain.Store
	Genes   *genes.Resolver
	Logger  Logger
}

// Stage imports one datatype. Record level problems are counted in the
// result; a returned error is fatal for the run and stops remaining stages.
type Stage interface {
	Datatype() string
	Run(ctx context.Context, in StageInput) (StageResult, error)
}

// StageFunc adapts a function to Stage.
type StageFunc struct {
	Name string
	Fn   func(ctx context.Context, in StageInput) (StageResult, error)
}

// Datatype implements Stage.
func (s StageFunc) Datatype() string { return s.Name }

// Run implements Stage.
func (s StageFunc) Run(ctx context.Context, in StageInput) (StageResult, error) {
	return s.Fn(ctx, in)
}
