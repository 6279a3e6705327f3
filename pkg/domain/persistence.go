package domain

import (
	"context"
	"fmt"
)

// Store is the persistence contract consumed by the import pipeline. Lookups
// report absence through the boolean result rather than an error.
type Store interface {
	GetStudy(ctx context.Context, stableID string) (Study, bool, error)
	GetStudyByID(ctx context.Context, id int64) (Study, bool, error)
	ListStudies(ctx context.Context) ([]Study, error)
	AddStudy(ctx context.Context, study Study) (Study, error)
	// DeleteStudy removes the study and every record scoped to it.
	DeleteStudy(ctx context.Context, id int64) error

	GetGene(ctx context.Context, entrezID int64) (Gene, bool, error)
	ListGenes(ctx context.Context) ([]Gene, error)
	// AddGene stores a gene. A zero entrez id allocates a synthetic negative id.
	AddGene(ctx context.Context, gene Gene) (Gene, error)

	GetClinicalAttribute(ctx context.Context, studyID int64, attrID string) (ClinicalAttribute, bool, error)
	AddClinicalAttribute(ctx context.Context, attr ClinicalAttribute) error
	AddClinicalData(ctx context.Context, rows []ClinicalDatum) error

	GetPatientByStudy(ctx context.Context, stableID string, studyID int64) (Patient, bool, error)
	AddPatient(ctx context.Context, patient Patient) (Patient, error)
	GetSampleByStudy(ctx context.Context, stableID string, studyID int64) (Sample, bool, error)
	AddSample(ctx context.Context, sample Sample) (Sample, error)

	GetGeneticProfile(ctx context.Context, stableID string) (GeneticProfile, bool, error)
	AddGeneticProfile(ctx context.Context, profile GeneticProfile) (GeneticProfile, error)
	AddSampleProfile(ctx context.Context, link SampleProfile) error
	AddGeneticProfileSamples(ctx context.Context, profileID int64, sampleIDs []int64) error
	AddGeneticAlterations(ctx context.Context, rows []GeneticAlteration) error

	// AddMutationEvent returns the stored event, reusing an existing one with the same key.
	AddMutationEvent(ctx context.Context, event MutationEvent) (MutationEvent, error)
	AddMutations(ctx context.Context, rows []Mutation) error
	CalculateMutationCount(ctx context.Context, profileID int64) ([]MutationCount, error)

	AddCopyNumberSegmentFile(ctx context.Context, file CopyNumberSegmentFile) (CopyNumberSegmentFile, error)
	AddCopyNumberSegments(ctx context.Context, rows []CopyNumberSegment) error

	AddTimelineEvents(ctx context.Context, rows []TimelineEvent) error

	AddCaseList(ctx context.Context, list CaseList) (CaseList, error)
	ListCaseLists(ctx context.Context, studyID int64) ([]CaseList, error)
}

// Flusher is implemented by durable backends that buffer state in memory and
// write it out in one transaction.
type Flusher interface {
	Flush(ctx context.Context) error
}

// ErrNotFound is returned when a referenced record does not exist.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ErrConflict is returned when a record collides with an existing unique key.
type ErrConflict struct {
	Entity EntityType
	ID     string
}

func (e ErrConflict) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Entity, e.ID)
}
