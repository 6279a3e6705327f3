package stages

import (
	"context"
	"fmt"

	"studyloader/internal/barcode"
	"studyloader/pkg/domain"
)

// cases resolves patient and sample stable ids of one study to internal
// ids, creating missing records on demand.
type cases struct {
	store    domain.Store
	studyID  int64
	patients map[string]int64
	samples  map[string]domain.Sample
}

func newCases(store domain.Store, studyID int64) *cases {
	return &cases{
		store:    store,
		studyID:  studyID,
		patients: map[string]int64{},
		samples:  map[string]domain.Sample{},
	}
}

// lookupPatient finds an existing patient without creating one.
func (c *cases) lookupPatient(ctx context.Context, stableID string) (int64, bool, error) {
	if id, ok := c.patients[stableID]; ok {
		return id, true, nil
	}
	p, ok, err := c.store.GetPatientByStudy(ctx, stableID, c.studyID)
	if err != nil {
		return 0, false, fmt.Errorf("get patient %s: %w", stableID, err)
	}
	if !ok {
		return 0, false, nil
	}
	c.patients[stableID] = p.ID
	return p.ID, true, nil
}

func (c *cases) patient(ctx context.Context, stableID string) (int64, error) {
	id, ok, err := c.lookupPatient(ctx, stableID)
	if err != nil || ok {
		return id, err
	}
	p, err := c.store.AddPatient(ctx, domain.Patient{StableID: stableID, StudyID: c.studyID})
	if err != nil {
		return 0, fmt.Errorf("add patient %s: %w", stableID, err)
	}
	c.patients[stableID] = p.ID
	return p.ID, nil
}

// sample returns the sample a barcode names. When patientID is empty the
// patient is derived from the barcode.
func (c *cases) sample(ctx context.Context, code, patientID string) (domain.Sample, error) {
	id := barcode.Parse(code)
	if s, ok := c.samples[id.SampleID]; ok {
		return s, nil
	}
	s, ok, err := c.store.GetSampleByStudy(ctx, id.SampleID, c.studyID)
	if err != nil {
		return domain.Sample{}, fmt.Errorf("get sample %s: %w", id.SampleID, err)
	}
	if !ok {
		if patientID == "" {
			patientID = id.PatientID
		}
		pid, err := c.patient(ctx, patientID)
		if err != nil {
			return domain.Sample{}, err
		}
		s, err = c.store.AddSample(ctx, domain.Sample{
			StableID:   id.SampleID,
			PatientID:  pid,
			SampleType: string(id.SampleType),
		})
		if err != nil {
			return domain.Sample{}, fmt.Errorf("add sample %s: %w", id.SampleID, err)
		}
	}
	c.samples[id.SampleID] = s
	return s, nil
}
