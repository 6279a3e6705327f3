// Package memory provides the in-memory implementation of the study
// persistence contract. The durable backends embed it and snapshot its state.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"studyloader/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.Store = (*Store)(nil)

// Store is a mutex guarded, in-process implementation of domain.Store.
type Store struct {
	mu    sync.RWMutex
	state memoryState
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for import timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore constructs an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{state: newMemoryState(), now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

func (s *Store) newID() int64 {
	id := s.state.nextID
	s.state.nextID++
	return id
}

func idString(id int64) string { return strconv.FormatInt(id, 10) }

// --- studies ---

func (s *Store) GetStudy(_ context.Context, stableID string) (domain.Study, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.state.studies {
		if st.StableID == stableID {
			return st, true, nil
		}
	}
	return domain.Study{}, false, nil
}

func (s *Store) GetStudyByID(_ context.Context, id int64) (domain.Study, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.state.studies[id]
	return st, ok, nil
}

func (s *Store) ListStudies(_ context.Context) ([]domain.Study, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Study, 0, len(s.state.studies))
	for _, id := range sortedKeys(s.state.studies) {
		out = append(out, s.state.studies[id])
	}
	return out, nil
}

// AddStudy assigns the study key and import timestamp.
func (s *Store) AddStudy(_ context.Context, study domain.Study) (domain.Study, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.state.studies {
		if st.StableID == study.StableID {
			return domain.Study{}, domain.ErrConflict{Entity: domain.EntityStudy, ID: study.StableID}
		}
	}
	study.ID = s.newID()
	study.ImportedAt = s.now()
	s.state.studies[study.ID] = study
	return study, nil
}

// DeleteStudy removes the study and everything scoped to it. Mutation events
// no longer referenced by any mutation are dropped as well.
func (s *Store) DeleteStudy(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := &s.state
	if _, ok := st.studies[id]; !ok {
		return domain.ErrNotFound{Entity: domain.EntityStudy, ID: idString(id)}
	}
	delete(st.studies, id)

	patients := map[int64]struct{}{}
	for pid, p := range st.patients {
		if p.StudyID == id {
			patients[pid] = struct{}{}
			delete(st.patients, pid)
		}
	}
	samples := map[int64]struct{}{}
	for sid, smp := range st.samples {
		if _, ok := patients[smp.PatientID]; ok {
			samples[sid] = struct{}{}
			delete(st.samples, sid)
		}
	}
	st.clinical = filter(st.clinical, func(d domain.ClinicalDatum) bool {
		if d.Level == domain.ClinicalPatient {
			_, gone := patients[d.InternalID]
			return !gone
		}
		_, gone := samples[d.InternalID]
		return !gone
	})
	for k := range st.attributes {
		if k.studyID == id {
			delete(st.attributes, k)
		}
	}
	profiles := map[int64]struct{}{}
	for pid, p := range st.profiles {
		if p.StudyID == id {
			profiles[pid] = struct{}{}
			delete(st.profiles, pid)
			delete(st.profileSamples, pid)
			delete(st.mutationCounts, pid)
		}
	}
	st.sampleProfiles = filter(st.sampleProfiles, func(sp domain.SampleProfile) bool {
		_, gone := profiles[sp.ProfileID]
		return !gone
	})
	st.alterations = filter(st.alterations, func(a domain.GeneticAlteration) bool {
		_, gone := profiles[a.ProfileID]
		return !gone
	})
	st.mutations = filter(st.mutations, func(m domain.Mutation) bool {
		_, gone := profiles[m.ProfileID]
		return !gone
	})
	referenced := make(map[int64]struct{}, len(st.mutations))
	for _, m := range st.mutations {
		referenced[m.EventID] = struct{}{}
	}
	for eid, e := range st.events {
		if _, ok := referenced[eid]; !ok {
			delete(st.events, eid)
			delete(st.eventIndex, keyOf(e))
		}
	}
	for fid, f := range st.segmentFiles {
		if f.StudyID == id {
			delete(st.segmentFiles, fid)
		}
	}
	st.segments = filter(st.segments, func(seg domain.CopyNumberSegment) bool { return seg.StudyID != id })
	st.timeline = filter(st.timeline, func(e domain.TimelineEvent) bool {
		_, gone := patients[e.PatientID]
		return !gone
	})
	for cid, c := range st.caseLists {
		if c.StudyID == id {
			delete(st.caseLists, cid)
		}
	}
	return nil
}

func filter[T any](in []T, keep func(T) bool) []T {
	out := in[:0]
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// --- genes ---

func (s *Store) GetGene(_ context.Context, entrezID int64) (domain.Gene, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.state.genes[entrezID]
	if !ok {
		return domain.Gene{}, false, nil
	}
	return cloneGene(g), true, nil
}

func (s *Store) ListGenes(_ context.Context) ([]domain.Gene, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Gene, 0, len(s.state.genes))
	for _, id := range sortedKeys(s.state.genes) {
		out = append(out, cloneGene(s.state.genes[id]))
	}
	return out, nil
}

// AddGene stores or replaces a gene. Entrez id 0 allocates the next free
// negative id, used for genes outside the Entrez namespace.
func (s *Store) AddGene(_ context.Context, gene domain.Gene) (domain.Gene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gene.HugoSymbol == "" {
		return domain.Gene{}, fmt.Errorf("gene symbol required")
	}
	if gene.EntrezID == 0 {
		for _, g := range s.state.genes {
			if g.EntrezID < 0 && g.HugoSymbol == gene.HugoSymbol {
				return cloneGene(g), nil
			}
		}
		next := int64(-1)
		for id := range s.state.genes {
			if id <= next {
				next = id - 1
			}
		}
		gene.EntrezID = next
	}
	gene = cloneGene(gene)
	s.state.genes[gene.EntrezID] = gene
	return cloneGene(gene), nil
}

// --- clinical ---

func (s *Store) GetClinicalAttribute(_ context.Context, studyID int64, attrID string) (domain.ClinicalAttribute, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.state.attributes[attrKey{studyID, attrID}]
	return a, ok, nil
}

func (s *Store) AddClinicalAttribute(_ context.Context, attr domain.ClinicalAttribute) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.studies[attr.StudyID]; !ok {
		return domain.ErrNotFound{Entity: domain.EntityStudy, ID: idString(attr.StudyID)}
	}
	k := attrKey{attr.StudyID, attr.AttrID}
	if _, exists := s.state.attributes[k]; exists {
		return domain.ErrConflict{Entity: domain.EntityClinicalAttribute, ID: attr.AttrID}
	}
	s.state.attributes[k] = attr
	return nil
}

func (s *Store) AddClinicalData(_ context.Context, rows []domain.ClinicalDatum) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		switch r.Level {
		case domain.ClinicalPatient:
			if _, ok := s.state.patients[r.InternalID]; !ok {
				return domain.ErrNotFound{Entity: domain.EntityPatient, ID: idString(r.InternalID)}
			}
		case domain.ClinicalSample:
			if _, ok := s.state.samples[r.InternalID]; !ok {
				return domain.ErrNotFound{Entity: domain.EntitySample, ID: idString(r.InternalID)}
			}
		default:
			return fmt.Errorf("unknown clinical level %q", r.Level)
		}
	}
	s.state.clinical = append(s.state.clinical, rows...)
	return nil
}

// --- patients and samples ---

func (s *Store) GetPatientByStudy(_ context.Context, stableID string, studyID int64) (domain.Patient, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.findPatient(stableID, studyID)
	return p, ok, nil
}

func (s *Store) findPatient(stableID string, studyID int64) (domain.Patient, bool) {
	for _, p := range s.state.patients {
		if p.StudyID == studyID && p.StableID == stableID {
			return p, true
		}
	}
	return domain.Patient{}, false
}

func (s *Store) AddPatient(_ context.Context, patient domain.Patient) (domain.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.studies[patient.StudyID]; !ok {
		return domain.Patient{}, domain.ErrNotFound{Entity: domain.EntityStudy, ID: idString(patient.StudyID)}
	}
	if _, exists := s.findPatient(patient.StableID, patient.StudyID); exists {
		return domain.Patient{}, domain.ErrConflict{Entity: domain.EntityPatient, ID: patient.StableID}
	}
	patient.ID = s.newID()
	s.state.patients[patient.ID] = patient
	return patient, nil
}

func (s *Store) GetSampleByStudy(_ context.Context, stableID string, studyID int64) (domain.Sample, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	smp, ok := s.findSample(stableID, studyID)
	return smp, ok, nil
}

func (s *Store) findSample(stableID string, studyID int64) (domain.Sample, bool) {
	for _, smp := range s.state.samples {
		if smp.StableID != stableID {
			continue
		}
		if p, ok := s.state.patients[smp.PatientID]; ok && p.StudyID == studyID {
			return smp, true
		}
	}
	return domain.Sample{}, false
}

func (s *Store) AddSample(_ context.Context, sample domain.Sample) (domain.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.state.patients[sample.PatientID]
	if !ok {
		return domain.Sample{}, domain.ErrNotFound{Entity: domain.EntityPatient, ID: idString(sample.PatientID)}
	}
	if _, exists := s.findSample(sample.StableID, p.StudyID); exists {
		return domain.Sample{}, domain.ErrConflict{Entity: domain.EntitySample, ID: sample.StableID}
	}
	sample.ID = s.newID()
	s.state.samples[sample.ID] = sample
	return sample, nil
}

// --- genetic profiles ---

func (s *Store) GetGeneticProfile(_ context.Context, stableID string) (domain.GeneticProfile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.state.profiles {
		if p.StableID == stableID {
			return p, true, nil
		}
	}
	return domain.GeneticProfile{}, false, nil
}

func (s *Store) AddGeneticProfile(_ context.Context, profile domain.GeneticProfile) (domain.GeneticProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.studies[profile.StudyID]; !ok {
		return domain.GeneticProfile{}, domain.ErrNotFound{Entity: domain.EntityStudy, ID: idString(profile.StudyID)}
	}
	for _, p := range s.state.profiles {
		if p.StableID == profile.StableID {
			return domain.GeneticProfile{}, domain.ErrConflict{Entity: domain.EntityGeneticProfile, ID: profile.StableID}
		}
	}
	profile.ID = s.newID()
	s.state.profiles[profile.ID] = profile
	return profile, nil
}

// AddSampleProfile links a sample to a profile; repeated links are ignored.
func (s *Store) AddSampleProfile(_ context.Context, link domain.SampleProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.profiles[link.ProfileID]; !ok {
		return domain.ErrNotFound{Entity: domain.EntityGeneticProfile, ID: idString(link.ProfileID)}
	}
	for _, sp := range s.state.sampleProfiles {
		if sp.SampleID == link.SampleID && sp.ProfileID == link.ProfileID {
			return nil
		}
	}
	s.state.sampleProfiles = append(s.state.sampleProfiles, link)
	return nil
}

// AddGeneticProfileSamples records the ordered sample columns of a profile.
// Samples already listed keep their position; new ones are appended.
func (s *Store) AddGeneticProfileSamples(_ context.Context, profileID int64, sampleIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.profiles[profileID]; !ok {
		return domain.ErrNotFound{Entity: domain.EntityGeneticProfile, ID: idString(profileID)}
	}
	existing := s.state.profileSamples[profileID]
	seen := make(map[int64]struct{}, len(existing))
	for _, id := range existing {
		seen[id] = struct{}{}
	}
	for _, id := range sampleIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		existing = append(existing, id)
	}
	s.state.profileSamples[profileID] = existing
	return nil
}

// ProfileSamples returns the ordered sample ids of a profile.
func (s *Store) ProfileSamples(profileID int64) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int64(nil), s.state.profileSamples[profileID]...)
}

func (s *Store) AddGeneticAlterations(_ context.Context, rows []domain.GeneticAlteration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	type key struct{ profile, entrez int64 }
	present := make(map[key]struct{}, len(s.state.alterations))
	for _, a := range s.state.alterations {
		present[key{a.ProfileID, a.EntrezID}] = struct{}{}
	}
	for _, r := range rows {
		if _, ok := s.state.profiles[r.ProfileID]; !ok {
			return domain.ErrNotFound{Entity: domain.EntityGeneticProfile, ID: idString(r.ProfileID)}
		}
		k := key{r.ProfileID, r.EntrezID}
		if _, dup := present[k]; dup {
			return domain.ErrConflict{Entity: domain.EntityGene, ID: idString(r.EntrezID)}
		}
		present[k] = struct{}{}
	}
	for _, r := range rows {
		s.state.alterations = append(s.state.alterations, cloneAlteration(r))
	}
	return nil
}

// Alterations returns the matrix rows stored for a profile.
func (s *Store) Alterations(profileID int64) []domain.GeneticAlteration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.GeneticAlteration
	for _, a := range s.state.alterations {
		if a.ProfileID == profileID {
			out = append(out, cloneAlteration(a))
		}
	}
	return out
}

// --- mutations ---

// AddMutationEvent returns the stored event with the same identity, creating it when absent.
func (s *Store) AddMutationEvent(_ context.Context, event domain.MutationEvent) (domain.MutationEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := keyOf(event)
	if id, ok := s.state.eventIndex[k]; ok {
		return s.state.events[id], nil
	}
	event.ID = s.newID()
	s.state.events[event.ID] = event
	s.state.eventIndex[k] = event.ID
	return event, nil
}

// AddMutations stores sample level calls; a repeated (event, profile, sample) is ignored.
func (s *Store) AddMutations(_ context.Context, rows []domain.Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	type key struct{ event, profile, sample int64 }
	present := make(map[key]struct{}, len(s.state.mutations))
	for _, m := range s.state.mutations {
		present[key{m.EventID, m.ProfileID, m.SampleID}] = struct{}{}
	}
	for _, r := range rows {
		if _, ok := s.state.events[r.EventID]; !ok {
			return domain.ErrNotFound{Entity: domain.EntityMutationEvent, ID: idString(r.EventID)}
		}
		if _, ok := s.state.profiles[r.ProfileID]; !ok {
			return domain.ErrNotFound{Entity: domain.EntityGeneticProfile, ID: idString(r.ProfileID)}
		}
		k := key{r.EventID, r.ProfileID, r.SampleID}
		if _, dup := present[k]; dup {
			continue
		}
		present[k] = struct{}{}
		s.state.mutations = append(s.state.mutations, r)
	}
	return nil
}

// Mutations returns the calls stored for a profile.
func (s *Store) Mutations(profileID int64) []domain.Mutation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Mutation
	for _, m := range s.state.mutations {
		if m.ProfileID == profileID {
			out = append(out, m)
		}
	}
	return out
}

// CalculateMutationCount recomputes and stores per-sample mutation counts
// for a profile, ordered by sample id.
func (s *Store) CalculateMutationCount(_ context.Context, profileID int64) ([]domain.MutationCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.profiles[profileID]; !ok {
		return nil, domain.ErrNotFound{Entity: domain.EntityGeneticProfile, ID: idString(profileID)}
	}
	perSample := map[int64]int{}
	for _, m := range s.state.mutations {
		if m.ProfileID == profileID {
			perSample[m.SampleID]++
		}
	}
	counts := make([]domain.MutationCount, 0, len(perSample))
	for _, sid := range sortedKeys(perSample) {
		counts = append(counts, domain.MutationCount{ProfileID: profileID, SampleID: sid, Count: perSample[sid]})
	}
	s.state.mutationCounts[profileID] = counts
	return append([]domain.MutationCount(nil), counts...), nil
}

// --- segments ---

func (s *Store) AddCopyNumberSegmentFile(_ context.Context, file domain.CopyNumberSegmentFile) (domain.CopyNumberSegmentFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.studies[file.StudyID]; !ok {
		return domain.CopyNumberSegmentFile{}, domain.ErrNotFound{Entity: domain.EntityStudy, ID: idString(file.StudyID)}
	}
	file.ID = s.newID()
	s.state.segmentFiles[file.ID] = file
	return file, nil
}

func (s *Store) AddCopyNumberSegments(_ context.Context, rows []domain.CopyNumberSegment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		if _, ok := s.state.samples[r.SampleID]; !ok {
			return domain.ErrNotFound{Entity: domain.EntitySample, ID: idString(r.SampleID)}
		}
	}
	s.state.segments = append(s.state.segments, rows...)
	return nil
}

// Segments returns the segments stored for a study.
func (s *Store) Segments(studyID int64) []domain.CopyNumberSegment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.CopyNumberSegment
	for _, seg := range s.state.segments {
		if seg.StudyID == studyID {
			out = append(out, seg)
		}
	}
	return out
}

// --- timeline ---

func (s *Store) AddTimelineEvents(_ context.Context, rows []domain.TimelineEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		if _, ok := s.state.patients[r.PatientID]; !ok {
			return domain.ErrNotFound{Entity: domain.EntityPatient, ID: idString(r.PatientID)}
		}
	}
	for _, r := range rows {
		r = cloneTimelineEvent(r)
		r.ID = s.newID()
		s.state.timeline = append(s.state.timeline, r)
	}
	return nil
}

// TimelineEvents returns the events of one patient.
func (s *Store) TimelineEvents(patientID int64) []domain.TimelineEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.TimelineEvent
	for _, e := range s.state.timeline {
		if e.PatientID == patientID {
			out = append(out, cloneTimelineEvent(e))
		}
	}
	return out
}

// ClinicalData returns the values stored for one patient or sample.
func (s *Store) ClinicalData(level domain.ClinicalLevel, internalID int64) []domain.ClinicalDatum {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ClinicalDatum
	for _, d := range s.state.clinical {
		if d.Level == level && d.InternalID == internalID {
			out = append(out, d)
		}
	}
	return out
}

// --- case lists ---

func (s *Store) AddCaseList(_ context.Context, list domain.CaseList) (domain.CaseList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.studies[list.StudyID]; !ok {
		return domain.CaseList{}, domain.ErrNotFound{Entity: domain.EntityStudy, ID: idString(list.StudyID)}
	}
	for _, c := range s.state.caseLists {
		if c.StableID == list.StableID {
			return domain.CaseList{}, domain.ErrConflict{Entity: domain.EntityCaseList, ID: list.StableID}
		}
	}
	list = cloneCaseList(list)
	list.ID = s.newID()
	s.state.caseLists[list.ID] = list
	return cloneCaseList(list), nil
}

func (s *Store) ListCaseLists(_ context.Context, studyID int64) ([]domain.CaseList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.CaseList
	for _, c := range s.state.caseLists {
		if c.StudyID == studyID {
			out = append(out, cloneCaseList(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
