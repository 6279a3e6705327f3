package memory

import (
	"sort"

	"studyloader/pkg/domain"
)

type attrKey struct {
	studyID int64
	attrID  string
}

type eventKey struct {
	entrezID       int64
	chromosome     string
	start          int64
	end            int64
	tumorSeqAllele string
	proteinChange  string
	mutationType   string
}

func keyOf(e domain.MutationEvent) eventKey {
	return eventKey{e.EntrezID, e.Chromosome, e.StartPosition, e.EndPosition, e.TumorSeqAllele, e.ProteinChange, e.MutationType}
}

type memoryState struct {
	studies        map[int64]domain.Study
	patients       map[int64]domain.Patient
	samples        map[int64]domain.Sample
	genes          map[int64]domain.Gene
	attributes     map[attrKey]domain.ClinicalAttribute
	clinical       []domain.ClinicalDatum
	profiles       map[int64]domain.GeneticProfile
	sampleProfiles []domain.SampleProfile
	profileSamples map[int64][]int64
	alterations    []domain.GeneticAlteration
	events         map[int64]domain.MutationEvent
	eventIndex     map[eventKey]int64
	mutations      []domain.Mutation
	mutationCounts map[int64][]domain.MutationCount
	segmentFiles   map[int64]domain.CopyNumberSegmentFile
	segments       []domain.CopyNumberSegment
	timeline       []domain.TimelineEvent
	caseLists      map[int64]domain.CaseList
	nextID         int64
}

func newMemoryState() memoryState {
	return memoryState{
		studies:        map[int64]domain.Study{},
		patients:       map[int64]domain.Patient{},
		samples:        map[int64]domain.Sample{},
		genes:          map[int64]domain.Gene{},
		attributes:     map[attrKey]domain.ClinicalAttribute{},
		profiles:       map[int64]domain.GeneticProfile{},
		profileSamples: map[int64][]int64{},
		events:         map[int64]domain.MutationEvent{},
		eventIndex:     map[eventKey]int64{},
		mutationCounts: map[int64][]domain.MutationCount{},
		segmentFiles:   map[int64]domain.CopyNumberSegmentFile{},
		caseLists:      map[int64]domain.CaseList{},
		nextID:         1,
	}
}

// Snapshot captures a point-in-time clone of the store state. Each field is
// persisted as one bucket by the durable backends.
type Snapshot struct {
	Studies            []domain.Study                   `json:"studies"`
	Patients           []domain.Patient                 `json:"patients"`
	Samples            []domain.Sample                  `json:"samples"`
	Genes              []domain.Gene                    `json:"genes"`
	ClinicalAttributes []domain.ClinicalAttribute       `json:"clinical_attributes"`
	ClinicalData       []domain.ClinicalDatum           `json:"clinical_data"`
	GeneticProfiles    []domain.GeneticProfile          `json:"genetic_profiles"`
	SampleProfiles     []domain.SampleProfile           `json:"sample_profiles"`
	ProfileSamples     map[int64][]int64                `json:"profile_samples"`
	Alterations        []domain.GeneticAlteration       `json:"genetic_alterations"`
	MutationEvents     []domain.MutationEvent           `json:"mutation_events"`
	Mutations          []domain.Mutation                `json:"mutations"`
	MutationCounts     map[int64][]domain.MutationCount `json:"mutation_counts"`
	SegmentFiles       []domain.CopyNumberSegmentFile   `json:"segment_files"`
	Segments           []domain.CopyNumberSegment       `json:"segments"`
	TimelineEvents     []domain.TimelineEvent           `json:"timeline_events"`
	CaseLists          []domain.CaseList                `json:"case_lists"`
}

// Bucket names one snapshot field for durable storage.
type Bucket struct {
	Name   string
	Target any
}

// Buckets returns pointers to every snapshot field keyed by bucket name,
// for encoding into or decoding from a state table.
func (s *Snapshot) Buckets() []Bucket {
	return []Bucket{
		{"studies", &s.Studies},
		{"patients", &s.Patients},
		{"samples", &s.Samples},
		{"genes", &s.Genes},
		{"clinical_attributes", &s.ClinicalAttributes},
		{"clinical_data", &s.ClinicalData},
		{"genetic_profiles", &s.GeneticProfiles},
		{"sample_profiles", &s.SampleProfiles},
		{"profile_samples", &s.ProfileSamples},
		{"genetic_alterations", &s.Alterations},
		{"mutation_events", &s.MutationEvents},
		{"mutations", &s.Mutations},
		{"mutation_counts", &s.MutationCounts},
		{"segment_files", &s.SegmentFiles},
		{"segments", &s.Segments},
		{"timeline_events", &s.TimelineEvents},
		{"case_lists", &s.CaseLists},
	}
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		ClinicalData:   append([]domain.ClinicalDatum(nil), state.clinical...),
		SampleProfiles: append([]domain.SampleProfile(nil), state.sampleProfiles...),
		ProfileSamples: make(map[int64][]int64, len(state.profileSamples)),
		Mutations:      append([]domain.Mutation(nil), state.mutations...),
		MutationCounts: make(map[int64][]domain.MutationCount, len(state.mutationCounts)),
		Segments:       append([]domain.CopyNumberSegment(nil), state.segments...),
	}
	for _, id := range sortedKeys(state.studies) {
		s.Studies = append(s.Studies, state.studies[id])
	}
	for _, id := range sortedKeys(state.patients) {
		s.Patients = append(s.Patients, state.patients[id])
	}
	for _, id := range sortedKeys(state.samples) {
		s.Samples = append(s.Samples, state.samples[id])
	}
	for _, id := range sortedKeys(state.genes) {
		s.Genes = append(s.Genes, cloneGene(state.genes[id]))
	}
	for _, a := range state.attributes {
		s.ClinicalAttributes = append(s.ClinicalAttributes, a)
	}
	sort.Slice(s.ClinicalAttributes, func(i, j int) bool {
		a, b := s.ClinicalAttributes[i], s.ClinicalAttributes[j]
		if a.StudyID != b.StudyID {
			return a.StudyID < b.StudyID
		}
		return a.AttrID < b.AttrID
	})
	for _, id := range sortedKeys(state.profiles) {
		s.GeneticProfiles = append(s.GeneticProfiles, state.profiles[id])
	}
	for id, ids := range state.profileSamples {
		s.ProfileSamples[id] = append([]int64(nil), ids...)
	}
	for _, a := range state.alterations {
		s.Alterations = append(s.Alterations, cloneAlteration(a))
	}
	for _, id := range sortedKeys(state.events) {
		s.MutationEvents = append(s.MutationEvents, state.events[id])
	}
	for id, counts := range state.mutationCounts {
		s.MutationCounts[id] = append([]domain.MutationCount(nil), counts...)
	}
	for _, id := range sortedKeys(state.segmentFiles) {
		s.SegmentFiles = append(s.SegmentFiles, state.segmentFiles[id])
	}
	for _, e := range state.timeline {
		s.TimelineEvents = append(s.TimelineEvents, cloneTimelineEvent(e))
	}
	for _, id := range sortedKeys(state.caseLists) {
		s.CaseLists = append(s.CaseLists, cloneCaseList(state.caseLists[id]))
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	track := func(id int64) {
		if id >= state.nextID {
			state.nextID = id + 1
		}
	}
	for _, v := range s.Studies {
		state.studies[v.ID] = v
		track(v.ID)
	}
	for _, v := range s.Patients {
		state.patients[v.ID] = v
		track(v.ID)
	}
	for _, v := range s.Samples {
		state.samples[v.ID] = v
		track(v.ID)
	}
	for _, v := range s.Genes {
		state.genes[v.EntrezID] = cloneGene(v)
	}
	for _, v := range s.ClinicalAttributes {
		state.attributes[attrKey{v.StudyID, v.AttrID}] = v
	}
	state.clinical = append(state.clinical, s.ClinicalData...)
	for _, v := range s.GeneticProfiles {
		state.profiles[v.ID] = v
		track(v.ID)
	}
	state.sampleProfiles = append(state.sampleProfiles, s.SampleProfiles...)
	for id, ids := range s.ProfileSamples {
		state.profileSamples[id] = append([]int64(nil), ids...)
	}
	for _, v := range s.Alterations {
		state.alterations = append(state.alterations, cloneAlteration(v))
	}
	for _, v := range s.MutationEvents {
		state.events[v.ID] = v
		state.eventIndex[keyOf(v)] = v.ID
		track(v.ID)
	}
	state.mutations = append(state.mutations, s.Mutations...)
	for id, counts := range s.MutationCounts {
		state.mutationCounts[id] = append([]domain.MutationCount(nil), counts...)
	}
	for _, v := range s.SegmentFiles {
		state.segmentFiles[v.ID] = v
		track(v.ID)
	}
	state.segments = append(state.segments, s.Segments...)
	for _, v := range s.TimelineEvents {
		state.timeline = append(state.timeline, cloneTimelineEvent(v))
		track(v.ID)
	}
	for _, v := range s.CaseLists {
		state.caseLists[v.ID] = cloneCaseList(v)
		track(v.ID)
	}
	return state
}

func cloneGene(g domain.Gene) domain.Gene {
	g.Aliases = append([]string(nil), g.Aliases...)
	return g
}

func cloneAlteration(a domain.GeneticAlteration) domain.GeneticAlteration {
	a.Values = append([]string(nil), a.Values...)
	return a
}

func cloneTimelineEvent(e domain.TimelineEvent) domain.TimelineEvent {
	if e.StopDate != nil {
		stop := *e.StopDate
		e.StopDate = &stop
	}
	if e.Data != nil {
		data := make(map[string]string, len(e.Data))
		for k, v := range e.Data {
			data[k] = v
		}
		e.Data = data
	}
	return e
}

func cloneCaseList(c domain.CaseList) domain.CaseList {
	c.SampleIDs = append([]int64(nil), c.SampleIDs...)
	return c
}
