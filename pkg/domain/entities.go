// Package domain defines the persistent entities and the storage contract
// shared by the study import pipeline and its persistence backends.
package domain

import "time"

// EntityType identifies the kind of record stored by a persistence backend.
type EntityType string

// Supported entity type identifiers used in errors and persistence buckets.
const (
	// EntityStudy identifies a cancer study record.
	EntityStudy EntityType = "study"
	// EntityPatient identifies a patient scoped to a study.
	EntityPatient EntityType = "patient"
	// EntitySample identifies a sample belonging to a patient.
	EntitySample EntityType = "sample"
	// EntityGene identifies a canonical gene.
	EntityGene EntityType = "gene"
	// EntityClinicalAttribute identifies a clinical attribute definition.
	EntityClinicalAttribute EntityType = "clinical_attribute"
	// EntityGeneticProfile identifies a genetic profile.
	EntityGeneticProfile EntityType = "genetic_profile"
	// EntityMutationEvent identifies a deduplicated mutation event.
	EntityMutationEvent EntityType = "mutation_event"
	// EntitySegmentFile identifies a copy-number segment file record.
	EntitySegmentFile EntityType = "copy_number_segment_file"
	// EntityCaseList identifies a sample list.
	EntityCaseList EntityType = "case_list"
)

// Study is a cancer study imported from one staging directory.
type Study struct {
	ID                int64     `json:"id"`
	StableID          string    `json:"stable_id"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	CancerTypeID      string    `json:"cancer_type_id,omitempty"`
	ShortName         string    `json:"short_name,omitempty"`
	PMID              string    `json:"pmid,omitempty"`
	Citation          string    `json:"citation,omitempty"`
	Groups            string    `json:"groups,omitempty"`
	ReferenceGenomeID string    `json:"reference_genome_id,omitempty"`
	ImportedAt        time.Time `json:"imported_at"`
}

// Patient is a study-scoped participant.
type Patient struct {
	ID       int64  `json:"id"`
	StableID string `json:"stable_id"`
	StudyID  int64  `json:"study_id"`
}

// Sample is a specimen taken from a patient.
type Sample struct {
	ID         int64  `json:"id"`
	StableID   string `json:"stable_id"`
	PatientID  int64  `json:"patient_id"`
	SampleType string `json:"sample_type"`
}

// Gene is a canonical gene as known to the gene catalog.
type Gene struct {
	EntrezID   int64    `json:"entrez_id"`
	HugoSymbol string   `json:"hugo_symbol"`
	Type       string   `json:"type,omitempty"`
	Cytoband   string   `json:"cytoband,omitempty"`
	Aliases    []string `json:"aliases,omitempty"`
}

// ClinicalAttribute describes one clinical column of a study.
type ClinicalAttribute struct {
	AttrID           string `json:"attr_id"`
	StudyID          int64  `json:"study_id"`
	DisplayName      string `json:"display_name"`
	Description      string `json:"description"`
	Datatype         string `json:"datatype"`
	PatientAttribute bool   `json:"patient_attribute"`
	Priority         string `json:"priority"`
}

// ClinicalLevel distinguishes patient-level from sample-level clinical values.
type ClinicalLevel string

// Supported clinical levels.
const (
	ClinicalPatient ClinicalLevel = "patient"
	ClinicalSample  ClinicalLevel = "sample"
)

// ClinicalDatum is one attribute value for a patient or sample.
type ClinicalDatum struct {
	Level      ClinicalLevel `json:"level"`
	InternalID int64         `json:"internal_id"`
	AttrID     string        `json:"attr_id"`
	Value      string        `json:"value"`
}

// GeneticProfile is a typed collection of per-sample molecular data.
type GeneticProfile struct {
	ID                int64  `json:"id"`
	StableID          string `json:"stable_id"`
	StudyID           int64  `json:"study_id"`
	AlterationType    string `json:"genetic_alteration_type"`
	Datatype          string `json:"datatype"`
	Name              string `json:"name"`
	Description       string `json:"description,omitempty"`
	ShowInAnalysisTab bool   `json:"show_profile_in_analysis_tab"`
}

// SampleProfile links a sample to a profile it was assayed in.
type SampleProfile struct {
	SampleID  int64  `json:"sample_id"`
	ProfileID int64  `json:"profile_id"`
	GenePanel string `json:"gene_panel,omitempty"`
}

// GeneticAlteration holds one gene row of a profile matrix. Values are
// ordered like the profile's sample list.
type GeneticAlteration struct {
	ProfileID int64    `json:"profile_id"`
	EntrezID  int64    `json:"entrez_id"`
	Values    []string `json:"values"`
}

// MutationEvent is the sample-independent description of a mutation.
type MutationEvent struct {
	ID                    int64  `json:"id"`
	EntrezID              int64  `json:"entrez_id"`
	Chromosome            string `json:"chr"`
	StartPosition         int64  `json:"start_position"`
	EndPosition           int64  `json:"end_position"`
	ReferenceAllele       string `json:"reference_allele"`
	TumorSeqAllele        string `json:"tumor_seq_allele"`
	ProteinChange         string `json:"protein_change"`
	MutationType          string `json:"mutation_type"`
	FunctionalImpactScore string `json:"functional_impact_score,omitempty"`
	LinkXVar              string `json:"link_xvar,omitempty"`
	LinkPDB               string `json:"link_pdb,omitempty"`
	LinkMSA               string `json:"link_msa,omitempty"`
	NCBIBuild             string `json:"ncbi_build,omitempty"`
	Strand                string `json:"strand,omitempty"`
	VariantType           string `json:"variant_type,omitempty"`
	DBSNPRS               string `json:"dbsnp_rs,omitempty"`
	DBSNPValStatus        string `json:"dbsnp_val_status,omitempty"`
	OncotatorDBSNPRS      string `json:"oncotator_dbsnp_rs,omitempty"`
	ProteinStart          int64  `json:"protein_start_position"`
	ProteinEnd            int64  `json:"protein_end_position"`
	Keyword               string `json:"keyword,omitempty"`
}

// Mutation is the sample-specific observation of a mutation event.
type Mutation struct {
	EventID                    int64  `json:"mutation_event_id"`
	ProfileID                  int64  `json:"genetic_profile_id"`
	SampleID                   int64  `json:"sample_id"`
	EntrezID                   int64  `json:"entrez_id"`
	Center                     string `json:"center"`
	SequencingPhase            string `json:"sequencing_phase,omitempty"`
	SequencingSource           string `json:"sequence_source,omitempty"`
	ValidationStatus           string `json:"validation_status,omitempty"`
	ValidationMethod           string `json:"validation_method,omitempty"`
	MutationStatus             string `json:"mutation_status"`
	VerificationStatus         string `json:"verification_status,omitempty"`
	Score                      string `json:"score,omitempty"`
	BAMFile                    string `json:"bam_file,omitempty"`
	Sequencer                  string `json:"sequencer,omitempty"`
	TumorSeqAllele1            string `json:"tumor_seq_allele1,omitempty"`
	TumorSeqAllele2            string `json:"tumor_seq_allele2,omitempty"`
	MatchedNormSampleBarcode   string `json:"matched_norm_sample_barcode,omitempty"`
	MatchNormSeqAllele1        string `json:"match_norm_seq_allele1,omitempty"`
	MatchNormSeqAllele2        string `json:"match_norm_seq_allele2,omitempty"`
	TumorValidationAllele1     string `json:"tumor_validation_allele1,omitempty"`
	TumorValidationAllele2     string `json:"tumor_validation_allele2,omitempty"`
	MatchNormValidationAllele1 string `json:"match_norm_validation_allele1,omitempty"`
	MatchNormValidationAllele2 string `json:"match_norm_validation_allele2,omitempty"`
	TumorAltCount              int    `json:"tumor_alt_count"`
	TumorRefCount              int    `json:"tumor_ref_count"`
	NormalAltCount             int    `json:"normal_alt_count"`
	NormalRefCount             int    `json:"normal_ref_count"`
}

// MutationCount is the aggregate number of mutations per sample in a profile.
type MutationCount struct {
	ProfileID int64 `json:"genetic_profile_id"`
	SampleID  int64 `json:"sample_id"`
	Count     int   `json:"mutation_count"`
}

// CopyNumberSegmentFile records the origin of imported segment data.
type CopyNumberSegmentFile struct {
	ID                int64  `json:"id"`
	StudyID           int64  `json:"study_id"`
	ReferenceGenomeID string `json:"reference_genome_id"`
	Description       string `json:"description"`
	Filename          string `json:"filename"`
}

// CopyNumberSegment is one segmented copy-number call.
type CopyNumberSegment struct {
	StudyID   int64   `json:"study_id"`
	SampleID  int64   `json:"sample_id"`
	Chr       string  `json:"chr"`
	Start     int64   `json:"start"`
	End       int64   `json:"end"`
	NumProbes int     `json:"num_probes"`
	SegMean   float64 `json:"segment_mean"`
}

// TimelineEvent is a dated clinical event for a patient. Dates are days
// relative to the patient's index date.
type TimelineEvent struct {
	ID        int64             `json:"id"`
	PatientID int64             `json:"patient_id"`
	StartDate int               `json:"start_date"`
	StopDate  *int              `json:"stop_date,omitempty"`
	EventType string            `json:"event_type"`
	Data      map[string]string `json:"data,omitempty"`
}

// CaseList is a named, ordered list of samples of a study.
type CaseList struct {
	ID          int64   `json:"id"`
	StableID    string  `json:"stable_id"`
	StudyID     int64   `json:"study_id"`
	Category    string  `json:"category"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	SampleIDs   []int64 `json:"sample_ids"`
}
