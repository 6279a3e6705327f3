// Package mutation turns mutation annotation (MAF) rows into accepted,
// fully derived mutation records: it filters, derives positions, protein
// changes and allele counts, and merges duplicate calls of one event.
package mutation

import (
	"fmt"
	"strconv"
	"strings"
)

// Missing is the sentinel stored for numeric values absent from the source.
const Missing = -1

// MAF column names, lowercased.
const (
	colHugoSymbol       = "hugo_symbol"
	colEntrezGeneID     = "entrez_gene_id"
	colCenter           = "center"
	colNCBIBuild        = "ncbi_build"
	colChromosome       = "chromosome"
	colStartPosition    = "start_position"
	colEndPosition      = "end_position"
	colStrand           = "strand"
	colVariantClass     = "variant_classification"
	colVariantType      = "variant_type"
	colReferenceAllele  = "reference_allele"
	colTumorSeqAllele1  = "tumor_seq_allele1"
	colTumorSeqAllele2  = "tumor_seq_allele2"
	colDBSNPRS          = "dbsnp_rs"
	colDBSNPValStatus   = "dbsnp_val_status"
	colTumorBarcode     = "tumor_sample_barcode"
	colNormalBarcode    = "matched_norm_sample_barcode"
	colNormSeqAllele1   = "match_norm_seq_allele1"
	colNormSeqAllele2   = "match_norm_seq_allele2"
	colTumorValAllele1  = "tumor_validation_allele1"
	colTumorValAllele2  = "tumor_validation_allele2"
	colNormValAllele1   = "match_norm_validation_allele1"
	colNormValAllele2   = "match_norm_validation_allele2"
	colVerification     = "verification_status"
	colValidationStatus = "validation_status"
	colMutationStatus   = "mutation_status"
	colSequencingPhase  = "sequencing_phase"
	colSequenceSource   = "sequence_source"
	colValidationMethod = "validation_method"
	colScore            = "score"
	colBAMFile          = "bam_file"
	colSequencer        = "sequencer"
	colProteinChange    = "protein_change"
	colHGVSpShort       = "hgvsp_short"
	colAminoAcidChange  = "amino_acid_change"
	colMAProteinChange  = "ma:protein.change"
	colProteinPosition  = "protein_position"
	colMAFImpact        = "ma:fimpact"
	colMALinkVar        = "ma:link.var"
	colMALinkMSA        = "ma:link.msa"
	colMALinkPDB        = "ma:link.pdb"
	colOncotatorDBSNPRS = "oncotator_dbsnp_rs"
)

var requiredColumns = []string{colHugoSymbol, colTumorBarcode, colVariantClass}

// Header maps MAF column names to field positions.
type Header struct {
	index map[string]int
	width int
}

// NewHeader validates a MAF header row.
func NewHeader(columns []string) (Header, error) {
	h := Header{index: make(map[string]int, len(columns)), width: len(columns)}
	for i, c := range columns {
		name := strings.ToLower(strings.TrimSpace(c))
		if _, dup := h.index[name]; !dup {
			h.index[name] = i
		}
	}
	for _, req := range requiredColumns {
		if _, ok := h.index[req]; !ok {
			return Header{}, fmt.Errorf("mutation header missing column %q", req)
		}
	}
	return h, nil
}

// Has reports whether the header carries the column.
func (h Header) Has(column string) bool {
	_, ok := h.index[strings.ToLower(column)]
	return ok
}

// Row is one data line addressed by column name.
type Row struct {
	header Header
	fields []string
}

// Get returns the trimmed value of a column, or "" when absent.
func (r Row) Get(column string) string {
	i, ok := r.header.index[column]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// Record is a MAF row with its source fields decoded.
type Record struct {
	HugoSymbol                 string
	EntrezID                   int64
	Center                     string
	NCBIBuild                  string
	Chromosome                 string
	StartPosition              int64
	EndPosition                int64
	Strand                     string
	MutationType               string
	VariantType                string
	ReferenceAllele            string
	TumorSeqAllele1            string
	TumorSeqAllele2            string
	DBSNPRS                    string
	DBSNPValStatus             string
	TumorSampleBarcode         string
	MatchedNormSampleBarcode   string
	MatchNormSeqAllele1        string
	MatchNormSeqAllele2        string
	TumorValidationAllele1     string
	TumorValidationAllele2     string
	MatchNormValidationAllele1 string
	MatchNormValidationAllele2 string
	VerificationStatus         string
	ValidationStatus           string
	MutationStatus             string
	SequencingPhase            string
	SequenceSource             string
	ValidationMethod           string
	Score                      string
	BAMFile                    string
	Sequencer                  string
	ProteinChange              string
	AminoAcidChange            string
	MAProteinChange            string
	ProteinPosition            string
	FunctionalImpactScore      string
	LinkXVar                   string
	LinkMSA                    string
	LinkPDB                    string
	OncotatorDBSNPRS           string

	row Row
}

// Row returns the source row, for columns not decoded into fields.
func (r Record) Row() Row { return r.row }

// Parse decodes one data line. It fails when the line is shorter than the
// header's required columns or a position is not numeric.
func (h Header) Parse(fields []string) (Record, error) {
	for _, req := range requiredColumns {
		if h.index[req] >= len(fields) {
			return Record{}, fmt.Errorf("row has %d fields, header has %d", len(fields), h.width)
		}
	}
	row := Row{header: h, fields: fields}
	rec := Record{
		HugoSymbol:                 row.Get(colHugoSymbol),
		Center:                     row.Get(colCenter),
		NCBIBuild:                  row.Get(colNCBIBuild),
		Chromosome:                 row.Get(colChromosome),
		Strand:                     row.Get(colStrand),
		MutationType:               row.Get(colVariantClass),
		VariantType:                row.Get(colVariantType),
		ReferenceAllele:            row.Get(colReferenceAllele),
		TumorSeqAllele1:            row.Get(colTumorSeqAllele1),
		TumorSeqAllele2:            row.Get(colTumorSeqAllele2),
		DBSNPRS:                    row.Get(colDBSNPRS),
		DBSNPValStatus:             row.Get(colDBSNPValStatus),
		TumorSampleBarcode:         row.Get(colTumorBarcode),
		MatchedNormSampleBarcode:   row.Get(colNormalBarcode),
		MatchNormSeqAllele1:        row.Get(colNormSeqAllele1),
		MatchNormSeqAllele2:        row.Get(colNormSeqAllele2),
		TumorValidationAllele1:     row.Get(colTumorValAllele1),
		TumorValidationAllele2:     row.Get(colTumorValAllele2),
		MatchNormValidationAllele1: row.Get(colNormValAllele1),
		MatchNormValidationAllele2: row.Get(colNormValAllele2),
		VerificationStatus:         row.Get(colVerification),
		ValidationStatus:           row.Get(colValidationStatus),
		MutationStatus:             row.Get(colMutationStatus),
		SequencingPhase:            row.Get(colSequencingPhase),
		SequenceSource:             row.Get(colSequenceSource),
		ValidationMethod:           row.Get(colValidationMethod),
		Score:                      row.Get(colScore),
		BAMFile:                    row.Get(colBAMFile),
		Sequencer:                  row.Get(colSequencer),
		ProteinChange:              row.Get(colProteinChange),
		AminoAcidChange:            row.Get(colAminoAcidChange),
		MAProteinChange:            row.Get(colMAProteinChange),
		ProteinPosition:            row.Get(colProteinPosition),
		FunctionalImpactScore:      row.Get(colMAFImpact),
		LinkXVar:                   row.Get(colMALinkVar),
		LinkMSA:                    row.Get(colMALinkMSA),
		LinkPDB:                    row.Get(colMALinkPDB),
		OncotatorDBSNPRS:           row.Get(colOncotatorDBSNPRS),
		row:                        row,
	}
	if !h.Has(colProteinChange) {
		rec.ProteinChange = row.Get(colHGVSpShort)
	}
	if rec.TumorSampleBarcode == "" {
		return Record{}, fmt.Errorf("empty %s", colTumorBarcode)
	}
	var err error
	if rec.EntrezID, err = parseOptionalInt(row.Get(colEntrezGeneID)); err != nil {
		return Record{}, fmt.Errorf("%s: %w", colEntrezGeneID, err)
	}
	if rec.StartPosition, err = parseOptionalInt(row.Get(colStartPosition)); err != nil {
		return Record{}, fmt.Errorf("%s: %w", colStartPosition, err)
	}
	if rec.EndPosition, err = parseOptionalInt(row.Get(colEndPosition)); err != nil {
		return Record{}, fmt.Errorf("%s: %w", colEndPosition, err)
	}
	return rec, nil
}

// parseOptionalInt treats empty and NA values as zero.
func parseOptionalInt(s string) (int64, error) {
	if s == "" || strings.EqualFold(s, "NA") {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
