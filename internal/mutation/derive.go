package mutation

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"studyloader/pkg/domain"
)

// DefaultProteinChange is used when no protein change column has a value.
const DefaultProteinChange = "MUTATED"

// omaPlaceholder is the value MutationAssessor writes when it has no score.
const omaPlaceholder = "[sent]"

var proteinPositionRe = regexp.MustCompile(`[A-Z]([0-9]+)`)

// ResolveEndPosition derives the end coordinate. Insertions (reference "-")
// span one base; everything else spans the length of the tumor allele.
func ResolveEndPosition(referenceAllele, tumorSeqAllele string, start int64) int64 {
	if referenceAllele == "-" {
		return start + 1
	}
	return start + int64(len(tumorSeqAllele)) - 1
}

// ResolveTumorSeqAllele returns allele1 unless it equals the reference
// allele, in which case allele2 is used.
func ResolveTumorSeqAllele(referenceAllele, allele1, allele2 string) string {
	if allele1 == referenceAllele {
		return allele2
	}
	return allele1
}

// ResolveProteinChange returns the first present candidate with any leading
// "p." removed, or DefaultProteinChange.
func ResolveProteinChange(candidates ...string) string {
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" || strings.EqualFold(c, "NA") {
			continue
		}
		return strings.TrimPrefix(c, "p.")
	}
	return DefaultProteinChange
}

// ResolveProteinPositions parses a "start-end/length" position field. Values
// that are absent fall back to the first number following an uppercase
// letter in the protein change.
func ResolveProteinPositions(positionField, proteinChange string) (start, end int64) {
	start, end = Missing, Missing
	field := strings.TrimSpace(positionField)
	if i := strings.IndexByte(field, '/'); i >= 0 {
		field = field[:i]
	}
	if field != "" {
		lo, hi, found := strings.Cut(field, "-")
		start = parsePosition(lo)
		if found {
			end = parsePosition(hi)
		} else {
			end = start
		}
	}
	if start != Missing && end != Missing {
		return start, end
	}
	fallback := int64(Missing)
	if m := proteinPositionRe.FindStringSubmatch(proteinChange); m != nil {
		fallback = parsePosition(m[1])
	}
	if start == Missing {
		start = fallback
	}
	if end == Missing {
		end = fallback
	}
	return start, end
}

func parsePosition(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v < 0 {
		return Missing
	}
	return v
}

// AlleleCounts are read depths supporting the alternate and reference alleles.
type AlleleCounts struct {
	TumorAlt  int
	TumorRef  int
	NormalAlt int
	NormalRef int
}

// ResolveAlleleCounts reads each count from the first source-column set the
// row carries, in priority order: explicit counts, coverage pairs, then depth
// times allele fraction. Unavailable counts are Missing.
func ResolveAlleleCounts(row Row) AlleleCounts {
	tAlt, tRef := resolveCounts(row, "t_")
	nAlt, nRef := resolveCounts(row, "n_")
	return AlleleCounts{TumorAlt: tAlt, TumorRef: tRef, NormalAlt: nAlt, NormalRef: nRef}
}

func resolveCounts(row Row, prefix string) (alt, ref int) {
	altCount, hasAlt := numeric(row, prefix+"alt_count")
	refCount, hasRef := numeric(row, prefix+"ref_count")
	varCov, hasVar := numeric(row, prefix+"var_cov")
	totCov, hasTot := numeric(row, prefix+"tot_cov")
	depth, hasDepth := numeric(row, prefix+"depth")
	vaf, hasVAF := numeric(row, prefix+"vaf")

	alt, ref = Missing, Missing
	switch {
	case hasAlt:
		alt = round(altCount)
	case hasVar:
		alt = round(varCov)
	case hasDepth && hasVAF:
		alt = round(depth * vaf)
	}
	switch {
	case hasRef:
		ref = round(refCount)
	case hasTot && hasVar:
		ref = round(totCov - varCov)
	case hasDepth && hasVAF:
		ref = round(depth) - round(depth*vaf)
	}
	return alt, ref
}

func numeric(row Row, column string) (float64, bool) {
	raw := row.Get(column)
	if raw == "" || strings.EqualFold(raw, "NA") || raw == "." {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || v < 0 {
		return 0, false
	}
	return v, true
}

func round(v float64) int { return int(math.Round(v)) }

// NormalizeOMAScore maps MutationAssessor impact labels to their one-letter
// codes. Unrecognized values pass through unchanged.
func NormalizeOMAScore(score string) string {
	switch strings.ToLower(strings.TrimSpace(score)) {
	case "h", "high":
		return "H"
	case "m", "medium":
		return "M"
	case "l", "low":
		return "L"
	case "n", "neutral":
		return "N"
	case omaPlaceholder:
		return "NA"
	}
	return score
}

// Candidate is an accepted call with every derived field resolved, ready to
// be merged with other calls of the same sample and event.
type Candidate struct {
	SampleBarcode string
	Event         domain.MutationEvent
	Mutation      domain.Mutation
}

// EventKey identifies a mutation event independently of the sample.
type EventKey struct {
	EntrezID       int64
	Chromosome     string
	StartPosition  int64
	EndPosition    int64
	TumorSeqAllele string
	ProteinChange  string
	MutationType   string
}

// Key returns the event identity of the candidate.
func (c Candidate) Key() EventKey {
	return EventKeyOf(c.Event)
}

// EventKeyOf returns the identity of a stored or pending event.
func EventKeyOf(e domain.MutationEvent) EventKey {
	return EventKey{
		EntrezID:       e.EntrezID,
		Chromosome:     e.Chromosome,
		StartPosition:  e.StartPosition,
		EndPosition:    e.EndPosition,
		TumorSeqAllele: e.TumorSeqAllele,
		ProteinChange:  e.ProteinChange,
		MutationType:   e.MutationType,
	}
}

// Derive resolves every derived field of an accepted record for the given
// gene. The end position is always derived from the start and alleles; the
// source End_Position column only has to parse.
func Derive(rec Record, gene domain.Gene, chromosome string) Candidate {
	allele := ResolveTumorSeqAllele(rec.ReferenceAllele, rec.TumorSeqAllele1, rec.TumorSeqAllele2)
	protein := rec.ProteinChange
	if rec.MutationType != PromoterType {
		protein = ResolveProteinChange(rec.ProteinChange, rec.AminoAcidChange, rec.MAProteinChange)
	} else if strings.TrimSpace(protein) == "" {
		protein = PromoterType
	} else {
		protein = strings.TrimPrefix(protein, "p.")
	}
	pStart, pEnd := ResolveProteinPositions(rec.ProteinPosition, protein)
	counts := ResolveAlleleCounts(rec.row)
	end := ResolveEndPosition(rec.ReferenceAllele, allele, rec.StartPosition)
	event := domain.MutationEvent{
		EntrezID:              gene.EntrezID,
		Chromosome:            chromosome,
		StartPosition:         rec.StartPosition,
		EndPosition:           end,
		ReferenceAllele:       rec.ReferenceAllele,
		TumorSeqAllele:        allele,
		ProteinChange:         protein,
		MutationType:          rec.MutationType,
		FunctionalImpactScore: NormalizeOMAScore(rec.FunctionalImpactScore),
		LinkXVar:              rec.LinkXVar,
		LinkPDB:               rec.LinkPDB,
		LinkMSA:               rec.LinkMSA,
		NCBIBuild:             rec.NCBIBuild,
		Strand:                rec.Strand,
		VariantType:           rec.VariantType,
		DBSNPRS:               rec.DBSNPRS,
		DBSNPValStatus:        rec.DBSNPValStatus,
		OncotatorDBSNPRS:      rec.OncotatorDBSNPRS,
		ProteinStart:          pStart,
		ProteinEnd:            pEnd,
		Keyword:               keyword(gene.HugoSymbol, rec.MutationType, protein),
	}
	return Candidate{
		SampleBarcode: rec.TumorSampleBarcode,
		Event:         event,
		Mutation: domain.Mutation{
			EntrezID:                   gene.EntrezID,
			Center:                     rec.Center,
			SequencingPhase:            rec.SequencingPhase,
			SequencingSource:           rec.SequenceSource,
			ValidationStatus:           rec.ValidationStatus,
			ValidationMethod:           rec.ValidationMethod,
			MutationStatus:             rec.MutationStatus,
			VerificationStatus:         rec.VerificationStatus,
			Score:                      rec.Score,
			BAMFile:                    rec.BAMFile,
			Sequencer:                  rec.Sequencer,
			TumorSeqAllele1:            rec.TumorSeqAllele1,
			TumorSeqAllele2:            rec.TumorSeqAllele2,
			MatchedNormSampleBarcode:   rec.MatchedNormSampleBarcode,
			MatchNormSeqAllele1:        rec.MatchNormSeqAllele1,
			MatchNormSeqAllele2:        rec.MatchNormSeqAllele2,
			TumorValidationAllele1:     rec.TumorValidationAllele1,
			TumorValidationAllele2:     rec.TumorValidationAllele2,
			MatchNormValidationAllele1: rec.MatchNormValidationAllele1,
			MatchNormValidationAllele2: rec.MatchNormValidationAllele2,
			TumorAltCount:              counts.TumorAlt,
			TumorRefCount:              counts.TumorRef,
			NormalAltCount:             counts.NormalAlt,
			NormalRefCount:             counts.NormalRef,
		},
	}
}

// keyword groups events for recurrence views: truncating calls by gene,
// missense calls by gene and residue.
func keyword(symbol, mutationType, proteinChange string) string {
	switch strings.ToLower(mutationType) {
	case "nonsense_mutation", "frame_shift_del", "frame_shift_ins", "splice_site", "nonstop_mutation":
		return symbol + " truncating"
	case "missense_mutation":
		if m := proteinPositionRe.FindString(proteinChange); m != "" {
			return symbol + " " + m + " missense"
		}
	case "in_frame_del", "in_frame_ins":
		return symbol + " " + strings.ToLower(mutationType)
	}
	return ""
}
