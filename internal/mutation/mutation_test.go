package mutation

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyloader/pkg/domain"
)

// parseRow builds a record from column/value pairs, adding the required
// columns when the caller leaves them out.
func parseRow(t *testing.T, values map[string]string) Record {
	t.Helper()
	cols := map[string]string{
		"Hugo_Symbol":            "BRAF",
		"Tumor_Sample_Barcode":   "TCGA-AA-3664-01A-01D",
		"Variant_Classification": "Missense_Mutation",
		"Mutation_Status":        "Somatic",
	}
	for k, v := range values {
		cols[k] = v
	}
	names := make([]string, 0, len(cols))
	for k := range cols {
		names = append(names, k)
	}
	sort.Strings(names)
	fields := make([]string, len(names))
	for i, n := range names {
		fields[i] = cols[n]
	}
	h, err := NewHeader(names)
	require.NoError(t, err)
	rec, err := h.Parse(fields)
	require.NoError(t, err)
	return rec
}

func TestHeaderRequiresCoreColumns(t *testing.T) {
	_, err := NewHeader([]string{"Hugo_Symbol", "Variant_Classification"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tumor_sample_barcode")
}

func TestParseRejectsMalformedRows(t *testing.T) {
	h, err := NewHeader([]string{"Hugo_Symbol", "Tumor_Sample_Barcode", "Variant_Classification", "Start_Position"})
	require.NoError(t, err)

	_, err = h.Parse([]string{"BRAF"})
	assert.Error(t, err, "short row")

	_, err = h.Parse([]string{"BRAF", "TCGA-AA-3664-01", "Missense_Mutation", "abc"})
	assert.ErrorContains(t, err, "start_position")

	rec, err := h.Parse([]string{"BRAF", "TCGA-AA-3664-01", "Missense_Mutation", "NA"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.StartPosition)
}

func TestParseFallsBackToHGVSpShort(t *testing.T) {
	rec := parseRow(t, map[string]string{"HGVSp_Short": "p.V600E"})
	assert.Equal(t, "p.V600E", rec.ProteinChange)
}

func TestFilterRulesApplyInOrder(t *testing.T) {
	f := NewFilter(DefaultPromoterWhitelist)
	cases := []struct {
		name     string
		status   string
		mutType  string
		valid    string
		entrez   int64
		accepted bool
	}{
		{"status none", "None", "Missense_Mutation", "", 673, false},
		{"empty status", "", "Missense_Mutation", "", 673, false},
		{"silent", "Somatic", "Silent", "", 673, false},
		{"intron", "Somatic", "intron", "", 673, false},
		{"loh", "LOH", "Missense_Mutation", "", 673, false},
		{"wildtype", "wildtype", "Missense_Mutation", "", 673, false},
		{"redacted", "Somatic", "Missense_Mutation", "Redacted", 673, false},
		{"3 utr", "Somatic", "3'UTR", "", 673, false},
		{"5 flank not whitelisted", "Somatic", "5'Flank", "", 673, false},
		{"igr", "Somatic", "IGR", "", 0, false},
		{"missense", "Somatic", "Missense_Mutation", "", 673, true},
		{"promoter", "Somatic", "5'Flank", "", 7015, true},
	}
	for _, tc := range cases {
		rec := parseRow(t, map[string]string{
			"Mutation_Status":        tc.status,
			"Variant_Classification": tc.mutType,
			"Validation_Status":      tc.valid,
		})
		_, ok := f.Accept(rec, tc.entrez)
		assert.Equal(t, tc.accepted, ok, tc.name)
	}

	c := f.Counts()
	assert.Equal(t, len(cases), c.Decisions)
	assert.Equal(t, 2, c.Accepts)
	assert.Equal(t, 2, c.StatusNone)
	assert.Equal(t, 2, c.SilentOrIntron)
	assert.Equal(t, 2, c.LOHOrWildtype)
	assert.Equal(t, 1, c.Redacted)
	assert.Equal(t, 2, c.UTR)
	assert.Equal(t, 1, c.IGR)
	assert.NoError(t, c.Verify())
}

func TestFilterRewritesWhitelistedPromoter(t *testing.T) {
	f := NewFilter([]int64{7015})
	rec := parseRow(t, map[string]string{"Hugo_Symbol": "TERT", "Variant_Classification": "5'Flank"})
	out, ok := f.Accept(rec, 7015)
	require.True(t, ok)
	assert.Equal(t, PromoterType, out.MutationType)
	assert.Equal(t, "5'Flank", rec.MutationType, "input must not change")
}

func TestFilterCountsVerifyDetectsImbalance(t *testing.T) {
	c := FilterCounts{Decisions: 3, Accepts: 1, UTR: 1}
	assert.Error(t, c.Verify())
	assert.Equal(t, 1, c.Buckets()["utr"])
}

func TestResolveEndPosition(t *testing.T) {
	assert.Equal(t, int64(101), ResolveEndPosition("A", "AT", 100))
	assert.Equal(t, int64(101), ResolveEndPosition("-", "AT", 100))
	assert.Equal(t, int64(100), ResolveEndPosition("C", "T", 100))
}

func TestDeriveEndPositionIgnoresSourceColumn(t *testing.T) {
	deletion := parseRow(t, map[string]string{
		"Start_Position":    "100",
		"End_Position":      "101",
		"Reference_Allele":  "CT",
		"Tumor_Seq_Allele1": "CT",
		"Tumor_Seq_Allele2": "-",
	})
	c := Derive(deletion, domain.Gene{EntrezID: 673, HugoSymbol: "BRAF"}, "7")
	assert.Equal(t, "-", c.Event.TumorSeqAllele)
	assert.Equal(t, int64(100), c.Event.EndPosition)

	insertion := parseRow(t, map[string]string{
		"Start_Position":    "100",
		"End_Position":      "100",
		"Reference_Allele":  "-",
		"Tumor_Seq_Allele1": "-",
		"Tumor_Seq_Allele2": "AT",
	})
	assert.Equal(t, int64(101), Derive(insertion, domain.Gene{EntrezID: 673}, "7").Event.EndPosition)
}

func TestResolveTumorSeqAllele(t *testing.T) {
	assert.Equal(t, "T", ResolveTumorSeqAllele("C", "T", "G"))
	assert.Equal(t, "G", ResolveTumorSeqAllele("C", "C", "G"))
}

func TestResolveProteinChange(t *testing.T) {
	assert.Equal(t, "V600E", ResolveProteinChange("", "", "p.V600E"))
	assert.Equal(t, "G12D", ResolveProteinChange("p.G12D", "G13D", ""))
	assert.Equal(t, DefaultProteinChange, ResolveProteinChange("", "NA", ""))
}

func TestResolveProteinPositions(t *testing.T) {
	start, end := ResolveProteinPositions("600-601/766", "V600E")
	assert.Equal(t, int64(600), start)
	assert.Equal(t, int64(601), end)

	start, end = ResolveProteinPositions("12/189", "G12D")
	assert.Equal(t, int64(12), start)
	assert.Equal(t, int64(12), end)

	start, end = ResolveProteinPositions("", "V600E")
	assert.Equal(t, int64(600), start)
	assert.Equal(t, int64(600), end)

	start, end = ResolveProteinPositions("?-601/766", "V600E")
	assert.Equal(t, int64(600), start)
	assert.Equal(t, int64(601), end)

	start, end = ResolveProteinPositions("", "MUTATED")
	assert.Equal(t, int64(Missing), start)
	assert.Equal(t, int64(Missing), end)
}

func TestResolveAlleleCounts(t *testing.T) {
	direct := parseRow(t, map[string]string{"t_alt_count": "12", "t_ref_count": "30", "n_alt_count": "0", "n_ref_count": "40"})
	assert.Equal(t, AlleleCounts{TumorAlt: 12, TumorRef: 30, NormalAlt: 0, NormalRef: 40}, ResolveAlleleCounts(direct.Row()))

	coverage := parseRow(t, map[string]string{"t_var_cov": "10", "t_tot_cov": "50"})
	counts := ResolveAlleleCounts(coverage.Row())
	assert.Equal(t, 10, counts.TumorAlt)
	assert.Equal(t, 40, counts.TumorRef)
	assert.Equal(t, Missing, counts.NormalAlt)

	vaf := parseRow(t, map[string]string{"t_depth": "80", "t_vaf": "0.26"})
	counts = ResolveAlleleCounts(vaf.Row())
	assert.Equal(t, 21, counts.TumorAlt)
	assert.Equal(t, 59, counts.TumorRef)

	junk := parseRow(t, map[string]string{"t_alt_count": "many", "t_ref_count": ""})
	counts = ResolveAlleleCounts(junk.Row())
	assert.Equal(t, Missing, counts.TumorAlt)
	assert.Equal(t, Missing, counts.TumorRef)
}

func TestNormalizeOMAScore(t *testing.T) {
	for in, want := range map[string]string{
		"high":    "H",
		"H":       "H",
		"Medium":  "M",
		"l":       "L",
		"NEUTRAL": "N",
		"[sent]":  "NA",
		"0.75":    "0.75",
	} {
		assert.Equal(t, want, NormalizeOMAScore(in), in)
	}
}

func TestDeriveBuildsEventAndMutation(t *testing.T) {
	rec := parseRow(t, map[string]string{
		"Center":            "broad.mit.edu",
		"Start_Position":    "140453136",
		"Reference_Allele":  "A",
		"Tumor_Seq_Allele1": "A",
		"Tumor_Seq_Allele2": "T",
		"Protein_Change":    "p.V600E",
		"MA:FImpact":        "high",
		"t_alt_count":       "7",
	})
	c := Derive(rec, domain.Gene{EntrezID: 673, HugoSymbol: "BRAF"}, "7")
	assert.Equal(t, "TCGA-AA-3664-01A-01D", c.SampleBarcode)
	assert.Equal(t, int64(673), c.Event.EntrezID)
	assert.Equal(t, "7", c.Event.Chromosome)
	assert.Equal(t, int64(140453136), c.Event.EndPosition)
	assert.Equal(t, "T", c.Event.TumorSeqAllele)
	assert.Equal(t, "V600E", c.Event.ProteinChange)
	assert.Equal(t, int64(600), c.Event.ProteinStart)
	assert.Equal(t, "H", c.Event.FunctionalImpactScore)
	assert.Equal(t, "BRAF V600 missense", c.Event.Keyword)
	assert.Equal(t, 7, c.Mutation.TumorAltCount)
	assert.Equal(t, Missing, c.Mutation.TumorRefCount)
	assert.Equal(t, "broad.mit.edu", c.Mutation.Center)
}

func TestMergePrefersGermlineAndUnionsCenters(t *testing.T) {
	a := Candidate{
		SampleBarcode: "TCGA-AA-3664-01",
		Event:         domain.MutationEvent{ID: 11, EntrezID: 673, ProteinChange: "V600E"},
		Mutation: domain.Mutation{
			EventID:                  11,
			Center:                   "BI",
			MutationStatus:           "Somatic",
			MatchedNormSampleBarcode: "TCGA-AA-3664-01",
		},
	}
	b := Candidate{
		SampleBarcode: "TCGA-AA-3664-01",
		Event:         domain.MutationEvent{ID: 22, EntrezID: 673, ProteinChange: "V600E"},
		Mutation: domain.Mutation{
			EventID:                  22,
			Center:                   "MSK;NA",
			MutationStatus:           "Germline",
			MatchedNormSampleBarcode: "TCGA-AA-3664-01",
			Sequencer:                "Illumina",
		},
	}
	merged := Merge(a, b)
	assert.Equal(t, "BI;MSK", merged.Mutation.Center)
	assert.Equal(t, "Germline", merged.Mutation.MutationStatus)
	assert.Equal(t, "Illumina", merged.Mutation.Sequencer)
	assert.Equal(t, int64(11), merged.Event.ID)
	assert.Equal(t, int64(11), merged.Mutation.EventID)

	assert.Equal(t, "BI", a.Mutation.Center, "inputs stay untouched")
	assert.Equal(t, "MSK;NA", b.Mutation.Center)
}

func TestMergeReplacementRules(t *testing.T) {
	base := Candidate{Mutation: domain.Mutation{MutationStatus: "Germline", ValidationStatus: "Unknown", Center: "BI"}}

	somatic := Candidate{Mutation: domain.Mutation{MutationStatus: "Somatic", Center: "BI"}}
	assert.Equal(t, "Germline", Merge(base, somatic).Mutation.MutationStatus, "somatic never replaces germline")

	valid := Candidate{Mutation: domain.Mutation{MutationStatus: "Germline", ValidationStatus: "Validated"}}
	assert.Equal(t, "Validated", Merge(base, valid).Mutation.ValidationStatus)

	normal := Candidate{Mutation: domain.Mutation{MutationStatus: "Germline", ValidationStatus: "Unknown", MatchedNormSampleBarcode: "TCGA-AA-3664-11"}}
	assert.Equal(t, "TCGA-AA-3664-11", Merge(base, normal).Mutation.MatchedNormSampleBarcode)

	tumorNormal := Candidate{Mutation: domain.Mutation{MutationStatus: "Germline", ValidationStatus: "Unknown", MatchedNormSampleBarcode: "TCGA-AA-3664-01", Sequencer: "x"}}
	assert.Empty(t, Merge(base, tumorNormal).Mutation.Sequencer)
}

func TestMergerCollapsesDuplicates(t *testing.T) {
	m := NewMerger()
	event := domain.MutationEvent{EntrezID: 673, Chromosome: "7", StartPosition: 1, EndPosition: 1, ProteinChange: "V600E"}
	first := Candidate{SampleBarcode: "S1", Event: event, Mutation: domain.Mutation{Center: "BI", MutationStatus: "Somatic"}}
	dup := Candidate{SampleBarcode: "S1", Event: event, Mutation: domain.Mutation{Center: "WUSM", MutationStatus: "Somatic"}}
	other := Candidate{SampleBarcode: "S2", Event: event, Mutation: domain.Mutation{Center: "BI", MutationStatus: "Somatic"}}

	assert.False(t, m.Add(first))
	assert.True(t, m.Add(dup))
	assert.False(t, m.Add(other))
	require.Equal(t, 2, m.Len())
	got := m.Candidates()
	assert.Equal(t, "BI;WUSM", got[0].Mutation.Center)
	assert.Equal(t, "S2", got[1].SampleBarcode)
}

func TestMergerCollapsesAliquotsOfOneSample(t *testing.T) {
	m := NewMerger()
	event := domain.MutationEvent{EntrezID: 7157, Chromosome: "17", StartPosition: 7577120, EndPosition: 7577120, ProteinChange: "R273H"}
	somatic := Candidate{SampleBarcode: "TCGA-A1-A0SB-01A-11D", Event: event, Mutation: domain.Mutation{Center: "BI", MutationStatus: "Somatic"}}
	germline := Candidate{SampleBarcode: "TCGA-A1-A0SB-01B-21D", Event: event, Mutation: domain.Mutation{Center: "MSK", MutationStatus: "Germline"}}
	metastasis := Candidate{SampleBarcode: "TCGA-A1-A0SB-06A-11D", Event: event, Mutation: domain.Mutation{Center: "BI", MutationStatus: "Somatic"}}

	assert.False(t, m.Add(somatic))
	assert.True(t, m.Add(germline))
	assert.False(t, m.Add(metastasis), "a different sample type is a different sample")
	require.Equal(t, 2, m.Len())
	got := m.Candidates()
	assert.Equal(t, "Germline", got[0].Mutation.MutationStatus)
	assert.Equal(t, "BI;MSK", got[0].Mutation.Center)
}
