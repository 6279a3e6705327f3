package stages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyloader/internal/discovery"
	"studyloader/internal/genes"
	"studyloader/pkg/domain"
)

func cnaFiles() map[string]string {
	return map[string]string{
		"meta_CNA.txt": "stable_id: gistic\ngenetic_alteration_type: COPY_NUMBER_ALTERATION\ndatatype: DISCRETE\nshow_profile_in_analysis_tab: true\ndata_filename: data_CNA.txt\n",
		"data_CNA.txt": lines(
			"Hugo_Symbol\tEntrez_Gene_Id\tTCGA-A1-A0SB-01\tTCGA-A1-A0SB-11\tTCGA-A1-A0SD-01",
			"TP53\t7157\t-1\t0\t",
			"TP53\t7157\t0\t0\t0",
			"NOTAGENE\t\t1\t1\t1",
			"\t1956\t2\t0\t1",
			"EGFR\t1956",
		),
	}
}

func TestMatrixStageCopyNumber(t *testing.T) {
	f := newFixture(t, cnaFiles())
	res := f.run(t, NewMatrix(discovery.CNA))
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.SkipReasons[reasonNormalSample])
	assert.Equal(t, 1, res.SkipReasons[reasonDuplicateGene])
	assert.Equal(t, 1, res.SkipReasons[reasonUnresolvedGene])
	assert.Equal(t, 1, res.SkipReasons[reasonMalformedRow])

	profile, ok, err := f.store.GetGeneticProfile(context.Background(), "brca_tcga_gistic")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "DISCRETE", profile.Datatype)
	assert.True(t, profile.ShowInAnalysisTab)

	a0sb := f.sample(t, "TCGA-A1-A0SB-01")
	a0sd := f.sample(t, "TCGA-A1-A0SD-01")
	assert.Equal(t, []int64{a0sb.ID, a0sd.ID}, f.store.ProfileSamples(profile.ID))
	assert.Equal(t, []int64{a0sb.ID, a0sd.ID}, res.CaseList())

	rows := f.store.Alterations(profile.ID)
	require.Len(t, rows, 2)
	assert.Equal(t, domain.GeneticAlteration{ProfileID: profile.ID, EntrezID: 7157, Values: []string{"-1", "NA"}}, rows[0])
	assert.Equal(t, int64(1956), rows[1].EntrezID)
	assert.Equal(t, []string{"2", "1"}, rows[1].Values)
}

func TestMatrixStageProfileConflictIsFatal(t *testing.T) {
	f := newFixture(t, cnaFiles())
	f.run(t, NewMatrix(discovery.CNA))

	_, err := NewMatrix(discovery.CNA).Run(context.Background(), f.input(t, discovery.CNA))
	require.ErrorIs(t, err, ErrConflictingGeneticProfile)
}

func TestMatrixStageDefaultsAndExtraFiles(t *testing.T) {
	f := newFixture(t, map[string]string{
		"meta_expression.txt":       "data_filename: data_expression.txt;data_expression_extra.txt\n",
		"data_expression.txt":       lines("Hugo_Symbol\tTCGA-A1-A0SB-01", "TP53\t1.25"),
		"data_expression_extra.txt": lines("Hugo_Symbol\tTCGA-A1-A0SE-01", "TP53\t2.5"),
	})
	res := f.run(t, NewMatrix(discovery.MRNAExpression))
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.SkipReasons["extra_data_file"])

	profile, ok, err := f.store.GetGeneticProfile(context.Background(), "brca_tcga_mrna")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "MRNA_EXPRESSION", profile.AlterationType)
	assert.Equal(t, "CONTINUOUS", profile.Datatype)
}

func TestMatrixStageWithoutSampleColumns(t *testing.T) {
	f := newFixture(t, map[string]string{
		"meta_methylation.txt": "data_filename: data_methylation.txt\n",
		"data_methylation.txt": lines("Hugo_Symbol\tEntrez_Gene_Id\tTCGA-A1-A0SB-11", "TP53\t7157\t0.2"),
	})
	res := f.run(t, NewMatrix(discovery.Methylation))
	assert.Zero(t, res.Imported)
	assert.Equal(t, 1, res.SkipReasons["no_samples"])
}

func TestMatrixStageRPPA(t *testing.T) {
	f := newFixture(t, map[string]string{
		"meta_rppa.txt": "stable_id: rppa\ndata_filename: data_rppa.txt\n",
		"data_rppa.txt": lines(
			"Composite.Element.REF\tTCGA-A1-A0SB-01",
			"AKT1 AKT2|Akt_pS473\t0.5",
			"EGFR|EGFR\t1.2",
			"AKT1 AKT2|Akt_pS473\t0.7",
			"MISSING|Foo\t0.1",
		),
	})
	res := f.run(t, NewMatrix(discovery.RPPA))
	assert.Equal(t, 3, res.Imported)
	assert.Equal(t, 2, res.SkipReasons[reasonDuplicateGene])
	assert.Equal(t, 1, res.SkipReasons[reasonUnresolvedGene])

	all, err := f.store.ListGenes(context.Background())
	require.NoError(t, err)
	phospho := map[string]domain.Gene{}
	for _, g := range all {
		if g.Type == genes.TypePhosphoprotein {
			phospho[g.HugoSymbol] = g
		}
	}
	require.Len(t, phospho, 2)
	assert.Less(t, phospho["AKT1_S473"].EntrezID, int64(0))
	assert.Less(t, phospho["AKT2_S473"].EntrezID, int64(0))

	rows := f.store.Alterations(res.ProfileID)
	require.Len(t, rows, 3)
	assert.Equal(t, phospho["AKT1_S473"].EntrezID, rows[0].EntrezID)
	assert.Equal(t, phospho["AKT2_S473"].EntrezID, rows[1].EntrezID)
	assert.Equal(t, int64(1956), rows[2].EntrezID)
}

func TestPhosphoSitePattern(t *testing.T) {
	for antibody, want := range map[string]string{
		"Akt_pS473":         "S473",
		"GSK3A_pS21_S9":     "S21_S9",
		"EGFR_pY1068":       "Y1068",
		"Akt":               "",
		"Akt_pS473_Caution": "",
	} {
		got := ""
		if m := phosphoSiteRe.FindStringSubmatch(antibody); m != nil {
			got = m[1]
		}
		assert.Equal(t, want, got, antibody)
	}
}
