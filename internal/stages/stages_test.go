package stages

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyloader/internal/blob"
	"studyloader/internal/discovery"
	"studyloader/internal/genes"
	"studyloader/internal/infra/persistence/memory"
	"studyloader/internal/pipeline"
	"studyloader/pkg/domain"
)

const studyID = "brca_tcga"

func testResolver() *genes.Resolver {
	return genes.NewResolver(genes.NewCatalog([]domain.Gene{
		{EntrezID: 207, HugoSymbol: "AKT1", Type: genes.TypeProteinCoding, Cytoband: "14q32.33"},
		{EntrezID: 208, HugoSymbol: "AKT2", Type: genes.TypeProteinCoding, Cytoband: "19q13.2"},
		{EntrezID: 1956, HugoSymbol: "EGFR", Type: genes.TypeProteinCoding, Cytoband: "7p11.2"},
		{EntrezID: 7015, HugoSymbol: "TERT", Type: genes.TypeProteinCoding, Cytoband: "5p15.33"},
		{EntrezID: 7157, HugoSymbol: "TP53", Type: genes.TypeProteinCoding, Cytoband: "17p13.1"},
	}), nil)
}

type fixture struct {
	store   *memory.Store
	staging blob.Store
	study   domain.Study
	records map[string]discovery.Record
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	ctx := context.Background()
	st := blob.NewMemory()
	for k, v := range files {
		_, err := st.Put(ctx, k, strings.NewReader(v), "text/plain")
		require.NoError(t, err)
	}
	recs, err := discovery.Discover(ctx, st, studyID)
	require.NoError(t, err)
	store := memory.NewStore()
	study, err := store.AddStudy(ctx, domain.Study{StableID: studyID, Name: "Breast Invasive Carcinoma", ReferenceGenomeID: "hg19"})
	require.NoError(t, err)
	f := &fixture{store: store, staging: st, study: study, records: map[string]discovery.Record{}}
	for _, r := range recs {
		f.records[r.Datatype.Name] = r
	}
	return f
}

func (f *fixture) input(t *testing.T, datatype string) pipeline.StageInput {
	t.Helper()
	rec := f.records[datatype]
	require.True(t, rec.Ready, "datatype %s not ready: %v", datatype, rec.Skip)
	return pipeline.StageInput{
		RunID:   "run-1",
		Study:   f.study,
		Record:  rec,
		Staging: f.staging,
		Store:   f.store,
		Genes:   testResolver(),
		Logger:  pipeline.NopLogger(),
	}
}

func (f *fixture) run(t *testing.T, stage pipeline.Stage) pipeline.StageResult {
	t.Helper()
	res, err := stage.Run(context.Background(), f.input(t, stage.Datatype()))
	require.NoError(t, err)
	return res
}

func (f *fixture) sample(t *testing.T, stableID string) domain.Sample {
	t.Helper()
	s, ok, err := f.store.GetSampleByStudy(context.Background(), stableID, f.study.ID)
	require.NoError(t, err)
	require.True(t, ok, "sample %s missing", stableID)
	return s
}

func (f *fixture) patient(t *testing.T, stableID string) domain.Patient {
	t.Helper()
	p, ok, err := f.store.GetPatientByStudy(context.Background(), stableID, f.study.ID)
	require.NoError(t, err)
	require.True(t, ok, "patient %s missing", stableID)
	return p
}

func lines(rows ...string) string { return strings.Join(rows, "\n") + "\n" }

func TestDefaultCoversCatalog(t *testing.T) {
	got := map[string]int{}
	for _, s := range Default(mutationWhitelist) {
		got[s.Datatype()]++
	}
	for _, dt := range discovery.Catalog {
		assert.Equal(t, 1, got[dt.Name], dt.Name)
	}
	assert.Len(t, got, len(discovery.Catalog))
}

var mutationWhitelist = []int64{7015}

func TestFieldAndColumnHelpers(t *testing.T) {
	assert.Equal(t, "x", field([]string{" x "}, 0))
	assert.Empty(t, field([]string{"x"}, 1))
	assert.Empty(t, field([]string{"x"}, -1))
	assert.Equal(t, 2, column(map[string]int{"B": 2}, "A", "B"))
	assert.Equal(t, -1, column(map[string]int{}, "A"))
	assert.True(t, isMissing("na"))
	assert.False(t, isMissing("0"))
}
