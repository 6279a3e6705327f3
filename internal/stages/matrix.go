package stages

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"studyloader/internal/barcode"
	"studyloader/internal/discovery"
	"studyloader/internal/genes"
	"studyloader/internal/pipeline"
	"studyloader/pkg/domain"
)

// Gene identifying columns of a profile matrix, uppercased.
const (
	colHugoSymbol    = "HUGO_SYMBOL"
	colGeneSymbol    = "GENE_SYMBOL"
	colEntrezGeneID  = "ENTREZ_GENE_ID"
	colLocusID       = "LOCUS ID"
	colCytoband      = "CYTOBAND"
	colCompositeRef  = "COMPOSITE.ELEMENT.REF"
	colGenericID     = "ID"
	missingValue     = "NA"
	compositeDivider = "|"
)

// phosphoSiteRe finds the residues of a phospho-specific antibody, e.g.
// "AKT1_pS473" or "GSK3A_pS21_S9".
var phosphoSiteRe = regexp.MustCompile(`_p([STY][0-9]+(?:_[STY][0-9]+)*)$`)

// MatrixStage imports a gene by sample matrix into a new genetic profile.
type MatrixStage struct {
	datatype string
	defaults profileDefaults
}

// NewMatrix returns the stage for cna, mrna-expression, methylation or rppa.
func NewMatrix(datatype string) *MatrixStage {
	return &MatrixStage{datatype: datatype, defaults: matrixDefaults[datatype]}
}

// Datatype implements pipeline.Stage.
func (s *MatrixStage) Datatype() string { return s.datatype }

// Run implements pipeline.Stage. Only the first data file is read since a
// profile has a single sample column order.
func (s *MatrixStage) Run(ctx context.Context, in pipeline.StageInput) (pipeline.StageResult, error) {
	res := pipeline.NewStageResult(s.datatype)
	profile, err := ensureProfile(ctx, in, s.defaults, false)
	if err != nil {
		return res, err
	}
	res.ProfileID = profile.ID
	files := in.Record.DataFiles
	for _, extra := range files[min(1, len(files)):] {
		logger(in).Warn("extra profile data file ignored", "file", extra, "profile", profile.StableID)
		res.Skip("extra_data_file")
	}
	if len(files) == 0 {
		return res, nil
	}
	m := &matrixImport{in: in, profile: profile, res: &res, phospho: map[string]domain.Gene{}}
	err = m.importFile(ctx, files[0])
	return res, err
}

type matrixImport struct {
	in      pipeline.StageInput
	profile domain.GeneticProfile
	res     *pipeline.StageResult
	phospho map[string]domain.Gene

	symbolCol, entrezCol, cytobandCol, compositeCol int
}

func (m *matrixImport) importFile(ctx context.Context, key string) error {
	t, err := discovery.OpenTable(ctx, m.in.Staging, key)
	if err != nil {
		return err
	}
	defer func() { _ = t.Close() }()

	idx := t.ColumnIndex()
	m.symbolCol = column(idx, colHugoSymbol, colGeneSymbol, colGenericID)
	m.entrezCol = column(idx, colEntrezGeneID, colLocusID)
	m.cytobandCol = column(idx, colCytoband)
	m.compositeCol = column(idx, colCompositeRef)
	if m.symbolCol < 0 && m.entrezCol < 0 && m.compositeCol < 0 {
		logger(m.in).Error("profile file has no gene column", "file", key)
		m.res.Skip(reasonBadHeader)
		return nil
	}
	sampleCols, err := m.sampleColumns(ctx, t.Header)
	if err != nil {
		return err
	}
	if len(sampleCols) == 0 {
		logger(m.in).Error("profile file has no sample columns", "file", key)
		m.res.Skip("no_samples")
		return nil
	}

	seen := map[int64]struct{}{}
	var rows []domain.GeneticAlteration
	for t.Next() {
		if t.Blank() {
			m.res.Skip(reasonBlankLine)
			continue
		}
		f := t.Fields()
		if len(f) < len(t.Header) {
			m.res.Skip(reasonMalformedRow)
			continue
		}
		rowGenes, err := m.rowGenes(ctx, f)
		if err != nil {
			return err
		}
		if len(rowGenes) == 0 {
			m.res.Skip(reasonUnresolvedGene)
			continue
		}
		values := make([]string, len(sampleCols))
		for i, c := range sampleCols {
			if values[i] = field(f, c); values[i] == "" {
				values[i] = missingValue
			}
		}
		for _, g := range rowGenes {
			if _, dup := seen[g.EntrezID]; dup {
				m.res.Skip(reasonDuplicateGene)
				continue
			}
			seen[g.EntrezID] = struct{}{}
			rows = append(rows, domain.GeneticAlteration{ProfileID: m.profile.ID, EntrezID: g.EntrezID, Values: values})
			m.res.Imported++
		}
	}
	if err := t.Err(); err != nil {
		return err
	}
	if err := m.in.Store.AddGeneticAlterations(ctx, rows); err != nil {
		return fmt.Errorf("add genetic alterations from %s: %w", key, err)
	}
	return nil
}

// sampleColumns creates the samples named by the header and returns the
// positions of their value columns. Normal samples and repeats are dropped.
func (m *matrixImport) sampleColumns(ctx context.Context, header []string) ([]int, error) {
	reg := newCases(m.in.Store, m.in.Study.ID)
	var (
		cols []int
		ids  []int64
	)
	seen := map[int64]struct{}{}
	for i, name := range header {
		code := strings.TrimSpace(name)
		if code == "" || discovery.IsStableIDColumn(code) {
			continue
		}
		if barcode.IsNormalSample(code) {
			m.res.Skip(reasonNormalSample)
			continue
		}
		smp, err := reg.sample(ctx, code, "")
		if err != nil {
			return nil, err
		}
		if _, dup := seen[smp.ID]; dup {
			m.res.Skip("duplicate_sample")
			continue
		}
		seen[smp.ID] = struct{}{}
		cols = append(cols, i)
		ids = append(ids, smp.ID)
		m.res.AddCase(smp.ID)
	}
	if err := linkSamples(ctx, m.in, m.profile.ID, ids); err != nil {
		return nil, err
	}
	return cols, nil
}

// rowGenes resolves the genes a matrix row measures. Composite element
// references may name several genes; phospho-specific antibodies map to
// their synthetic phospho genes.
func (m *matrixImport) rowGenes(ctx context.Context, f []string) ([]domain.Gene, error) {
	if m.compositeCol >= 0 {
		return m.compositeGenes(ctx, field(f, m.compositeCol))
	}
	q := genes.Query{Symbol: field(f, m.symbolCol)}
	if id, err := strconv.ParseInt(field(f, m.entrezCol), 10, 64); err == nil && id > 0 {
		q.EntrezID = id
	}
	if chr, ok := genes.ChromosomeFromCytoband(field(f, m.cytobandCol)); ok {
		q.Chromosome = chr
	}
	if m.in.Genes == nil {
		return nil, nil
	}
	g, ok := m.in.Genes.Resolve(q)
	if !ok {
		return nil, nil
	}
	return []domain.Gene{g}, nil
}

func (m *matrixImport) compositeGenes(ctx context.Context, ref string) ([]domain.Gene, error) {
	symbols, antibody, ok := strings.Cut(ref, compositeDivider)
	if !ok || m.in.Genes == nil {
		return nil, nil
	}
	residue := ""
	if sm := phosphoSiteRe.FindStringSubmatch(strings.TrimSpace(antibody)); sm != nil {
		residue = sm[1]
	}
	var out []domain.Gene
	for _, sym := range strings.Fields(symbols) {
		base, ok := m.in.Genes.ResolveSymbol(sym)
		if !ok {
			continue
		}
		if residue == "" {
			out = append(out, base)
			continue
		}
		g, err := m.phosphoGene(ctx, base, residue)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// phosphoGene stores the synthetic gene once per run and reuses it.
func (m *matrixImport) phosphoGene(ctx context.Context, base domain.Gene, residue string) (domain.Gene, error) {
	g := genes.PhosphoGene(base, residue)
	if cached, ok := m.phospho[g.HugoSymbol]; ok {
		return cached, nil
	}
	stored, err := m.in.Store.AddGene(ctx, g)
	if err != nil {
		return domain.Gene{}, fmt.Errorf("add phospho gene %s: %w", g.HugoSymbol, err)
	}
	m.phospho[g.HugoSymbol] = stored
	return stored, nil
}
