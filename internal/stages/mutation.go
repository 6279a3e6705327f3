package stages

import (
	"context"
	"fmt"
	"strings"

	"studyloader/internal/barcode"
	"studyloader/internal/discovery"
	"studyloader/internal/genes"
	"studyloader/internal/mutation"
	"studyloader/internal/pipeline"
	"studyloader/pkg/domain"
)

// unknownSymbol marks MAF rows outside any gene.
const unknownSymbol = "Unknown"

// MutationStage imports mutation annotation files into one mutation profile.
type MutationStage struct {
	promoterWhitelist []int64
}

// NewMutation returns the mutation stage. 5'Flank calls survive filtering
// only for genes in promoterWhitelist.
func NewMutation(promoterWhitelist []int64) *MutationStage {
	return &MutationStage{promoterWhitelist: append([]int64(nil), promoterWhitelist...)}
}

// Datatype implements pipeline.Stage.
func (s *MutationStage) Datatype() string { return discovery.Mutation }

// Run implements pipeline.Stage. Every data file is filtered and merged
// before anything is written, so duplicate calls across files collapse.
func (s *MutationStage) Run(ctx context.Context, in pipeline.StageInput) (pipeline.StageResult, error) {
	res := pipeline.NewStageResult(discovery.Mutation)
	log := logger(in)
	profile, err := ensureProfile(ctx, in, mutationDefaults, true)
	if err != nil {
		return res, err
	}
	res.ProfileID = profile.ID

	filter := mutation.NewFilter(s.promoterWhitelist)
	merger := mutation.NewMerger()
	duplicates := 0
	for _, key := range in.Record.DataFiles {
		n, err := s.readFile(ctx, in, key, filter, merger, &res)
		if err != nil {
			return res, err
		}
		duplicates += n
	}
	counts := filter.Counts()
	if err := counts.Verify(); err != nil {
		log.Error("mutation filter tallies inconsistent", "error", err)
	}
	for bucket, n := range counts.Buckets() {
		res.Buckets[bucket] = n
	}
	log.Debug("mutation filter summary", "counts", counts.String(), "merged_duplicates", duplicates)

	if err := s.write(ctx, in, profile, merger.Candidates(), &res); err != nil {
		return res, err
	}
	return res, nil
}

// readFile feeds accepted rows of one MAF into the merger and returns the
// number of rows merged into an earlier call.
func (s *MutationStage) readFile(ctx context.Context, in pipeline.StageInput, key string, filter *mutation.Filter, merger *mutation.Merger, res *pipeline.StageResult) (int, error) {
	t, err := discovery.OpenTable(ctx, in.Staging, key)
	if err != nil {
		return 0, err
	}
	defer func() { _ = t.Close() }()

	header, err := mutation.NewHeader(t.Header)
	if err != nil {
		logger(in).Error("mutation file rejected", "file", key, "error", err)
		res.Skip(reasonBadHeader)
		return 0, nil
	}
	duplicates := 0
	for t.Next() {
		if t.Blank() {
			res.Skip(reasonBlankLine)
			continue
		}
		rec, err := header.Parse(t.Fields())
		if err != nil {
			res.Skip(reasonMalformedRow)
			continue
		}
		if barcode.IsNormalSample(rec.TumorSampleBarcode) {
			res.Skip(reasonNormalSample)
			continue
		}
		gene, ok := s.resolveGene(in.Genes, rec)
		if !ok {
			logger(in).Debug("mutation gene unresolved", "file", key, "line", t.Line(), "symbol", rec.HugoSymbol, "entrez_id", rec.EntrezID)
			res.Skip(reasonUnresolvedGene)
			continue
		}
		accepted, ok := filter.Accept(rec, gene.EntrezID)
		if !ok {
			res.Skip(reasonFiltered)
			continue
		}
		chr, ok := genes.NormalizeChromosome(accepted.Chromosome)
		if !ok {
			if chr, ok = genes.Chromosome(gene); !ok {
				chr = accepted.Chromosome
			}
		}
		if merger.Add(mutation.Derive(accepted, gene, chr)) {
			duplicates++
		}
	}
	return duplicates, t.Err()
}

// resolveGene maps a MAF row to its gene. Rows that resolve to nothing but
// are intergenic keep a zero entrez id.
func (s *MutationStage) resolveGene(r *genes.Resolver, rec mutation.Record) (domain.Gene, bool) {
	if r != nil {
		q := genes.Query{EntrezID: rec.EntrezID, Symbol: rec.HugoSymbol, Chromosome: rec.Chromosome}
		if g, ok := r.Resolve(q); ok {
			return g, true
		}
	}
	if strings.EqualFold(rec.HugoSymbol, unknownSymbol) || strings.HasPrefix(strings.ToUpper(rec.MutationType), "IGR") {
		return domain.Gene{HugoSymbol: unknownSymbol}, true
	}
	return domain.Gene{}, false
}

func (s *MutationStage) write(ctx context.Context, in pipeline.StageInput, profile domain.GeneticProfile, candidates []mutation.Candidate, res *pipeline.StageResult) error {
	reg := newCases(in.Store, in.Study.ID)
	var (
		rows    []domain.Mutation
		samples []int64
	)
	seen := map[int64]struct{}{}
	for _, c := range candidates {
		smp, err := reg.sample(ctx, c.SampleBarcode, "")
		if err != nil {
			return err
		}
		event, err := in.Store.AddMutationEvent(ctx, c.Event)
		if err != nil {
			return fmt.Errorf("add mutation event: %w", err)
		}
		m := c.Mutation
		m.EventID, m.ProfileID, m.SampleID = event.ID, profile.ID, smp.ID
		rows = append(rows, m)
		res.AddCase(smp.ID)
		if _, ok := seen[smp.ID]; !ok {
			seen[smp.ID] = struct{}{}
			samples = append(samples, smp.ID)
		}
	}
	if err := linkSamples(ctx, in, profile.ID, samples); err != nil {
		return err
	}
	if err := in.Store.AddMutations(ctx, rows); err != nil {
		return fmt.Errorf("add mutations: %w", err)
	}
	if _, err := in.Store.CalculateMutationCount(ctx, profile.ID); err != nil {
		return fmt.Errorf("calculate mutation counts: %w", err)
	}
	res.Imported += len(rows)
	return nil
}
