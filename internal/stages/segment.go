package stages

import (
	"context"
	"fmt"
	"strconv"

	"studyloader/internal/barcode"
	"studyloader/internal/discovery"
	"studyloader/internal/genes"
	"studyloader/internal/pipeline"
	"studyloader/pkg/domain"
)

// Segment file columns as they appear in the header, uppercased.
const (
	colSegSample  = "ID"
	colSegChrom   = "CHROM"
	colSegStart   = "LOC.START"
	colSegEnd     = "LOC.END"
	colSegNumMark = "NUM.MARK"
	colSegMean    = "SEG.MEAN"
)

// SegmentStage imports segmented copy-number calls.
type SegmentStage struct{}

// NewSegment returns the copy-number segment stage.
func NewSegment() *SegmentStage { return &SegmentStage{} }

// Datatype implements pipeline.Stage.
func (s *SegmentStage) Datatype() string { return discovery.CNASegment }

// Run implements pipeline.Stage. Each data file is registered as a segment
// file of the study before its rows are read.
func (s *SegmentStage) Run(ctx context.Context, in pipeline.StageInput) (pipeline.StageResult, error) {
	res := pipeline.NewStageResult(discovery.CNASegment)
	reg := newCases(in.Store, in.Study.ID)
	for _, key := range in.Record.DataFiles {
		if err := s.importFile(ctx, in, reg, key, &res); err != nil {
			return res, err
		}
	}
	return res, nil
}

type segmentColumns struct {
	sample, chrom, start, end, numMark, mean int
}

func (s *SegmentStage) importFile(ctx context.Context, in pipeline.StageInput, reg *cases, key string, res *pipeline.StageResult) error {
	t, err := discovery.OpenTable(ctx, in.Staging, key)
	if err != nil {
		return err
	}
	defer func() { _ = t.Close() }()

	idx := t.ColumnIndex()
	cols := segmentColumns{
		sample:  column(idx, colSegSample),
		chrom:   column(idx, colSegChrom),
		start:   column(idx, colSegStart),
		end:     column(idx, colSegEnd),
		numMark: column(idx, colSegNumMark),
		mean:    column(idx, colSegMean),
	}
	if cols.sample < 0 || cols.chrom < 0 || cols.start < 0 || cols.end < 0 || cols.mean < 0 {
		logger(in).Error("segment file lacks required columns", "file", key)
		res.Skip(reasonBadHeader)
		return nil
	}
	meta := in.Record.Meta
	file, err := in.Store.AddCopyNumberSegmentFile(ctx, domain.CopyNumberSegmentFile{
		StudyID:           in.Study.ID,
		ReferenceGenomeID: meta.GetOrDefault(discovery.PropReferenceGenome, in.Study.ReferenceGenomeID),
		Description:       meta.GetOrDefault(discovery.PropDescription, ""),
		Filename:          key,
	})
	if err != nil {
		return fmt.Errorf("add segment file %s: %w", key, err)
	}
	logger(in).Debug("segment file registered", "file", key, "segment_file_id", file.ID)

	var segments []domain.CopyNumberSegment
	for t.Next() {
		if t.Blank() {
			res.Skip(reasonBlankLine)
			continue
		}
		f := t.Fields()
		code := field(f, cols.sample)
		if code == "" {
			res.Skip(reasonMalformedRow)
			continue
		}
		if barcode.IsNormalSample(code) {
			res.Skip(reasonNormalSample)
			continue
		}
		seg, ok := parseSegment(f, cols)
		if !ok {
			res.Skip(reasonMalformedRow)
			continue
		}
		smp, err := reg.sample(ctx, code, "")
		if err != nil {
			return err
		}
		seg.StudyID, seg.SampleID = in.Study.ID, smp.ID
		segments = append(segments, seg)
		res.AddCase(smp.ID)
		res.Imported++
	}
	if err := t.Err(); err != nil {
		return err
	}
	if err := in.Store.AddCopyNumberSegments(ctx, segments); err != nil {
		return fmt.Errorf("add segments from %s: %w", key, err)
	}
	return nil
}

// parseSegment decodes the positional columns. A missing probe count is zero.
func parseSegment(f []string, cols segmentColumns) (domain.CopyNumberSegment, bool) {
	chr, ok := genes.NormalizeChromosome(field(f, cols.chrom))
	if !ok {
		return domain.CopyNumberSegment{}, false
	}
	start, err := strconv.ParseInt(field(f, cols.start), 10, 64)
	if err != nil {
		return domain.CopyNumberSegment{}, false
	}
	end, err := strconv.ParseInt(field(f, cols.end), 10, 64)
	if err != nil || end < start {
		return domain.CopyNumberSegment{}, false
	}
	mean, err := strconv.ParseFloat(field(f, cols.mean), 64)
	if err != nil {
		return domain.CopyNumberSegment{}, false
	}
	probes := 0
	if v := field(f, cols.numMark); !isMissing(v) {
		if probes, err = strconv.Atoi(v); err != nil {
			return domain.CopyNumberSegment{}, false
		}
	}
	return domain.CopyNumberSegment{Chr: chr, Start: start, End: end, NumProbes: probes, SegMean: mean}, true
}
