// Package stages implements one pipeline.Stage per importable datatype.
// Stages read staging files through discovery tables and write through the
// domain store; record level problems are counted as skips on the result.
package stages

import (
	"errors"
	"strings"

	"studyloader/internal/discovery"
	"studyloader/internal/pipeline"
)

// ErrConflictingGeneticProfile is returned when a profile matrix names a
// genetic profile that already exists. It is fatal for the run.
var ErrConflictingGeneticProfile = errors.New("genetic profile already exists")

// Skip reasons shared by several stages.
const (
	reasonBadHeader      = "bad_header"
	reasonBlankLine      = "blank_line"
	reasonMalformedRow   = "malformed_row"
	reasonNormalSample   = "normal_sample"
	reasonUnresolvedGene = "unresolved_gene"
	reasonDuplicateGene  = "duplicate_gene"
	reasonFiltered       = "filtered"
)

// Default returns a stage for every catalog datatype, in catalog order.
// Mutation calls in 5'Flank regions are kept only for promoterWhitelist genes.
func Default(promoterWhitelist []int64) []pipeline.Stage {
	return []pipeline.Stage{
		NewClinical(discovery.ClinicalPatient),
		NewClinical(discovery.ClinicalSample),
		NewClinical(discovery.Clinical),
		NewTimeline(),
		NewMutation(promoterWhitelist),
		NewMatrix(discovery.CNA),
		NewSegment(),
		NewMatrix(discovery.MRNAExpression),
		NewMatrix(discovery.Methylation),
		NewMatrix(discovery.RPPA),
	}
}

func isMissing(v string) bool {
	return v == "" || strings.EqualFold(v, "NA")
}

// field returns the trimmed value at i, or "" when the row is short or i < 0.
func field(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

// column returns the position of the first header name present, or -1.
func column(idx map[string]int, names ...string) int {
	for _, n := range names {
		if i, ok := idx[n]; ok {
			return i
		}
	}
	return -1
}

func logger(in pipeline.StageInput) pipeline.Logger {
	if in.Logger == nil {
		return pipeline.NopLogger()
	}
	return in.Logger
}
