package stages

import (
	"context"
	"errors"
	"fmt"

	"studyloader/internal/discovery"
	"studyloader/internal/pipeline"
	"studyloader/pkg/domain"
)

// profileDefaults fill meta file properties a datatype may omit.
type profileDefaults struct {
	stableID       string
	alterationType string
	datatype       string
	name           string
}

var matrixDefaults = map[string]profileDefaults{
	discovery.CNA:            {"gistic", "COPY_NUMBER_ALTERATION", "DISCRETE", "Putative copy-number alterations"},
	discovery.MRNAExpression: {"mrna", "MRNA_EXPRESSION", "CONTINUOUS", "mRNA expression"},
	discovery.Methylation:    {"methylation_hm27", "METHYLATION", "CONTINUOUS", "Methylation"},
	discovery.RPPA:           {"rppa", "PROTEIN_ARRAY_PROTEIN_LEVEL", "LOG2-VALUE", "Protein expression (RPPA)"},
}

var mutationDefaults = profileDefaults{"mutations", "MUTATION_EXTENDED", "MAF", "Mutations"}

// ensureProfile creates the stage's genetic profile from its meta file. An
// existing profile of the same study is returned when reuse is set; any
// other collision is ErrConflictingGeneticProfile.
func ensureProfile(ctx context.Context, in pipeline.StageInput, def profileDefaults, reuse bool) (domain.GeneticProfile, error) {
	meta := in.Record.Meta
	stableID := discovery.ProfileStableID(in.Study.StableID, meta.GetOrDefault(discovery.PropStableID, def.stableID))
	existing, ok, err := in.Store.GetGeneticProfile(ctx, stableID)
	if err != nil {
		return domain.GeneticProfile{}, fmt.Errorf("get genetic profile %s: %w", stableID, err)
	}
	if ok {
		if reuse && existing.StudyID == in.Study.ID {
			return existing, nil
		}
		return domain.GeneticProfile{}, fmt.Errorf("%w: %s", ErrConflictingGeneticProfile, stableID)
	}
	profile, err := in.Store.AddGeneticProfile(ctx, domain.GeneticProfile{
		StableID:          stableID,
		StudyID:           in.Study.ID,
		AlterationType:    meta.GetOrDefault(discovery.PropAlterationType, def.alterationType),
		Datatype:          meta.GetOrDefault(discovery.PropDatatype, def.datatype),
		Name:              meta.GetOrDefault(discovery.PropProfileName, def.name),
		Description:       meta.GetOrDefault(discovery.PropProfileDescription, ""),
		ShowInAnalysisTab: meta.Bool(discovery.PropShowProfile, true),
	})
	var conflict domain.ErrConflict
	if errors.As(err, &conflict) {
		return domain.GeneticProfile{}, fmt.Errorf("%w: %s", ErrConflictingGeneticProfile, stableID)
	}
	if err != nil {
		return domain.GeneticProfile{}, fmt.Errorf("add genetic profile %s: %w", stableID, err)
	}
	return profile, nil
}

// linkSamples records the profile's sample columns and their panel links.
func linkSamples(ctx context.Context, in pipeline.StageInput, profileID int64, sampleIDs []int64) error {
	if len(sampleIDs) == 0 {
		return nil
	}
	if err := in.Store.AddGeneticProfileSamples(ctx, profileID, sampleIDs); err != nil {
		return fmt.Errorf("add profile samples: %w", err)
	}
	panel := in.Record.Meta.GetOrDefault(discovery.PropGenePanel, "")
	for _, id := range sampleIDs {
		link := domain.SampleProfile{SampleID: id, ProfileID: profileID, GenePanel: panel}
		if err := in.Store.AddSampleProfile(ctx, link); err != nil {
			return fmt.Errorf("add sample profile: %w", err)
		}
	}
	return nil
}
