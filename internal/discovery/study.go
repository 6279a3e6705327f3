package discovery

import (
	"context"
	"fmt"
	"strings"

	"studyloader/internal/blob"
)

// StudyMeta is the content of the study meta file.
type StudyMeta struct {
	Identifier      string
	Name            string
	Description     string
	CancerType      string
	ShortName       string
	PMID            string
	Citation        string
	Groups          string
	ReferenceGenome string
}

// LoadStudyMeta reads and validates the study meta file. A missing file
// yields ErrMissingMetaFile.
func LoadStudyMeta(ctx context.Context, store blob.Store) (StudyMeta, error) {
	props, err := LoadProperties(ctx, store, StudyMetaFile)
	if err != nil {
		return StudyMeta{}, err
	}
	id := props.GetOrDefault("cancer_study_identifier", "")
	if id == "" {
		return StudyMeta{}, fmt.Errorf("%s: cancer_study_identifier is required", StudyMetaFile)
	}
	if strings.ContainsAny(id, " \t/") {
		return StudyMeta{}, fmt.Errorf("%s: invalid cancer_study_identifier %q", StudyMetaFile, id)
	}
	return StudyMeta{
		Identifier:      id,
		Name:            props.GetOrDefault("name", id),
		Description:     props.GetOrDefault("description", ""),
		CancerType:      props.GetOrDefault("type_of_cancer", ""),
		ShortName:       props.GetOrDefault("short_name", id),
		PMID:            props.GetOrDefault("pmid", ""),
		Citation:        props.GetOrDefault("citation", ""),
		Groups:          props.GetOrDefault("groups", ""),
		ReferenceGenome: props.GetOrDefault("reference_genome", "hg19"),
	}, nil
}

// ProfileStableID prefixes a meta file stable_id with the study identifier
// unless it already carries it.
func ProfileStableID(studyID, stableID string) string {
	if strings.HasPrefix(stableID, studyID+"_") {
		return stableID
	}
	return studyID + "_" + stableID
}
