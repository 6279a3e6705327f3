package discovery

import (
	"context"
	"errors"
	"fmt"

	"studyloader/internal/blob"
)

var (
	// ErrMissingMetaFile marks a datatype, or the study, without a meta file.
	ErrMissingMetaFile = errors.New("meta file missing")
	// ErrMissingDataFile marks a datatype whose meta file references no existing data file.
	ErrMissingDataFile = errors.New("no data file present")
)

// Meta file properties shared by datatypes.
const (
	PropDataFilename       = "data_filename"
	PropStableID           = "stable_id"
	PropAlterationType     = "genetic_alteration_type"
	PropDatatype           = "datatype"
	PropProfileName        = "profile_name"
	PropProfileDescription = "profile_description"
	PropShowProfile        = "show_profile_in_analysis_tab"
	PropReferenceGenome    = "reference_genome_id"
	PropDescription        = "description"
	PropGenePanel          = "gene_panel"
)

// Record is the discovery outcome for one datatype.
type Record struct {
	Datatype  Datatype
	MetaFile  string
	Meta      Properties
	DataFiles []string
	Ready     bool
	// Skip explains a datatype that is not ready; it wraps ErrMissingMetaFile
	// or ErrMissingDataFile. Nil for ready datatypes.
	Skip error
}

// Discover inspects the staging store for every catalog datatype. Absent or
// empty meta files and missing data files are soft skips recorded on the
// Record; only storage failures are returned as errors.
func Discover(ctx context.Context, store blob.Store, studyID string) ([]Record, error) {
	records := make([]Record, 0, len(Catalog))
	for _, dt := range Catalog {
		rec, err := discoverOne(ctx, store, studyID, dt)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func discoverOne(ctx context.Context, store blob.Store, studyID string, dt Datatype) (Record, error) {
	rec := Record{Datatype: dt, MetaFile: dt.MetaFile(studyID)}
	props, err := LoadProperties(ctx, store, rec.MetaFile)
	if errors.Is(err, ErrMissingMetaFile) {
		rec.Skip = err
		return rec, nil
	}
	if err != nil {
		return Record{}, err
	}
	if len(props) == 0 {
		rec.Skip = fmt.Errorf("%w: %s is empty", ErrMissingMetaFile, rec.MetaFile)
		return rec, nil
	}
	rec.Meta = props
	for _, name := range props.List(PropDataFilename) {
		ok, err := blob.Exists(ctx, store, name)
		if errors.Is(err, blob.ErrInvalidKey) {
			continue
		}
		if err != nil {
			return Record{}, fmt.Errorf("check %s: %w", name, err)
		}
		if ok {
			rec.DataFiles = append(rec.DataFiles, name)
		}
	}
	if len(rec.DataFiles) == 0 {
		rec.Skip = fmt.Errorf("%w: %s references %q", ErrMissingDataFile, rec.MetaFile, props.GetOrDefault(PropDataFilename, ""))
		return rec, nil
	}
	rec.Ready = true
	return rec, nil
}

// LoadProperties reads a meta file. A missing file yields ErrMissingMetaFile.
func LoadProperties(ctx context.Context, store blob.Store, key string) (Properties, error) {
	_, rc, err := store.Get(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMissingMetaFile, key)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	props, err := ParseProperties(rc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", key, err)
	}
	return props, nil
}
