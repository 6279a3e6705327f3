package stages

import (
	"context"
	"fmt"
	"strings"

	"studyloader/internal/barcode"
	"studyloader/internal/discovery"
	"studyloader/internal/pipeline"
	"studyloader/pkg/domain"
)

const (
	colPatientID = "PATIENT_ID"
	colSampleID  = "SAMPLE_ID"

	defaultAttrDatatype = "STRING"
	defaultAttrPriority = "1"
)

// Comment rows preceding a clinical header, in file order. Legacy mixed
// files carry an extra attribute type row before the priorities.
const (
	rowDisplayName = iota
	rowDescription
	rowDatatype
	rowPriority
	rowAttrType = rowPriority
)

// ClinicalStage imports a patient, sample or legacy mixed clinical file.
type ClinicalStage struct {
	datatype string
}

// NewClinical returns the stage for one of the clinical datatypes.
func NewClinical(datatype string) *ClinicalStage {
	return &ClinicalStage{datatype: datatype}
}

// Datatype implements pipeline.Stage.
func (s *ClinicalStage) Datatype() string { return s.datatype }

type clinicalColumn struct {
	index   int
	attrID  string
	patient bool
}

// Run implements pipeline.Stage.
func (s *ClinicalStage) Run(ctx context.Context, in pipeline.StageInput) (pipeline.StageResult, error) {
	res := pipeline.NewStageResult(s.datatype)
	reg := newCases(in.Store, in.Study.ID)
	for _, key := range in.Record.DataFiles {
		if err := s.importFile(ctx, in, reg, key, &res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (s *ClinicalStage) importFile(ctx context.Context, in pipeline.StageInput, reg *cases, key string, res *pipeline.StageResult) error {
	t, err := discovery.OpenTable(ctx, in.Staging, key)
	if err != nil {
		return err
	}
	defer func() { _ = t.Close() }()

	idx := t.ColumnIndex()
	patientCol := column(idx, colPatientID)
	sampleCol := column(idx, colSampleID)
	if s.datatype == discovery.ClinicalSample {
		// sample files may name the patient but never key rows by it alone
		if sampleCol < 0 {
			patientCol = -1
		}
	} else if s.datatype == discovery.ClinicalPatient {
		sampleCol = -1
	}
	if patientCol < 0 && sampleCol < 0 {
		logger(in).Error("clinical file has no identifier column", "file", key)
		res.Skip(reasonBadHeader)
		return nil
	}
	cols, err := s.defineAttributes(ctx, in, t, patientCol, sampleCol)
	if err != nil {
		return err
	}

	var rows []domain.ClinicalDatum
	for t.Next() {
		if t.Blank() {
			res.Skip(reasonBlankLine)
			continue
		}
		f := t.Fields()
		if len(f) < len(t.Header) {
			res.Skip(reasonMalformedRow)
			continue
		}
		var patientID, sampleID int64
		if sampleCol >= 0 {
			code := field(f, sampleCol)
			if code == "" {
				res.Skip("missing_sample_id")
				continue
			}
			if barcode.IsNormalSample(code) {
				res.Skip(reasonNormalSample)
				continue
			}
			smp, err := reg.sample(ctx, code, field(f, patientCol))
			if err != nil {
				return err
			}
			sampleID, patientID = smp.ID, smp.PatientID
			res.AddCase(sampleID)
		} else {
			stable := field(f, patientCol)
			if stable == "" {
				res.Skip("missing_patient_id")
				continue
			}
			if patientID, err = reg.patient(ctx, stable); err != nil {
				return err
			}
		}
		for _, c := range cols {
			v := field(f, c.index)
			if isMissing(v) {
				continue
			}
			datum := domain.ClinicalDatum{Level: domain.ClinicalPatient, InternalID: patientID, AttrID: c.attrID, Value: v}
			if !c.patient && sampleID != 0 {
				datum.Level, datum.InternalID = domain.ClinicalSample, sampleID
			}
			rows = append(rows, datum)
		}
		res.Imported++
	}
	if err := t.Err(); err != nil {
		return err
	}
	if err := in.Store.AddClinicalData(ctx, rows); err != nil {
		return fmt.Errorf("add clinical data from %s: %w", key, err)
	}
	return nil
}

// defineAttributes creates the study's attribute for every value column not
// yet known, described by the comment rows above the header.
func (s *ClinicalStage) defineAttributes(ctx context.Context, in pipeline.StageInput, t *discovery.Table, patientCol, sampleCol int) ([]clinicalColumn, error) {
	meta := t.Comments
	priorityRow := rowPriority
	if s.datatype == discovery.Clinical && len(meta) > rowPriority+1 {
		priorityRow = rowPriority + 1
	}
	var cols []clinicalColumn
	for i, name := range t.Header {
		attrID := strings.ToUpper(strings.TrimSpace(name))
		if i == patientCol || i == sampleCol || attrID == colPatientID || attrID == colSampleID || attrID == "" {
			continue
		}
		col := clinicalColumn{index: i, attrID: attrID, patient: s.patientLevel(meta, i, priorityRow)}
		existing, ok, err := in.Store.GetClinicalAttribute(ctx, in.Study.ID, attrID)
		if err != nil {
			return nil, fmt.Errorf("get clinical attribute %s: %w", attrID, err)
		}
		if ok {
			col.patient = existing.PatientAttribute
			cols = append(cols, col)
			continue
		}
		attr := domain.ClinicalAttribute{
			AttrID:           attrID,
			StudyID:          in.Study.ID,
			DisplayName:      commentValue(meta, rowDisplayName, i, attrID),
			Description:      commentValue(meta, rowDescription, i, attrID),
			Datatype:         strings.ToUpper(commentValue(meta, rowDatatype, i, defaultAttrDatatype)),
			Priority:         commentValue(meta, priorityRow, i, defaultAttrPriority),
			PatientAttribute: col.patient,
		}
		if err := in.Store.AddClinicalAttribute(ctx, attr); err != nil {
			return nil, fmt.Errorf("add clinical attribute %s: %w", attrID, err)
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func (s *ClinicalStage) patientLevel(meta [][]string, col, priorityRow int) bool {
	switch s.datatype {
	case discovery.ClinicalPatient:
		return true
	case discovery.ClinicalSample:
		return false
	}
	if priorityRow == rowAttrType {
		return false
	}
	return strings.EqualFold(commentValue(meta, rowAttrType, col, ""), "PATIENT")
}

func commentValue(meta [][]string, row, col int, def string) string {
	if row >= len(meta) {
		return def
	}
	if v := field(meta[row], col); v != "" {
		return v
	}
	return def
}
