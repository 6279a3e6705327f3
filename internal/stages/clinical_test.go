package stages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyloader/internal/discovery"
	"studyloader/pkg/domain"
)

func clinicalFiles() map[string]string {
	return map[string]string{
		"meta_clinical_patient.txt": "datatype: PATIENT_ATTRIBUTES\ndata_filename: data_clinical_patient.txt\n",
		"data_clinical_patient.txt": lines(
			"#Patient Identifier\tOverall Survival Status\tDiagnosis Age",
			"#Identifier\tSurvival status\tAge at diagnosis",
			"#STRING\tSTRING\tNUMBER",
			"#1\t1\t5",
			"PATIENT_ID\tOS_STATUS\tAGE",
			"TCGA-A1-A0SB\tDECEASED\t54",
			"TCGA-A1-A0SD\tNA\t61",
		),
		"meta_clinical_sample.txt": "datatype: SAMPLE_ATTRIBUTES\ndata_filename: data_clinical_sample.txt\n",
		"data_clinical_sample.txt": lines(
			"#Patient Identifier\tSample Identifier\tSubtype",
			"#Identifier\tIdentifier\tPAM50 subtype",
			"#STRING\tSTRING\tSTRING",
			"#1\t1\t2",
			"PATIENT_ID\tSAMPLE_ID\tSUBTYPE",
			"TCGA-A1-A0SB\tTCGA-A1-A0SB-01\tLumA",
			"TCGA-A1-A0SB\tTCGA-A1-A0SB-11\tNormal",
			"TCGA-A1-A0SE\tTCGA-A1-A0SE-01\t",
			"",
		),
	}
}

func TestClinicalPatientStage(t *testing.T) {
	f := newFixture(t, clinicalFiles())
	ctx := context.Background()

	res := f.run(t, NewClinical(discovery.ClinicalPatient))
	assert.Equal(t, 2, res.Imported)
	assert.Zero(t, res.Skipped)
	assert.Empty(t, res.CaseList())

	attr, ok, err := f.store.GetClinicalAttribute(ctx, f.study.ID, "AGE")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Diagnosis Age", attr.DisplayName)
	assert.Equal(t, "Age at diagnosis", attr.Description)
	assert.Equal(t, "NUMBER", attr.Datatype)
	assert.Equal(t, "5", attr.Priority)
	assert.True(t, attr.PatientAttribute)

	first := f.patient(t, "TCGA-A1-A0SB")
	assert.Len(t, f.store.ClinicalData(domain.ClinicalPatient, first.ID), 2)
	second := f.patient(t, "TCGA-A1-A0SD")
	data := f.store.ClinicalData(domain.ClinicalPatient, second.ID)
	require.Len(t, data, 1, "NA values are not stored")
	assert.Equal(t, "AGE", data[0].AttrID)
	assert.Equal(t, "61", data[0].Value)
}

func TestClinicalSampleStage(t *testing.T) {
	f := newFixture(t, clinicalFiles())
	f.run(t, NewClinical(discovery.ClinicalPatient))

	res := f.run(t, NewClinical(discovery.ClinicalSample))
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.SkipReasons[reasonNormalSample])
	assert.Equal(t, 1, res.SkipReasons[reasonBlankLine])

	tumor := f.sample(t, "TCGA-A1-A0SB-01")
	created := f.sample(t, "TCGA-A1-A0SE-01")
	assert.Equal(t, f.patient(t, "TCGA-A1-A0SB").ID, tumor.PatientID)
	assert.Equal(t, f.patient(t, "TCGA-A1-A0SE").ID, created.PatientID, "patients are created on demand")
	assert.Equal(t, []int64{tumor.ID, created.ID}, res.CaseList())

	_, ok, err := f.store.GetSampleByStudy(context.Background(), "TCGA-A1-A0SB-11", f.study.ID)
	require.NoError(t, err)
	assert.False(t, ok, "normal samples are never created")

	data := f.store.ClinicalData(domain.ClinicalSample, tumor.ID)
	require.Len(t, data, 1)
	assert.Equal(t, "LumA", data[0].Value)
	assert.Empty(t, f.store.ClinicalData(domain.ClinicalSample, created.ID))
}

func TestClinicalLegacyAttributeTypes(t *testing.T) {
	f := newFixture(t, map[string]string{
		"meta_clinical.txt": "data_filename: data_clinical.txt\n",
		"data_clinical.txt": lines(
			"#Patient Identifier\tSample Identifier\tAge\tSubtype",
			"#d\td\td\td",
			"#STRING\tSTRING\tNUMBER\tSTRING",
			"#PATIENT\tSAMPLE\tPATIENT\tSAMPLE",
			"#1\t1\t3\t2",
			"PATIENT_ID\tSAMPLE_ID\tAGE\tSUBTYPE",
			"TCGA-A1-A0SB\tTCGA-A1-A0SB-01\t54\tLumA",
		),
	})
	ctx := context.Background()
	res := f.run(t, NewClinical(discovery.Clinical))
	assert.Equal(t, 1, res.Imported)

	age, _, err := f.store.GetClinicalAttribute(ctx, f.study.ID, "AGE")
	require.NoError(t, err)
	assert.True(t, age.PatientAttribute)
	assert.Equal(t, "3", age.Priority)
	subtype, _, err := f.store.GetClinicalAttribute(ctx, f.study.ID, "SUBTYPE")
	require.NoError(t, err)
	assert.False(t, subtype.PatientAttribute)
	assert.Equal(t, "2", subtype.Priority)

	p := f.patient(t, "TCGA-A1-A0SB")
	s := f.sample(t, "TCGA-A1-A0SB-01")
	require.Len(t, f.store.ClinicalData(domain.ClinicalPatient, p.ID), 1)
	assert.Equal(t, "54", f.store.ClinicalData(domain.ClinicalPatient, p.ID)[0].Value)
	require.Len(t, f.store.ClinicalData(domain.ClinicalSample, s.ID), 1)
	assert.Equal(t, "LumA", f.store.ClinicalData(domain.ClinicalSample, s.ID)[0].Value)
}

func TestClinicalWithoutCommentRowsUsesDefaults(t *testing.T) {
	f := newFixture(t, map[string]string{
		"meta_clinical_patient.txt": "data_filename: data_clinical_patient.txt\n",
		"data_clinical_patient.txt": lines("PATIENT_ID\tos_months", "P1\t12.5"),
	})
	f.run(t, NewClinical(discovery.ClinicalPatient))
	attr, ok, err := f.store.GetClinicalAttribute(context.Background(), f.study.ID, "OS_MONTHS")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "OS_MONTHS", attr.DisplayName)
	assert.Equal(t, defaultAttrDatatype, attr.Datatype)
	assert.Equal(t, defaultAttrPriority, attr.Priority)
}

func TestClinicalMissingIdentifierColumn(t *testing.T) {
	f := newFixture(t, map[string]string{
		"meta_clinical_sample.txt": "data_filename: data_clinical_sample.txt\n",
		"data_clinical_sample.txt": lines("PATIENT_ID\tSUBTYPE", "P1\tLumA"),
	})
	res := f.run(t, NewClinical(discovery.ClinicalSample))
	assert.Zero(t, res.Imported)
	assert.Equal(t, 1, res.SkipReasons[reasonBadHeader])
}

func TestClinicalShortRowIsMalformed(t *testing.T) {
	f := newFixture(t, map[string]string{
		"meta_clinical_patient.txt": "data_filename: data_clinical_patient.txt\n",
		"data_clinical_patient.txt": lines("PATIENT_ID\tAGE\tSEX", "P1\t40", "P2\t41\tF"),
	})
	res := f.run(t, NewClinical(discovery.ClinicalPatient))
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.SkipReasons[reasonMalformedRow])
}
