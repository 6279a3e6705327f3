// Package discovery decides which datatypes a staging directory carries and
// reads the properties and tab-delimited files found there.
package discovery

import "strings"

// StudyPlaceholder is substituted with the study identifier in meta file templates.
const StudyPlaceholder = "<STUDY>"

// StudyMetaFile names the properties file describing the study itself.
const StudyMetaFile = "meta_study.txt"

// Datatype names, in import order.
const (
	ClinicalPatient = "clinical-patient"
	ClinicalSample  = "clinical-sample"
	Clinical        = "clinical"
	Timeline        = "timeline"
	Mutation        = "mutation"
	CNA             = "cna"
	CNASegment      = "cna-seg"
	MRNAExpression  = "mrna-expression"
	Methylation     = "methylation"
	RPPA            = "rppa"
)

// AllCasesSuffix names the case list holding every sample of the study.
const AllCasesSuffix = "_all"

// Datatype is one entry of the static catalog.
type Datatype struct {
	Name string
	// MetaTemplate is the meta file name, possibly containing StudyPlaceholder.
	MetaTemplate string
	// CaseListSuffix is appended to the study id to name the datatype's
	// case list. Empty when the datatype does not define one.
	CaseListSuffix string
	CaseListName   string
}

// MetaFile returns the meta file key for a study.
func (d Datatype) MetaFile(studyID string) string {
	return strings.ReplaceAll(d.MetaTemplate, StudyPlaceholder, studyID)
}

// CaseListID returns the stable id of the datatype's case list.
func (d Datatype) CaseListID(studyID string) string {
	if d.CaseListSuffix == "" {
		return ""
	}
	return studyID + d.CaseListSuffix
}

// Catalog lists every importable datatype in the order stages run.
var Catalog = []Datatype{
	{Name: ClinicalPatient, MetaTemplate: "meta_clinical_patient.txt"},
	{Name: ClinicalSample, MetaTemplate: "meta_clinical_sample.txt"},
	{Name: Clinical, MetaTemplate: "meta_clinical.txt"},
	{Name: Timeline, MetaTemplate: "meta_timeline.txt"},
	{Name: Mutation, MetaTemplate: "meta_mutations_extended.txt", CaseListSuffix: "_sequenced", CaseListName: "Sequenced Tumors"},
	{Name: CNA, MetaTemplate: "meta_CNA.txt", CaseListSuffix: "_cna", CaseListName: "Tumors with CNA data"},
	{Name: CNASegment, MetaTemplate: StudyPlaceholder + "_meta_cna_hg19_seg.txt"},
	{Name: MRNAExpression, MetaTemplate: "meta_expression.txt", CaseListSuffix: "_mrna", CaseListName: "Tumors with mRNA data"},
	{Name: Methylation, MetaTemplate: "meta_methylation.txt", CaseListSuffix: "_methylation_hm27", CaseListName: "Tumors with methylation data"},
	{Name: RPPA, MetaTemplate: "meta_rppa.txt", CaseListSuffix: "_rppa", CaseListName: "Tumors with RPPA data"},
}

// Lookup returns the catalog entry with the given name.
func Lookup(name string) (Datatype, bool) {
	for _, d := range Catalog {
		if d.Name == name {
			return d, true
		}
	}
	return Datatype{}, false
}

var stableIDColumns = map[string]struct{}{
	"HUGO_SYMBOL":           {},
	"ENTREZ_GENE_ID":        {},
	"CYTOBAND":              {},
	"COMPOSITE.ELEMENT.REF": {},
	"GENE_SYMBOL":           {},
	"LOCUS ID":              {},
	"ID":                    {},
}

// IsStableIDColumn reports whether a profile matrix column identifies the
// row rather than holding a sample's values.
func IsStableIDColumn(name string) bool {
	_, ok := stableIDColumns[strings.ToUpper(strings.TrimSpace(name))]
	return ok
}
