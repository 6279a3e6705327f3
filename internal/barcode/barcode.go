// Package barcode derives patient and sample stable ids and the sample type
// from structured sample barcodes such as TCGA-AA-3664-01A-01D.
package barcode

import (
	"regexp"
	"strings"
)

// SampleType classifies a sample by the two-digit code in its barcode.
type SampleType string

// Sample types recognised in barcodes.
const (
	PrimarySolidTumor   SampleType = "Primary Solid Tumor"
	RecurrentSolidTumor SampleType = "Recurrent Solid Tumor"
	PrimaryBloodTumor   SampleType = "Primary Blood Tumor"
	RecurrentBloodTumor SampleType = "Recurrent Blood Tumor"
	Metastatic          SampleType = "Metastatic"
	BloodNormal         SampleType = "Blood Derived Normal"
	SolidNormal         SampleType = "Solid Tissues Normal"
)

func (t SampleType) String() string { return string(t) }

// IsNormal reports whether the type denotes non-tumor tissue.
func (t SampleType) IsNormal() bool {
	return t == BloodNormal || t == SolidNormal
}

const prefix = "TCGA"

var (
	sampleRe     = regexp.MustCompile(`^(TCGA-\w\w-\w\w\w\w-\d\d).*$`)
	sampleTypeRe = regexp.MustCompile(`^TCGA-\w\w-\w\w\w\w-(\d\d).*$`)

	sampleTypeCodes = map[string]SampleType{
		"01": PrimarySolidTumor,
		"02": RecurrentSolidTumor,
		"03": PrimaryBloodTumor,
		"04": RecurrentBloodTumor,
		"06": Metastatic,
		"10": BloodNormal,
		"11": SolidNormal,
	}

	informalLabels = strings.NewReplacer("Tumor", "01", "Normal", "11")
)

// Identifier is a barcode together with everything derived from it.
type Identifier struct {
	Barcode    string
	PatientID  string
	SampleID   string
	SampleType SampleType
}

// Parse derives all identifiers from a barcode.
func Parse(barcode string) Identifier {
	return Identifier{
		Barcode:    barcode,
		PatientID:  PatientStableID(barcode),
		SampleID:   SampleStableID(barcode),
		SampleType: Classify(barcode),
	}
}

// normalize rewrites informally labelled barcodes ("...-Tumor") to sample type codes.
func normalize(barcode string) string {
	return informalLabels.Replace(barcode)
}

// IsRecognized reports whether the barcode follows the long-form sample convention.
func IsRecognized(barcode string) bool {
	return sampleRe.MatchString(normalize(barcode))
}

// PatientStableID returns the first three dash separated segments of a
// recognised barcode, or the barcode itself otherwise.
func PatientStableID(barcode string) string {
	b := normalize(barcode)
	if !strings.HasPrefix(b, prefix) {
		return barcode
	}
	parts := strings.Split(b, "-")
	if len(parts) < 3 {
		return barcode
	}
	return strings.Join(parts[:3], "-")
}

// SampleStableID returns the sample portion of a recognised barcode,
// truncating vial and portion suffixes after the two-digit sample type.
func SampleStableID(barcode string) string {
	b := normalize(barcode)
	if !strings.HasPrefix(b, prefix) {
		return barcode
	}
	parts := strings.Split(b, "-")
	if len(parts) < 4 {
		return barcode
	}
	id := strings.Join(parts[:4], "-")
	if m := sampleRe.FindStringSubmatch(id); m != nil {
		return m[1]
	}
	return id
}

// Classify returns the sample type encoded in the barcode. Barcodes without
// a recognised code are treated as primary solid tumors.
func Classify(barcode string) SampleType {
	m := sampleTypeRe.FindStringSubmatch(normalize(barcode))
	if m == nil {
		return PrimarySolidTumor
	}
	if t, ok := sampleTypeCodes[m[1]]; ok {
		return t
	}
	return PrimarySolidTumor
}

// IsNormalSample reports whether the barcode identifies a normal sample.
func IsNormalSample(barcode string) bool {
	return Classify(barcode).IsNormal()
}
