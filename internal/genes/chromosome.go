package genes

import (
	"regexp"
	"strconv"
	"strings"

	"studyloader/pkg/domain"
)

var leadingDigits = regexp.MustCompile(`^([0-9]+)`)

// NormalizeChromosome maps a chromosome label to its canonical form: 1-22
// as digits, X and Y as 23 and 24, NA and MT unchanged. The numeric labels
// 23 and 24 are accepted too, since they are already canonical, so a
// normalised value normalises to itself. A leading "chr" is ignored.
// Unrecognised labels return false.
func NormalizeChromosome(label string) (string, bool) {
	chr := strings.ToUpper(strings.TrimSpace(label))
	chr = strings.TrimPrefix(chr, "CHR")
	switch chr {
	case "X":
		return "23", true
	case "Y":
		return "24", true
	case "NA", "MT":
		return chr, true
	}
	n, err := strconv.Atoi(chr)
	if err != nil || n < 1 || n > 24 {
		return "", false
	}
	return strconv.Itoa(n), true
}

// ChromosomeFromCytoband derives the chromosome of a cytoband such as "7q34"
// or "Xp11.3", normalised like NormalizeChromosome.
func ChromosomeFromCytoband(cytoband string) (string, bool) {
	band := strings.ToUpper(strings.TrimSpace(cytoband))
	switch {
	case band == "":
		return "", false
	case strings.HasPrefix(band, "X"):
		return "23", true
	case strings.HasPrefix(band, "Y"):
		return "24", true
	}
	m := leadingDigits.FindStringSubmatch(band)
	if m == nil {
		return "", false
	}
	return NormalizeChromosome(m[1])
}

// Chromosome returns the normalised chromosome of a gene.
func Chromosome(g domain.Gene) (string, bool) {
	return ChromosomeFromCytoband(g.Cytoband)
}
