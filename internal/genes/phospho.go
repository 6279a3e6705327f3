package genes

import (
	"strings"

	"studyloader/pkg/domain"
)

// PhosphoGene derives the synthetic gene used for an RPPA phospho-protein
// measurement, e.g. AKT1 with residue S473 becomes AKT1_S473. The entrez id
// is left zero for the store to allocate.
func PhosphoGene(base domain.Gene, residue string) domain.Gene {
	sym := strings.ToUpper(base.HugoSymbol)
	return domain.Gene{
		HugoSymbol: sym + "_" + residue,
		Type:       TypePhosphoprotein,
		Cytoband:   base.Cytoband,
		Aliases:    []string{"rppa-phospho", "phosphoprotein", "phospho" + sym},
	}
}
