// Package genes resolves gene references from data files against an
// immutable in-memory gene catalog.
package genes

import (
	"sort"
	"strings"

	"studyloader/pkg/domain"
)

// Gene types carried by catalog entries.
const (
	TypeProteinCoding  = "protein-coding"
	TypeMiRNA          = "miRNA"
	TypePhosphoprotein = "phosphoprotein"
)

// Catalog indexes genes by symbol, entrez id and alias. It is built once and
// never mutated, so it is safe to share between goroutines.
type Catalog struct {
	bySymbol map[string]domain.Gene
	byEntrez map[int64]domain.Gene
	byAlias  map[string][]domain.Gene
	size     int
}

// NewCatalog indexes the supplied genes. Genes are ordered by entrez id before
// indexing so alias candidate lists are deterministic regardless of the order
// the source returned them in.
func NewCatalog(genes []domain.Gene) *Catalog {
	sorted := make([]domain.Gene, len(genes))
	copy(sorted, genes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].EntrezID < sorted[j].EntrezID })

	c := &Catalog{
		bySymbol: make(map[string]domain.Gene, len(sorted)),
		byEntrez: make(map[int64]domain.Gene, len(sorted)),
		byAlias:  make(map[string][]domain.Gene),
		size:     len(sorted),
	}
	for _, g := range sorted {
		g = cloneGene(g)
		c.byEntrez[g.EntrezID] = g
		if sym := strings.ToUpper(g.HugoSymbol); sym != "" {
			c.bySymbol[sym] = g
		}
		seen := make(map[string]struct{}, len(g.Aliases))
		for _, alias := range g.Aliases {
			key := strings.ToUpper(strings.TrimSpace(alias))
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			c.byAlias[key] = append(c.byAlias[key], g)
		}
	}
	return c
}

// Len returns the number of genes in the catalog.
func (c *Catalog) Len() int { return c.size }

// ByEntrezID returns the gene with the given entrez id.
func (c *Catalog) ByEntrezID(id int64) (domain.Gene, bool) {
	g, ok := c.byEntrez[id]
	return g, ok
}

// BySymbol returns the gene whose HUGO symbol matches, ignoring case.
func (c *Catalog) BySymbol(symbol string) (domain.Gene, bool) {
	g, ok := c.bySymbol[strings.ToUpper(symbol)]
	return g, ok
}

// ByAlias returns all genes carrying the alias, in entrez id order.
func (c *Catalog) ByAlias(alias string) []domain.Gene {
	genes := c.byAlias[strings.ToUpper(alias)]
	out := make([]domain.Gene, len(genes))
	copy(out, genes)
	return out
}

func cloneGene(g domain.Gene) domain.Gene {
	if g.Aliases != nil {
		g.Aliases = append([]string(nil), g.Aliases...)
	}
	return g
}
