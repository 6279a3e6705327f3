package genes

import (
	"strings"

	"studyloader/pkg/domain"
)

// Resolver answers gene lookups for data file rows. It holds only read-only
// indices and may be shared freely once constructed.
type Resolver struct {
	catalog        *Catalog
	disambiguation map[string]domain.Gene
}

// NewResolver combines a catalog with a curated disambiguation table.
func NewResolver(c *Catalog, d Disambiguation) *Resolver {
	if c == nil {
		c = NewCatalog(nil)
	}
	return &Resolver{catalog: c, disambiguation: d.index(c)}
}

// Catalog exposes the underlying catalog.
func (r *Resolver) Catalog() *Catalog { return r.catalog }

// Query describes a gene reference as it appears in a data row. Zero
// EntrezID and empty strings mean "not supplied".
type Query struct {
	EntrezID   int64
	Symbol     string
	Chromosome string
}

// Resolve finds the gene a row refers to. The entrez id wins over the symbol,
// then exact symbols, then the curated disambiguation table, then aliases
// narrowed by the chromosome hint.
func (r *Resolver) Resolve(q Query) (domain.Gene, bool) {
	if q.EntrezID != 0 {
		if g, ok := r.catalog.ByEntrezID(q.EntrezID); ok {
			return g, true
		}
	}
	symbol := strings.ToUpper(strings.TrimSpace(q.Symbol))
	if symbol == "" {
		return domain.Gene{}, false
	}
	if g, ok := r.catalog.BySymbol(symbol); ok {
		return g, true
	}
	if g, ok := r.disambiguation[symbol]; ok {
		return g, true
	}
	return r.resolveAlias(symbol, q.Chromosome)
}

// ResolveSymbol is Resolve with only a symbol supplied.
func (r *Resolver) ResolveSymbol(symbol string) (domain.Gene, bool) {
	return r.Resolve(Query{Symbol: symbol})
}

// resolveAlias picks among genes sharing an alias. Without a chromosome hint
// only an unambiguous alias resolves. With a hint, candidates on other
// chromosomes are discarded and the first survivor in entrez id order wins.
func (r *Resolver) resolveAlias(alias, chromosome string) (domain.Gene, bool) {
	candidates := r.catalog.ByAlias(alias)
	if len(candidates) == 0 {
		return domain.Gene{}, false
	}
	hint, ok := NormalizeChromosome(chromosome)
	if !ok {
		if len(candidates) == 1 {
			return candidates[0], true
		}
		return domain.Gene{}, false
	}
	for _, g := range candidates {
		if chr, ok := Chromosome(g); ok && chr == hint {
			return g, true
		}
	}
	return domain.Gene{}, false
}
