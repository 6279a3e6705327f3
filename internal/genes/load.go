package genes

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"studyloader/pkg/domain"
)

// Source lists the genes known to persistence.
type Source interface {
	ListGenes(ctx context.Context) ([]domain.Gene, error)
}

// LoadResolver builds the catalog from the source and parses the bundled
// disambiguation table concurrently. Both must finish before any lookup.
func LoadResolver(ctx context.Context, src Source) (*Resolver, error) {
	var (
		catalog *Catalog
		table   Disambiguation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := src.ListGenes(gctx)
		if err != nil {
			return fmt.Errorf("list genes: %w", err)
		}
		catalog = NewCatalog(list)
		return nil
	})
	g.Go(func() error {
		var err error
		table, err = BundledDisambiguation()
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewResolver(catalog, table), nil
}
