package library

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/readstash/readstash/internal/errors"
	"github.com/readstash/readstash/internal/store"
)

// ReindexResult reports what a full rebuild processed.
type ReindexResult struct {
	Pages   int
	Batches int
}

// Reindex rebuilds the search index from the document store: the index is
// cleared, then every page is re-projected in batches written by a small
// worker pool. The document store is the source of truth throughout, so an
// interrupted rebuild is repaired by running Reindex again.
func (l *Library) Reindex(ctx context.Context) (*ReindexResult, error) {
	if err := l.idx.Clear(ctx); err != nil {
		return nil, err
	}

	batchSize := l.cfg.Search.ReindexBatchSize
	workers := l.cfg.Search.ReindexWorkers

	g, gctx := errgroup.WithContext(ctx)
	batches := make(chan []*store.SavedItem, workers)

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for batch := range batches {
				if err := l.idx.IndexBatch(gctx, batch); err != nil {
					return err
				}
			}
			return nil
		})
	}

	result := &ReindexResult{}
	g.Go(func() error {
		defer close(batches)
		for offset := 0; ; offset += batchSize {
			pages, err := l.meta.ListPages(gctx, offset, batchSize)
			if err != nil {
				return errors.InternalError("list pages for reindex", err)
			}
			if len(pages) == 0 {
				return nil
			}

			result.Pages += len(pages)
			result.Batches++

			select {
			case batches <- pages:
			case <-gctx.Done():
				return gctx.Err()
			}

			if len(pages) < batchSize {
				return nil
			}
		}
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.logger.Info("index rebuilt", "pages", result.Pages, "batches", result.Batches)
	return result, nil
}
