// Package library is the top-level facade over the saved-item store, the
// highlight engine and the search layer. Commands and embedders talk to this
// package only.
package library

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/readstash/readstash/internal/config"
	"github.com/readstash/readstash/internal/errors"
	"github.com/readstash/readstash/internal/highlight"
	"github.com/readstash/readstash/internal/page"
	"github.com/readstash/readstash/internal/search"
	"github.com/readstash/readstash/internal/store"
)

// Library bundles the stores and engines behind a single lifecycle.
type Library struct {
	cfg        *config.Config
	logger     *slog.Logger
	meta       *store.MetadataStore
	idx        *store.SearchIndex
	pages      *page.Store
	highlights *highlight.Engine
}

// Open opens (or creates) the library at the configured data directory.
func Open(cfg *config.Config, logger *slog.Logger) (*Library, error) {
	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		return nil, errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("create data directory %s", cfg.Paths.DataDir), err)
	}

	meta, err := store.OpenMetadataStore(cfg.DatabasePath())
	if err != nil {
		return nil, errors.InternalError("open document store", err)
	}

	idx, err := store.OpenSearchIndex(cfg.IndexPath())
	if err != nil {
		_ = meta.Close()
		return nil, err
	}

	return assemble(cfg, logger, meta, idx)
}

// OpenInMemory builds a fully in-memory library for tests.
func OpenInMemory(logger *slog.Logger) (*Library, error) {
	meta, err := store.OpenMetadataStore(":memory:")
	if err != nil {
		return nil, errors.InternalError("open document store", err)
	}

	idx, err := store.NewMemSearchIndex()
	if err != nil {
		_ = meta.Close()
		return nil, err
	}

	return assemble(config.NewConfig(), logger, meta, idx)
}

func assemble(cfg *config.Config, logger *slog.Logger, meta *store.MetadataStore, idx *store.SearchIndex) (*Library, error) {
	pages, err := page.NewStore(meta, idx, logger)
	if err != nil {
		_ = meta.Close()
		_ = idx.Close()
		return nil, err
	}

	return &Library{
		cfg:        cfg,
		logger:     logger,
		meta:       meta,
		idx:        idx,
		pages:      pages,
		highlights: highlight.NewEngine(meta, logger),
	}, nil
}

// Close releases the underlying stores.
func (l *Library) Close() error {
	idxErr := l.idx.Close()
	metaErr := l.meta.Close()
	if idxErr != nil {
		return idxErr
	}
	return metaErr
}

// SavePage saves a URL idempotently. Returns the item and whether it was
// newly created.
func (l *Library) SavePage(ctx context.Context, in page.SaveInput) (*store.SavedItem, bool, error) {
	return l.pages.SavePage(ctx, in)
}

// CreatePage saves a brand-new item, rejecting duplicates.
func (l *Library) CreatePage(ctx context.Context, in page.SaveInput) (*store.SavedItem, error) {
	return l.pages.CreatePage(ctx, in)
}

// GetPage returns a saved item by id.
func (l *Library) GetPage(ctx context.Context, id string) (*store.SavedItem, error) {
	return l.pages.GetPage(ctx, id)
}

// GetPageByURL returns the user's saved item for a URL.
func (l *Library) GetPageByURL(ctx context.Context, userID, url string) (*store.SavedItem, error) {
	return l.pages.GetPageByURL(ctx, userID, url)
}

// UpdatePage applies a partial update to a saved item.
func (l *Library) UpdatePage(ctx context.Context, id string, update store.PageUpdate) (*store.SavedItem, error) {
	return l.pages.UpdatePage(ctx, id, update)
}

// DeletePage removes a saved item and its highlights.
func (l *Library) DeletePage(ctx context.Context, id string) error {
	return l.pages.DeletePage(ctx, id)
}

// ArchivePage moves an item into or out of the archive.
func (l *Library) ArchivePage(ctx context.Context, id string, archived bool) (*store.SavedItem, error) {
	return l.pages.ArchivePage(ctx, id, archived)
}

// SaveReadingProgress records forward-only reading progress.
func (l *Library) SaveReadingProgress(ctx context.Context, id string, percent float64, anchorIndex int) (*store.SavedItem, error) {
	return l.pages.SaveReadingProgress(ctx, id, percent, anchorIndex)
}

// ApplyLabels replaces a saved item's label set.
func (l *Library) ApplyLabels(ctx context.Context, id string, labels []store.Label) (*store.SavedItem, error) {
	return l.pages.ApplyLabels(ctx, id, labels)
}

// CreateHighlight stores a new highlight on a saved item.
func (l *Library) CreateHighlight(ctx context.Context, in highlight.Input) (*store.Highlight, error) {
	return l.highlights.Create(ctx, in)
}

// ListHighlights returns a saved item's highlights in creation order.
func (l *Library) ListHighlights(ctx context.Context, pageID string) ([]*store.Highlight, error) {
	return l.highlights.ListByPage(ctx, pageID)
}

// MergeHighlights replaces overlapping highlights with one spanning
// highlight. See the highlight package for the annotation-merge contract.
func (l *Library) MergeHighlights(ctx context.Context, in highlight.Input, overlapIDs []string) (*store.Highlight, []string, error) {
	return l.highlights.Merge(ctx, in, overlapIDs)
}

// DeleteHighlight removes a highlight.
func (l *Library) DeleteHighlight(ctx context.Context, id string) error {
	return l.highlights.Delete(ctx, id)
}

// SearchRequest is a library search: a raw query in the filter syntax plus
// pagination inputs.
type SearchRequest struct {
	UserID string
	Query  string
	// After is the cursor from a previous result page; empty means first page.
	After string
	// First is the page size; zero applies the configured default.
	First     int
	Ascending bool
}

// SearchResult is one hydrated page of matching saved items.
type SearchResult struct {
	Items       []*store.SavedItem
	TotalCount  uint64
	HasNextPage bool
	NextCursor  string
}

// SearchPages runs a library search. Every query is scoped to the requesting
// user; an empty user id is rejected outright. Results come back in saved-at
// order, hydrated from the document store.
func (l *Library) SearchPages(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	if req.UserID == "" {
		return nil, errors.New(errors.ErrCodeUnauthorized, "search requires a user id", nil)
	}

	size := req.First
	if size <= 0 {
		size = l.cfg.Search.DefaultPageSize
	}
	if size > l.cfg.Search.MaxPageSize {
		size = l.cfg.Search.MaxPageSize
	}

	params, err := search.ParseQuery(req.Query)
	if err != nil {
		return nil, err
	}

	order := search.SortDescending
	if req.Ascending {
		order = search.SortAscending
	}

	from := search.ParseCursor(req.After)
	q := search.Compile(req.UserID, params)
	raw, err := l.idx.Search(ctx, search.NewPageRequest(q, order, from, size))
	if err != nil {
		return nil, err
	}

	resultPage := search.Paginate(raw, from, size)

	byID, err := l.meta.PagesByIDs(ctx, resultPage.IDs)
	if err != nil {
		return nil, errors.InternalError("hydrate search results", err)
	}

	items := make([]*store.SavedItem, 0, len(resultPage.IDs))
	for _, id := range resultPage.IDs {
		p, ok := byID[id]
		if !ok {
			// Index is ahead of the document store (deleted row not yet
			// purged from the projection). Drop the hit.
			l.logger.Warn("search hit missing from document store", "page_id", id)
			continue
		}
		items = append(items, p)
	}

	return &SearchResult{
		Items:       items,
		TotalCount:  resultPage.TotalCount,
		HasNextPage: resultPage.HasNextPage,
		NextCursor:  resultPage.NextCursor,
	}, nil
}

// Stats summarizes the library's stored and indexed documents.
type Stats struct {
	Pages       int
	Highlights  int
	IndexedDocs uint64
}

// Stats reports document and index counts.
func (l *Library) Stats(ctx context.Context) (*Stats, error) {
	pages, err := l.meta.CountPages(ctx)
	if err != nil {
		return nil, errors.InternalError("count pages", err)
	}
	highlights, err := l.meta.CountHighlights(ctx)
	if err != nil {
		return nil, errors.InternalError("count highlights", err)
	}
	docs, err := l.idx.DocCount()
	if err != nil {
		return nil, err
	}
	return &Stats{Pages: pages, Highlights: highlights, IndexedDocs: docs}, nil
}
