package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"

	stasherrors "github.com/readstash/readstash/internal/errors"
)

// SearchIndex wraps a bleve index holding the denormalized saved-item
// documents. It is safe for concurrent use.
type SearchIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// OpenSearchIndex opens the index at path, creating it with the saved-item
// mapping if it does not exist yet (idempotent). Any other failure is fatal:
// the service cannot serve search without the index.
func OpenSearchIndex(path string) (*SearchIndex, error) {
	im, err := buildIndexMapping()
	if err != nil {
		return nil, stasherrors.New(stasherrors.ErrCodeIndexUnavailable, "build index mapping", err)
	}

	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, im)
	}
	if err != nil {
		return nil, stasherrors.New(stasherrors.ErrCodeIndexUnavailable,
			fmt.Sprintf("open index at %s", path), err)
	}

	return &SearchIndex{index: idx, path: path}, nil
}

// NewMemSearchIndex creates an in-memory index. Used by tests and as a
// scratch index during rebuilds.
func NewMemSearchIndex() (*SearchIndex, error) {
	im, err := buildIndexMapping()
	if err != nil {
		return nil, stasherrors.New(stasherrors.ErrCodeIndexUnavailable, "build index mapping", err)
	}

	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, stasherrors.New(stasherrors.ErrCodeIndexUnavailable, "open in-memory index", err)
	}

	return &SearchIndex{index: idx}, nil
}

// IndexPage writes (or overwrites) the search document for a page.
func (s *SearchIndex) IndexPage(ctx context.Context, p *SavedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return stasherrors.New(stasherrors.ErrCodeIndexWriteFailed, "index is closed", nil)
	}
	if err := ctx.Err(); err != nil {
		return stasherrors.Wrap(stasherrors.ErrCodeIndexWriteFailed, err)
	}

	if err := s.index.Index(p.ID, searchDoc(p)); err != nil {
		return stasherrors.New(stasherrors.ErrCodeIndexWriteFailed,
			fmt.Sprintf("index page %s", p.ID), err)
	}
	return nil
}

// IndexBatch writes a batch of pages in one commit.
func (s *SearchIndex) IndexBatch(ctx context.Context, pages []*SavedItem) error {
	if len(pages) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return stasherrors.New(stasherrors.ErrCodeIndexWriteFailed, "index is closed", nil)
	}
	if err := ctx.Err(); err != nil {
		return stasherrors.Wrap(stasherrors.ErrCodeIndexWriteFailed, err)
	}

	batch := s.index.NewBatch()
	for _, p := range pages {
		if err := batch.Index(p.ID, searchDoc(p)); err != nil {
			return stasherrors.New(stasherrors.ErrCodeIndexWriteFailed,
				fmt.Sprintf("batch index page %s", p.ID), err)
		}
	}

	if err := s.index.Batch(batch); err != nil {
		return stasherrors.New(stasherrors.ErrCodeIndexWriteFailed, "execute index batch", err)
	}
	return nil
}

// DeletePage removes a page document from the index. Deleting an id that is
// not indexed is a no-op.
func (s *SearchIndex) DeletePage(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return stasherrors.New(stasherrors.ErrCodeIndexWriteFailed, "index is closed", nil)
	}
	if err := ctx.Err(); err != nil {
		return stasherrors.Wrap(stasherrors.ErrCodeIndexWriteFailed, err)
	}

	if err := s.index.Delete(id); err != nil {
		return stasherrors.New(stasherrors.ErrCodeIndexWriteFailed,
			fmt.Sprintf("delete page %s", id), err)
	}
	return nil
}

// Search executes a prepared search request against the index.
func (s *SearchIndex) Search(ctx context.Context, req *bleve.SearchRequest) (*bleve.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, stasherrors.New(stasherrors.ErrCodeSearchFailed, "index is closed", nil)
	}

	result, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, stasherrors.New(stasherrors.ErrCodeSearchFailed, "search failed", err)
	}
	return result, nil
}

// DocCount returns the number of indexed documents.
func (s *SearchIndex) DocCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, stasherrors.New(stasherrors.ErrCodeSearchFailed, "index is closed", nil)
	}
	return s.index.DocCount()
}

// Clear removes every document from the index. Used before a full rebuild.
func (s *SearchIndex) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return stasherrors.New(stasherrors.ErrCodeIndexWriteFailed, "index is closed", nil)
	}

	count, err := s.index.DocCount()
	if err != nil {
		return stasherrors.New(stasherrors.ErrCodeIndexWriteFailed, "doc count", err)
	}

	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(count)
	result, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return stasherrors.New(stasherrors.ErrCodeIndexWriteFailed, "list documents", err)
	}

	batch := s.index.NewBatch()
	for _, hit := range result.Hits {
		batch.Delete(hit.ID)
	}
	if err := s.index.Batch(batch); err != nil {
		return stasherrors.New(stasherrors.ErrCodeIndexWriteFailed, "clear index", err)
	}
	return nil
}

// Close closes the index.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.index != nil {
		return s.index.Close()
	}
	return nil
}
