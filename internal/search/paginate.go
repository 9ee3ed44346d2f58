package search

import (
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/readstash/readstash/internal/store"
)

// SortOrder is the result ordering by (savedAt, createdAt).
type SortOrder int

const (
	// SortDescending is newest first (the library's default view).
	SortDescending SortOrder = iota
	// SortAscending is oldest first.
	SortAscending
)

// ResultPage is one page of search hits, in index order, before hydration
// from the document store.
type ResultPage struct {
	IDs         []string
	TotalCount  uint64
	HasNextPage bool
	// NextCursor is a plain decimal offset string; clients treat it as
	// opaque but its format is externally visible and must stay stable.
	NextCursor string
}

// ParseCursor converts an incoming cursor to a result offset. An absent or
// malformed cursor means the first page.
func ParseCursor(cursor string) int {
	from, err := strconv.Atoi(cursor)
	if err != nil || from < 0 {
		return 0
	}
	return from
}

// FormatCursor converts a result offset into its wire form.
func FormatCursor(from int) string {
	return strconv.Itoa(from)
}

// NewPageRequest builds the index request for one result page. It asks for
// one extra document past the page size; the sentinel's presence is how the
// paginator detects a next page without a second round trip.
func NewPageRequest(q query.Query, order SortOrder, from, size int) *bleve.SearchRequest {
	req := bleve.NewSearchRequest(q)
	req.From = from
	req.Size = size + 1

	if order == SortAscending {
		req.SortBy([]string{store.FieldSavedAt, store.FieldCreatedAt})
	} else {
		req.SortBy([]string{"-" + store.FieldSavedAt, "-" + store.FieldCreatedAt})
	}

	return req
}

// Paginate turns a raw index result (requested via NewPageRequest) into a
// result page: the sentinel document is discarded and the next cursor is
// the offset of the page that follows.
func Paginate(result *bleve.SearchResult, from, size int) ResultPage {
	if result == nil {
		return ResultPage{}
	}
	if len(result.Hits) == 0 {
		// A cursor past the last page still reports how many documents
		// matched.
		return ResultPage{TotalCount: result.Total}
	}

	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}

	page := ResultPage{TotalCount: result.Total}
	if len(ids) > size {
		page.IDs = ids[:size]
		page.HasNextPage = true
		page.NextCursor = FormatCursor(from + size)
	} else {
		page.IDs = ids
	}

	return page
}
