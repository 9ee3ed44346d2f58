package search

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readstash/readstash/internal/store"
)

func TestParseCursor(t *testing.T) {
	tests := []struct {
		cursor string
		want   int
	}{
		{"", 0},
		{"0", 0},
		{"10", 10},
		{"250", 250},
		{"-5", 0},
		{"abc", 0},
		{"12.5", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCursor(tt.cursor), "cursor %q", tt.cursor)
	}
}

func TestFormatCursor_RoundTrip(t *testing.T) {
	for _, from := range []int{0, 1, 10, 9999} {
		assert.Equal(t, from, ParseCursor(FormatCursor(from)))
	}
}

func TestNewPageRequest_SentinelAndSort(t *testing.T) {
	req := NewPageRequest(Compile("u1", store.SearchParams{}), SortDescending, 20, 10)

	assert.Equal(t, 20, req.From)
	assert.Equal(t, 11, req.Size, "requests one sentinel doc past the page")
	require.Len(t, req.Sort, 2)

	req = NewPageRequest(Compile("u1", store.SearchParams{}), SortAscending, 0, 5)
	assert.Equal(t, 6, req.Size)
}

func TestPaginate_EmptyResult(t *testing.T) {
	page := Paginate(nil, 0, 10)
	assert.Empty(t, page.IDs)
	assert.Equal(t, uint64(0), page.TotalCount)
	assert.False(t, page.HasNextPage)
	assert.Equal(t, "", page.NextCursor)
}

func seedPages(t *testing.T, idx *store.SearchIndex, userID string, n int) {
	t.Helper()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		p := &store.SavedItem{
			ID:        fmt.Sprintf("p%02d", i),
			UserID:    userID,
			Title:     fmt.Sprintf("Title %d", i),
			URL:       fmt.Sprintf("https://a.example/%d", i),
			PageType:  store.PageTypeArticle,
			CreatedAt: now,
			SavedAt:   now.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, idx.IndexPage(context.Background(), p))
	}
}

func TestPaginate_WalkVisitsAllExactlyOnce(t *testing.T) {
	idx, err := store.NewMemSearchIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	const n, size = 23, 5
	seedPages(t, idx, "u1", n)
	q := Compile("u1", store.SearchParams{})

	seen := make(map[string]int)
	cursor := ""
	pages := 0
	for {
		from := ParseCursor(cursor)
		res, err := idx.Search(context.Background(), NewPageRequest(q, SortDescending, from, size))
		require.NoError(t, err)

		page := Paginate(res, from, size)
		assert.Equal(t, uint64(n), page.TotalCount)
		for _, id := range page.IDs {
			seen[id]++
		}

		pages++
		require.Less(t, pages, 20, "pagination must terminate")
		if !page.HasNextPage {
			break
		}
		cursor = page.NextCursor
	}

	assert.Len(t, seen, n)
	for id, count := range seen {
		assert.Equal(t, 1, count, "page %s visited more than once", id)
	}
	assert.Equal(t, 5, pages) // 23 items / 5 per page
}

func TestPaginate_CursorIsPlainOffset(t *testing.T) {
	idx, err := store.NewMemSearchIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	seedPages(t, idx, "u1", 12)
	q := Compile("u1", store.SearchParams{})

	res, err := idx.Search(context.Background(), NewPageRequest(q, SortDescending, 0, 10))
	require.NoError(t, err)

	page := Paginate(res, 0, 10)
	assert.True(t, page.HasNextPage)
	assert.Equal(t, "10", page.NextCursor)
	assert.Len(t, page.IDs, 10)
}

func TestPaginate_ExactFit(t *testing.T) {
	idx, err := store.NewMemSearchIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	seedPages(t, idx, "u1", 10)
	q := Compile("u1", store.SearchParams{})

	res, err := idx.Search(context.Background(), NewPageRequest(q, SortDescending, 0, 10))
	require.NoError(t, err)

	page := Paginate(res, 0, 10)
	assert.False(t, page.HasNextPage)
	assert.Len(t, page.IDs, 10)
}

func TestPaginate_CursorPastEndKeepsTotal(t *testing.T) {
	idx, err := store.NewMemSearchIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	seedPages(t, idx, "u1", 5)
	q := Compile("u1", store.SearchParams{})

	res, err := idx.Search(context.Background(), NewPageRequest(q, SortDescending, 20, 5))
	require.NoError(t, err)

	page := Paginate(res, 20, 5)
	assert.Empty(t, page.IDs)
	assert.Equal(t, uint64(5), page.TotalCount, "match count survives an overshot cursor")
	assert.False(t, page.HasNextPage)
	assert.Equal(t, "", page.NextCursor)
}

func TestPaginate_SortOrder(t *testing.T) {
	idx, err := store.NewMemSearchIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	seedPages(t, idx, "u1", 3)
	q := Compile("u1", store.SearchParams{})

	res, err := idx.Search(context.Background(), NewPageRequest(q, SortDescending, 0, 10))
	require.NoError(t, err)
	page := Paginate(res, 0, 10)
	assert.Equal(t, []string{"p02", "p01", "p00"}, page.IDs, "newest saved first")

	res, err = idx.Search(context.Background(), NewPageRequest(q, SortAscending, 0, 10))
	require.NoError(t, err)
	page = Paginate(res, 0, 10)
	assert.Equal(t, []string{"p00", "p01", "p02"}, page.IDs, "oldest saved first")
}
