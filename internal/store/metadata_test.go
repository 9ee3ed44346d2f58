package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *MetadataStore {
	t.Helper()
	m, err := OpenMetadataStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func testPage(id, userID, url string) *SavedItem {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &SavedItem{
		ID:        id,
		UserID:    userID,
		Title:     "A Title",
		Content:   "<p>body</p>",
		URL:       url,
		Hash:      "h1",
		PageType:  PageTypeArticle,
		Slug:      "a-title",
		Labels:    []Label{{Name: "Tech"}},
		CreatedAt: now,
		SavedAt:   now,
	}
}

func strPtr(s string) *string { return &s }

func TestCreateAndGetPage(t *testing.T) {
	m := newTestStore(t)
	ctx := context.Background()

	p := testPage("p1", "u1", "https://a.example/x")
	require.NoError(t, m.CreatePage(ctx, p))

	got, err := m.GetPage(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "A Title", got.Title)
	assert.Equal(t, PageTypeArticle, got.PageType)
	assert.Equal(t, []Label{{Name: "Tech"}}, got.Labels)
	assert.Equal(t, p.SavedAt, got.SavedAt)
	assert.Nil(t, got.ArchivedAt)
}

func TestGetPage_Missing(t *testing.T) {
	m := newTestStore(t)

	got, err := m.GetPage(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetPageByURL(t *testing.T) {
	m := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, m.CreatePage(ctx, testPage("p1", "u1", "https://a.example/x")))

	got, err := m.GetPageByURL(ctx, "u1", "https://a.example/x")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p1", got.ID)

	// Another user does not see it.
	got, err = m.GetPageByURL(ctx, "u2", "https://a.example/x")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCreatePage_DuplicateUserURL(t *testing.T) {
	m := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, m.CreatePage(ctx, testPage("p1", "u1", "https://a.example/x")))

	err := m.CreatePage(ctx, testPage("p2", "u1", "https://a.example/x"))
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	// Same URL for a different user is fine.
	require.NoError(t, m.CreatePage(ctx, testPage("p3", "u2", "https://a.example/x")))
}

func TestUpdatePage_Partial(t *testing.T) {
	m := newTestStore(t)
	ctx := context.Background()

	p := testPage("p1", "u1", "https://a.example/x")
	archived := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	p.ArchivedAt = &archived
	require.NoError(t, m.CreatePage(ctx, p))

	savedAt := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	updated, err := m.UpdatePage(ctx, "p1", PageUpdate{
		Title:      strPtr("New Title"),
		Slug:       strPtr("new-title"),
		SavedAt:    &savedAt,
		ArchivedAt: ClearTime(),
	})
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, "New Title", updated.Title)
	assert.Equal(t, "new-title", updated.Slug)
	assert.Equal(t, savedAt, updated.SavedAt)
	assert.Nil(t, updated.ArchivedAt)
	// Untouched fields survive.
	assert.Equal(t, "<p>body</p>", updated.Content)
	assert.Equal(t, "https://a.example/x", updated.URL)

	// Update is persisted, not just returned.
	got, err := m.GetPage(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "New Title", got.Title)
	assert.Nil(t, got.ArchivedAt)
}

func TestUpdatePage_Missing(t *testing.T) {
	m := newTestStore(t)

	updated, err := m.UpdatePage(context.Background(), "nope", PageUpdate{Title: strPtr("x")})
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestDeletePage_CascadesHighlights(t *testing.T) {
	m := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, m.CreatePage(ctx, testPage("p1", "u1", "https://a.example/x")))
	require.NoError(t, m.InsertHighlight(ctx, testHighlight("h1", "p1", nil)))

	deleted, err := m.DeletePage(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, deleted)

	hs, err := m.HighlightsByPage(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, hs)

	deleted, err = m.DeletePage(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestPagesByIDs(t *testing.T) {
	m := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, m.CreatePage(ctx, testPage("p1", "u1", "https://a.example/1")))
	require.NoError(t, m.CreatePage(ctx, testPage("p2", "u1", "https://a.example/2")))

	pages, err := m.PagesByIDs(ctx, []string{"p2", "p1", "missing"})
	require.NoError(t, err)
	assert.Len(t, pages, 2)
	assert.Contains(t, pages, "p1")
	assert.Contains(t, pages, "p2")

	pages, err = m.PagesByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestListPages_Batches(t *testing.T) {
	m := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, m.CreatePage(ctx, testPage(id, "u1", "https://a.example/"+id)))
	}

	first, err := m.ListPages(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := m.ListPages(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, second, 1)

	assert.Equal(t, []string{"a", "b", "c"},
		[]string{first[0].ID, first[1].ID, second[0].ID})

	count, err := m.CountPages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func testHighlight(id, pageID string, annotation *string) *Highlight {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &Highlight{
		ID:         id,
		PageID:     pageID,
		UserID:     "u1",
		Quote:      "quoted text",
		Patch:      "@@ -1 +1 @@",
		Annotation: annotation,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestHighlightRoundTrip(t *testing.T) {
	m := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, m.CreatePage(ctx, testPage("p1", "u1", "https://a.example/x")))

	note := "a note"
	require.NoError(t, m.InsertHighlight(ctx, testHighlight("h1", "p1", &note)))
	require.NoError(t, m.InsertHighlight(ctx, testHighlight("h2", "p1", nil)))

	got, err := m.GetHighlight(ctx, "h1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.Annotation)
	assert.Equal(t, "a note", *got.Annotation)

	got, err = m.GetHighlight(ctx, "h2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.Annotation)

	hs, err := m.HighlightsByPage(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, hs, 2)

	n, err := m.CountHighlights(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestReplaceHighlights_Atomic(t *testing.T) {
	m := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, m.CreatePage(ctx, testPage("p1", "u1", "https://a.example/x")))
	require.NoError(t, m.InsertHighlight(ctx, testHighlight("h1", "p1", nil)))
	require.NoError(t, m.InsertHighlight(ctx, testHighlight("h2", "p1", nil)))
	require.NoError(t, m.InsertHighlight(ctx, testHighlight("h3", "p1", nil)))

	merged := "a\nb"
	replacement := testHighlight("h4", "p1", &merged)
	require.NoError(t, m.ReplaceHighlights(ctx, "p1", []string{"h1", "h2"}, replacement))

	hs, err := m.HighlightsByPage(ctx, "p1")
	require.NoError(t, err)

	ids := make([]string, 0, len(hs))
	for _, h := range hs {
		ids = append(ids, h.ID)
	}
	assert.ElementsMatch(t, []string{"h3", "h4"}, ids)
}

func TestReplaceHighlights_DuplicateIDFails(t *testing.T) {
	m := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, m.CreatePage(ctx, testPage("p1", "u1", "https://a.example/x")))
	require.NoError(t, m.InsertHighlight(ctx, testHighlight("h1", "p1", nil)))
	require.NoError(t, m.InsertHighlight(ctx, testHighlight("h2", "p1", nil)))

	// Replacement reuses a surviving id: the transaction must fail and
	// leave the original set untouched.
	err := m.ReplaceHighlights(ctx, "p1", []string{"h1"}, testHighlight("h2", "p1", nil))
	require.Error(t, err)

	hs, err := m.HighlightsByPage(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, hs, 2)
}
