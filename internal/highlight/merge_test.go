package highlight

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readstash/readstash/internal/errors"
	"github.com/readstash/readstash/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.MetadataStore) {
	t.Helper()

	meta, err := store.OpenMetadataStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = meta.Close() })

	return NewEngine(meta, slog.New(slog.NewTextHandler(io.Discard, nil))), meta
}

func seedPage(t *testing.T, meta *store.MetadataStore, id string) {
	t.Helper()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, meta.CreatePage(context.Background(), &store.SavedItem{
		ID:        id,
		UserID:    "u1",
		URL:       "https://example.com/" + id,
		PageType:  store.PageTypeArticle,
		Labels:    []store.Label{},
		CreatedAt: now,
		SavedAt:   now,
	}))
}

func strPtr(s string) *string { return &s }

func quoteInput(pageID, quote string) Input {
	return Input{PageID: pageID, UserID: "u1", Quote: quote}
}

func TestCreateHighlight(t *testing.T) {
	e, meta := newTestEngine(t)
	ctx := context.Background()
	seedPage(t, meta, "p1")

	in := quoteInput("p1", "a memorable sentence")
	in.Annotation = strPtr("note")
	h, err := e.Create(ctx, in)
	require.NoError(t, err)
	assert.NotEmpty(t, h.ID)
	require.NotNil(t, h.Annotation)
	assert.Equal(t, "note", *h.Annotation)

	got, err := e.Get(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, h.ID, got.ID)
}

func TestCreateHighlight_Validation(t *testing.T) {
	e, meta := newTestEngine(t)
	ctx := context.Background()
	seedPage(t, meta, "p1")

	_, err := e.Create(ctx, Input{PageID: "p1", UserID: "u1"})
	assert.True(t, stderrors.Is(err, errors.BadData("")), "missing quote")

	in := quoteInput("p1", "q")
	in.Annotation = strPtr(strings.Repeat("x", MaxAnnotationLength+1))
	_, err = e.Create(ctx, in)
	assert.True(t, stderrors.Is(err, errors.BadData("")), "oversized annotation")

	in = quoteInput("p1", "q")
	in.Annotation = strPtr(strings.Repeat("x", MaxAnnotationLength))
	_, err = e.Create(ctx, in)
	assert.NoError(t, err, "annotation at the limit")

	_, err = e.Create(ctx, quoteInput("ghost", "q"))
	assert.Equal(t, errors.ErrCodePageNotFound, errors.GetCode(err))
}

func TestMerge_CombinesAnnotationsInGivenOrder(t *testing.T) {
	e, meta := newTestEngine(t)
	ctx := context.Background()
	seedPage(t, meta, "p1")

	a := quoteInput("p1", "first")
	a.Annotation = strPtr("A")
	h1, err := e.Create(ctx, a)
	require.NoError(t, err)

	b := quoteInput("p1", "second")
	b.Annotation = strPtr("B")
	h2, err := e.Create(ctx, b)
	require.NoError(t, err)

	// Overlap order is the caller's, not creation order.
	merged, removed, err := e.Merge(ctx, quoteInput("p1", "first and second"), []string{h2.ID, h1.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{h2.ID, h1.ID}, removed)
	require.NotNil(t, merged.Annotation)
	assert.Equal(t, "B\nA", *merged.Annotation)

	remaining, err := e.ListByPage(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, merged.ID, remaining[0].ID)
	assert.Equal(t, "first and second", remaining[0].Quote)
}

func TestMerge_SubmittedAnnotationAppendedLast(t *testing.T) {
	e, meta := newTestEngine(t)
	ctx := context.Background()
	seedPage(t, meta, "p1")

	a := quoteInput("p1", "first")
	a.Annotation = strPtr("old note")
	h1, err := e.Create(ctx, a)
	require.NoError(t, err)

	in := quoteInput("p1", "wider")
	in.Annotation = strPtr("new note")
	merged, _, err := e.Merge(ctx, in, []string{h1.ID})
	require.NoError(t, err)
	require.NotNil(t, merged.Annotation)
	assert.Equal(t, "old note\nnew note", *merged.Annotation)
}

func TestMerge_NoAnnotationsYieldsNil(t *testing.T) {
	e, meta := newTestEngine(t)
	ctx := context.Background()
	seedPage(t, meta, "p1")

	h1, err := e.Create(ctx, quoteInput("p1", "first"))
	require.NoError(t, err)
	h2, err := e.Create(ctx, quoteInput("p1", "second"))
	require.NoError(t, err)

	merged, _, err := e.Merge(ctx, quoteInput("p1", "both"), []string{h1.ID, h2.ID})
	require.NoError(t, err)
	assert.Nil(t, merged.Annotation)
}

func TestMerge_EmptyAnnotationsSkipped(t *testing.T) {
	e, meta := newTestEngine(t)
	ctx := context.Background()
	seedPage(t, meta, "p1")

	a := quoteInput("p1", "first")
	a.Annotation = strPtr("")
	h1, err := e.Create(ctx, a)
	require.NoError(t, err)

	b := quoteInput("p1", "second")
	b.Annotation = strPtr("kept")
	h2, err := e.Create(ctx, b)
	require.NoError(t, err)

	merged, _, err := e.Merge(ctx, quoteInput("p1", "both"), []string{h1.ID, h2.ID})
	require.NoError(t, err)
	require.NotNil(t, merged.Annotation)
	assert.Equal(t, "kept", *merged.Annotation)
}

func TestMerge_RejectsForeignHighlights(t *testing.T) {
	e, meta := newTestEngine(t)
	ctx := context.Background()
	seedPage(t, meta, "p1")
	seedPage(t, meta, "p2")

	other, err := e.Create(ctx, quoteInput("p2", "elsewhere"))
	require.NoError(t, err)

	_, _, err = e.Merge(ctx, quoteInput("p1", "span"), []string{other.ID})
	assert.True(t, stderrors.Is(err, errors.BadData("")), "highlight from another page")

	_, _, err = e.Merge(ctx, quoteInput("p1", "span"), nil)
	assert.True(t, stderrors.Is(err, errors.BadData("")), "empty overlap set")
}

func TestDeleteHighlight(t *testing.T) {
	e, meta := newTestEngine(t)
	ctx := context.Background()
	seedPage(t, meta, "p1")

	h, err := e.Create(ctx, quoteInput("p1", "q"))
	require.NoError(t, err)

	require.NoError(t, e.Delete(ctx, h.ID))
	err = e.Delete(ctx, h.ID)
	assert.Equal(t, errors.ErrCodeHighlightNotFound, errors.GetCode(err))
}
