// Package highlight implements highlight creation and the overlap-merge
// operation: replacing a set of overlapping highlights with a single one
// that carries their combined annotations.
package highlight

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/readstash/readstash/internal/errors"
	"github.com/readstash/readstash/internal/store"
)

// MaxAnnotationLength caps a single submitted annotation. Merged annotations
// may exceed it; the cap applies to user input, not to merge output.
const MaxAnnotationLength = 4000

// Engine creates and merges highlights against the metadata store.
type Engine struct {
	meta   *store.MetadataStore
	logger *slog.Logger
	now    func() time.Time
}

// NewEngine creates a highlight engine.
func NewEngine(meta *store.MetadataStore, logger *slog.Logger) *Engine {
	return &Engine{meta: meta, logger: logger, now: time.Now}
}

// Input is the caller-supplied content for a new highlight.
type Input struct {
	PageID     string
	UserID     string
	Quote      string
	Prefix     string
	Suffix     string
	Patch      string
	Annotation *string
}

func (in Input) validate() error {
	if in.PageID == "" {
		return errors.BadData("pageID is required")
	}
	if in.UserID == "" {
		return errors.BadData("userID is required")
	}
	if in.Quote == "" {
		return errors.BadData("quote is required")
	}
	if in.Annotation != nil && len(*in.Annotation) > MaxAnnotationLength {
		return errors.BadData(fmt.Sprintf("annotation exceeds %d characters", MaxAnnotationLength))
	}
	return nil
}

// Create stores a new highlight on an existing page.
func (e *Engine) Create(ctx context.Context, in Input) (*store.Highlight, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	p, err := e.meta.GetPage(ctx, in.PageID)
	if err != nil {
		return nil, errors.InternalError("get page", err)
	}
	if p == nil {
		return nil, errors.PageNotFound(in.PageID)
	}

	h := e.newHighlight(in)
	if err := e.meta.InsertHighlight(ctx, h); err != nil {
		return nil, errors.InternalError("insert highlight", err)
	}
	return h, nil
}

// Get returns a highlight by id.
func (e *Engine) Get(ctx context.Context, id string) (*store.Highlight, error) {
	h, err := e.meta.GetHighlight(ctx, id)
	if err != nil {
		return nil, errors.InternalError("get highlight", err)
	}
	if h == nil {
		return nil, errors.HighlightNotFound(id)
	}
	return h, nil
}

// ListByPage returns a page's highlights in creation order.
func (e *Engine) ListByPage(ctx context.Context, pageID string) ([]*store.Highlight, error) {
	hs, err := e.meta.HighlightsByPage(ctx, pageID)
	if err != nil {
		return nil, errors.InternalError("list highlights", err)
	}
	return hs, nil
}

// Delete removes a highlight.
func (e *Engine) Delete(ctx context.Context, id string) error {
	deleted, err := e.meta.DeleteHighlight(ctx, id)
	if err != nil {
		return errors.InternalError("delete highlight", err)
	}
	if !deleted {
		return errors.HighlightNotFound(id)
	}
	return nil
}

// Merge replaces the overlapping highlights with one new highlight spanning
// them. Annotations of the removed highlights are preserved in the caller's
// overlapIDs order, newline-joined, with the submitted annotation appended
// last. Removal and insertion are atomic; on a storage failure nothing
// changes and the caller sees a conflict error. Returns the replacement and
// the ids that were removed.
func (e *Engine) Merge(ctx context.Context, in Input, overlapIDs []string) (*store.Highlight, []string, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}
	if len(overlapIDs) == 0 {
		return nil, nil, errors.BadData("merge requires at least one overlapping highlight")
	}

	existing, err := e.meta.HighlightsByPage(ctx, in.PageID)
	if err != nil {
		return nil, nil, errors.InternalError("list highlights", err)
	}
	byID := make(map[string]*store.Highlight, len(existing))
	for _, h := range existing {
		byID[h.ID] = h
	}
	for _, id := range overlapIDs {
		if _, ok := byID[id]; !ok {
			return nil, nil, errors.BadData(fmt.Sprintf("highlight %s is not on page %s", id, in.PageID))
		}
	}

	var parts []string
	for _, id := range overlapIDs {
		if ann := byID[id].Annotation; ann != nil && *ann != "" {
			parts = append(parts, *ann)
		}
	}
	if in.Annotation != nil && *in.Annotation != "" {
		parts = append(parts, *in.Annotation)
	}

	replacement := e.newHighlight(in)
	replacement.Annotation = nil
	if len(parts) > 0 {
		merged := strings.Join(parts, "\n")
		replacement.Annotation = &merged
	}

	if err := e.meta.ReplaceHighlights(ctx, in.PageID, overlapIDs, replacement); err != nil {
		return nil, nil, errors.New(errors.ErrCodeAlreadyExists, "merge highlights", err).
			WithDetail("page_id", in.PageID)
	}

	e.logger.Debug("merged highlights",
		"page_id", in.PageID, "removed", len(overlapIDs), "highlight_id", replacement.ID)
	return replacement, overlapIDs, nil
}

func (e *Engine) newHighlight(in Input) *store.Highlight {
	now := e.now().UTC()
	return &store.Highlight{
		ID:         uuid.NewString(),
		PageID:     in.PageID,
		UserID:     in.UserID,
		Quote:      in.Quote,
		Prefix:     in.Prefix,
		Suffix:     in.Suffix,
		Patch:      in.Patch,
		Annotation: in.Annotation,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
