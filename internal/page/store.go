package page

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

// saveLockTableSize bounds the per-(user,URL) lock table. Evicted keys fall
// back to the store's unique index for dedup.
const saveLockTableSize = 1024

// Store coordinates saved-item writes across the metadata store and the
// search index. The metadata store is authoritative; index writes that fail
// are logged and the item stays searchable after the next rebuild.
type Store struct {
	meta   *store.MetadataStore
	idx    *store.SearchIndex
	locks  *KeyedLocks
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a page store over the given persistence layers.
func NewStore(meta *store.MetadataStore, idx *store.SearchIndex, logger *slog.Logger) (*Store, error) {
	locks, err := NewKeyedLocks(saveLockTableSize)
	if err != nil {
		return nil, errors.InternalError("create save lock table", err)
	}
	return &Store{
		meta:   meta,
		idx:    idx,
		locks:  locks,
		logger: logger,
		now:    time.Now,
	}, nil
}

// SaveInput is the caller-supplied content for a save. URL and UserID are
// required; everything else is optional.
type SaveInput struct {
	UserID       string
	URL          string
	Title        string
	Author       string
	Description  string
	Content      string
	Hash         string
	UploadFileID string
	PageType     store.PageType
	SiteName     string
	Labels       []store.Label
}

func (in *SaveInput) validate() error {
	if in.UserID == "" {
		return errors.BadData("userID is required")
	}
	if in.PageType == "" {
		in.PageType = store.PageTypeUnknown
	}
	if !store.ValidPageType(in.PageType) {
		return errors.BadData(fmt.Sprintf("unknown page type %q", in.PageType))
	}
	return nil
}

// CreatePage saves a brand-new item. A second save of the same (user, URL)
// is rejected with an already-exists error; use SavePage for upsert behavior.
func (s *Store) CreatePage(ctx context.Context, in SaveInput) (*store.SavedItem, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	normalized, err := NormalizeURL(in.URL)
	if err != nil {
		return nil, err
	}

	p := s.newItem(in, normalized)
	if err := s.meta.CreatePage(ctx, p); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, errors.New(errors.ErrCodeAlreadyExists,
				"page already saved for this url", err).WithDetail("url", normalized)
		}
		return nil, errors.InternalError("create page", err)
	}

	s.indexBestEffort(ctx, p)
	return p, nil
}

// SavePage is the idempotent save: one live item per (user, normalized URL).
// A repeat save refreshes the content fields, bumps savedAt, regenerates the
// slug, and pulls the item back out of the archive. Returns the item and
// whether it was newly created.
func (s *Store) SavePage(ctx context.Context, in SaveInput) (*store.SavedItem, bool, error) {
	if err := in.validate(); err != nil {
		return nil, false, err
	}
	normalized, err := NormalizeURL(in.URL)
	if err != nil {
		return nil, false, err
	}

	unlock := s.locks.Lock(in.UserID + "|" + normalized)
	defer unlock()

	existing, err := s.meta.GetPageByURL(ctx, in.UserID, normalized)
	if err != nil {
		return nil, false, errors.InternalError("lookup page by url", err)
	}
	if existing != nil {
		updated, err := s.refreshExisting(ctx, existing.ID, in)
		return updated, false, err
	}

	p := s.newItem(in, normalized)
	if err := s.meta.CreatePage(ctx, p); err != nil {
		if store.IsUniqueViolation(err) {
			// Lost a race past the lock table (eviction). The row exists
			// now, so converge on the update path.
			existing, lookupErr := s.meta.GetPageByURL(ctx, in.UserID, normalized)
			if lookupErr != nil || existing == nil {
				return nil, false, errors.InternalError("resolve save conflict", err)
			}
			updated, err := s.refreshExisting(ctx, existing.ID, in)
			return updated, false, err
		}
		return nil, false, errors.InternalError("create page", err)
	}

	s.indexBestEffort(ctx, p)
	return p, true, nil
}

func (s *Store) refreshExisting(ctx context.Context, id string, in SaveInput) (*store.SavedItem, error) {
	now := s.now().UTC()
	slug := makeSlug(in.Title, id)

	update := store.PageUpdate{
		Title:       &in.Title,
		Author:      &in.Author,
		Description: &in.Description,
		Content:     &in.Content,
		Hash:        &in.Hash,
		PageType:    &in.PageType,
		Slug:        &slug,
		SiteName:    &in.SiteName,
		SavedAt:     &now,
		ArchivedAt:  store.ClearTime(),
	}
	if in.UploadFileID != "" {
		update.UploadFileID = &in.UploadFileID
	}
	if in.Labels != nil {
		update.Labels = &in.Labels
	}

	p, err := s.meta.UpdatePage(ctx, id, update)
	if err != nil {
		return nil, errors.InternalError("refresh saved page", err)
	}
	if p == nil {
		return nil, errors.PageNotFound(id)
	}

	s.indexBestEffort(ctx, p)
	return p, nil
}

func (s *Store) newItem(in SaveInput, normalizedURL string) *store.SavedItem {
	now := s.now().UTC()
	id := uuid.NewString()
	labels := in.Labels
	if labels == nil {
		labels = []store.Label{}
	}
	return &store.SavedItem{
		ID:           id,
		UserID:       in.UserID,
		Title:        in.Title,
		Author:       in.Author,
		Description:  in.Description,
		Content:      in.Content,
		URL:          normalizedURL,
		Hash:         in.Hash,
		UploadFileID: in.UploadFileID,
		PageType:     in.PageType,
		Slug:         makeSlug(in.Title, id),
		SiteName:     in.SiteName,
		Labels:       labels,
		CreatedAt:    now,
		SavedAt:      now,
	}
}

// GetPage returns a saved item by id.
func (s *Store) GetPage(ctx context.Context, id string) (*store.SavedItem, error) {
	p, err := s.meta.GetPage(ctx, id)
	if err != nil {
		return nil, errors.InternalError("get page", err)
	}
	if p == nil {
		return nil, errors.PageNotFound(id)
	}
	return p, nil
}

// GetPageByURL returns the user's saved item for a URL (normalized first).
func (s *Store) GetPageByURL(ctx context.Context, userID, rawURL string) (*store.SavedItem, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	p, err := s.meta.GetPageByURL(ctx, userID, normalized)
	if err != nil {
		return nil, errors.InternalError("get page by url", err)
	}
	if p == nil {
		return nil, errors.PageNotFound(normalized)
	}
	return p, nil
}

// UpdatePage applies a partial update and refreshes the search document.
func (s *Store) UpdatePage(ctx context.Context, id string, update store.PageUpdate) (*store.SavedItem, error) {
	p, err := s.meta.UpdatePage(ctx, id, update)
	if err != nil {
		return nil, errors.New(errors.ErrCodeUpdateFailed, "update page", err).WithDetail("page_id", id)
	}
	if p == nil {
		return nil, errors.PageNotFound(id)
	}

	s.indexBestEffort(ctx, p)
	return p, nil
}

// DeletePage removes a saved item and its highlights.
func (s *Store) DeletePage(ctx context.Context, id string) error {
	deleted, err := s.meta.DeletePage(ctx, id)
	if err != nil {
		return errors.InternalError("delete page", err)
	}
	if !deleted {
		return errors.PageNotFound(id)
	}

	if err := s.idx.DeletePage(ctx, id); err != nil {
		s.logger.Warn("search index delete failed",
			"page_id", id, "error", err)
	}
	return nil
}

// ArchivePage moves an item into (or out of) the archive.
func (s *Store) ArchivePage(ctx context.Context, id string, archived bool) (*store.SavedItem, error) {
	update := store.PageUpdate{ArchivedAt: store.ClearTime()}
	if archived {
		update.ArchivedAt = store.SetTime(s.now().UTC())
	}
	return s.UpdatePage(ctx, id, update)
}

// SaveReadingProgress records how far the user has read. Progress only moves
// forward: a report is accepted when it is an explicit reset to zero, or when
// either the percentage or the anchor index exceeds the stored value.
// Stale reports are not an error; the stored item is returned unchanged.
func (s *Store) SaveReadingProgress(ctx context.Context, id string, percent float64, anchorIndex int) (*store.SavedItem, error) {
	if percent < 0 || percent > 100 {
		return nil, errors.BadData(fmt.Sprintf("reading progress %v out of range [0, 100]", percent))
	}
	if anchorIndex < 0 {
		return nil, errors.BadData(fmt.Sprintf("anchor index %d is negative", anchorIndex))
	}

	p, err := s.meta.GetPage(ctx, id)
	if err != nil {
		return nil, errors.InternalError("get page", err)
	}
	if p == nil {
		return nil, errors.PageNotFound(id)
	}

	accept := percent == 0 ||
		percent > p.ReadingProgress ||
		anchorIndex > p.ReadingProgressAnchorIndex
	if !accept {
		return p, nil
	}

	update := store.PageUpdate{
		ReadingProgress:            &percent,
		ReadingProgressAnchorIndex: &anchorIndex,
	}
	if percent == 0 {
		zero := 0
		update.ReadingProgressAnchorIndex = &zero
	}
	return s.UpdatePage(ctx, id, update)
}

// ApplyLabels replaces the item's label set.
func (s *Store) ApplyLabels(ctx context.Context, id string, labels []store.Label) (*store.SavedItem, error) {
	if labels == nil {
		labels = []store.Label{}
	}
	return s.UpdatePage(ctx, id, store.PageUpdate{Labels: &labels})
}

func (s *Store) indexBestEffort(ctx context.Context, p *store.SavedItem) {
	if err := s.idx.IndexPage(ctx, p); err != nil {
		s.logger.Warn("search index write failed, item remains unsearchable until reindex",
			"page_id", p.ID, "error", err)
	}
}

// makeSlug derives the URL slug from the title plus an id fragment for
// uniqueness across identical titles.
func makeSlug(title, id string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	suffix := id
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	if slug == "" {
		return suffix
	}
	return slug + "-" + suffix
}
