package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// MetadataStore is the SQLite document of record for pages and highlights.
// The search index is a projection of this store and can be rebuilt from it.
type MetadataStore struct {
	db *sql.DB
}

// OpenMetadataStore opens (or creates) the database at path and runs
// migrations. Pass ":memory:" for an in-memory store in tests.
func OpenMetadataStore(path string) (*MetadataStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	// A single connection keeps pragmas and in-memory databases coherent;
	// write volume here is one row per user action.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &MetadataStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS pages (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL,
		hash TEXT NOT NULL DEFAULT '',
		upload_file_id TEXT NOT NULL DEFAULT '',
		page_type TEXT NOT NULL DEFAULT 'unknown',
		slug TEXT NOT NULL DEFAULT '',
		site_name TEXT NOT NULL DEFAULT '',
		labels TEXT NOT NULL DEFAULT '[]',
		reading_progress REAL NOT NULL DEFAULT 0,
		reading_progress_anchor INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		saved_at INTEGER NOT NULL,
		archived_at INTEGER,
		shared_at INTEGER
	);
	-- Dedup invariant: at most one live page per (user, normalized URL).
	CREATE UNIQUE INDEX IF NOT EXISTS idx_pages_user_url ON pages(user_id, url);

	CREATE TABLE IF NOT EXISTS highlights (
		id TEXT PRIMARY KEY,
		page_id TEXT NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		quote TEXT NOT NULL,
		prefix TEXT NOT NULL DEFAULT '',
		suffix TEXT NOT NULL DEFAULT '',
		patch TEXT NOT NULL DEFAULT '',
		annotation TEXT,
		shared_at INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_highlights_page ON highlights(page_id);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (m *MetadataStore) Close() error {
	return m.db.Close()
}

// IsUniqueViolation reports whether err is a SQLite unique-constraint
// failure (the dedup index firing under a concurrent-save race).
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const pageColumns = `id, user_id, title, author, description, content, url, hash,
	upload_file_id, page_type, slug, site_name, labels, reading_progress,
	reading_progress_anchor, created_at, saved_at, archived_at, shared_at`

// CreatePage inserts a new page row.
func (m *MetadataStore) CreatePage(ctx context.Context, p *SavedItem) error {
	labels, err := json.Marshal(p.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO pages (`+pageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Title, p.Author, p.Description, p.Content, p.URL, p.Hash,
		p.UploadFileID, string(p.PageType), p.Slug, p.SiteName, string(labels),
		p.ReadingProgress, p.ReadingProgressAnchorIndex,
		p.CreatedAt.UnixNano(), p.SavedAt.UnixNano(),
		nanoOrNull(p.ArchivedAt), nanoOrNull(p.SharedAt))
	if err != nil {
		return fmt.Errorf("insert page %s: %w", p.ID, err)
	}
	return nil
}

// GetPage returns the page with the given id, or (nil, nil) if absent.
func (m *MetadataStore) GetPage(ctx context.Context, id string) (*SavedItem, error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE id = ?`, id)
	return scanPage(row)
}

// GetPageByURL returns the user's page for a normalized URL, or (nil, nil).
func (m *MetadataStore) GetPageByURL(ctx context.Context, userID, url string) (*SavedItem, error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE user_id = ? AND url = ?`, userID, url)
	return scanPage(row)
}

// UpdatePage applies a partial update inside a transaction and returns the
// updated page, or (nil, nil) if the page does not exist.
func (m *MetadataStore) UpdatePage(ctx context.Context, id string, u PageUpdate) (*SavedItem, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE id = ?`, id)
	p, err := scanPage(row)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}

	u.apply(p)

	labels, err := json.Marshal(p.Labels)
	if err != nil {
		return nil, fmt.Errorf("marshal labels: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE pages SET
			title = ?, author = ?, description = ?, content = ?, url = ?, hash = ?,
			upload_file_id = ?, page_type = ?, slug = ?, site_name = ?, labels = ?,
			reading_progress = ?, reading_progress_anchor = ?,
			saved_at = ?, archived_at = ?, shared_at = ?
		WHERE id = ?`,
		p.Title, p.Author, p.Description, p.Content, p.URL, p.Hash,
		p.UploadFileID, string(p.PageType), p.Slug, p.SiteName, string(labels),
		p.ReadingProgress, p.ReadingProgressAnchorIndex,
		p.SavedAt.UnixNano(), nanoOrNull(p.ArchivedAt), nanoOrNull(p.SharedAt), id)
	if err != nil {
		return nil, fmt.Errorf("update page %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return p, nil
}

// DeletePage removes a page row (and its highlights via cascade). Returns
// whether a row was deleted.
func (m *MetadataStore) DeletePage(ctx context.Context, id string) (bool, error) {
	res, err := m.db.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete page %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// PagesByIDs fetches pages by id, keyed by id. Missing ids are omitted.
func (m *MetadataStore) PagesByIDs(ctx context.Context, ids []string) (map[string]*SavedItem, error) {
	pages := make(map[string]*SavedItem, len(ids))
	if len(ids) == 0 {
		return pages, nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := m.db.QueryContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query pages by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages[p.ID] = p
	}
	return pages, rows.Err()
}

// ListPages returns a stable slice of pages ordered by id, for streaming the
// whole store during an index rebuild.
func (m *MetadataStore) ListPages(ctx context.Context, offset, limit int) ([]*SavedItem, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT `+pageColumns+` FROM pages ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var pages []*SavedItem
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// CountPages returns the number of stored pages.
func (m *MetadataStore) CountPages(ctx context.Context) (int, error) {
	var n int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return n, nil
}

// CountHighlights returns the number of stored highlights.
func (m *MetadataStore) CountHighlights(ctx context.Context) (int, error) {
	var n int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM highlights`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count highlights: %w", err)
	}
	return n, nil
}

const highlightColumns = `id, page_id, user_id, quote, prefix, suffix, patch,
	annotation, shared_at, created_at, updated_at`

// InsertHighlight inserts a new highlight row.
func (m *MetadataStore) InsertHighlight(ctx context.Context, h *Highlight) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO highlights (`+highlightColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.PageID, h.UserID, h.Quote, h.Prefix, h.Suffix, h.Patch,
		h.Annotation, nanoOrNull(h.SharedAt),
		h.CreatedAt.UnixNano(), h.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert highlight %s: %w", h.ID, err)
	}
	return nil
}

// GetHighlight returns the highlight with the given id, or (nil, nil).
func (m *MetadataStore) GetHighlight(ctx context.Context, id string) (*Highlight, error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT `+highlightColumns+` FROM highlights WHERE id = ?`, id)
	return scanHighlight(row)
}

// HighlightsByPage returns all highlights on a page in creation order.
func (m *MetadataStore) HighlightsByPage(ctx context.Context, pageID string) ([]*Highlight, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT `+highlightColumns+` FROM highlights WHERE page_id = ? ORDER BY created_at, id`,
		pageID)
	if err != nil {
		return nil, fmt.Errorf("query highlights for page %s: %w", pageID, err)
	}
	defer rows.Close()

	var highlights []*Highlight
	for rows.Next() {
		h, err := scanHighlight(rows)
		if err != nil {
			return nil, err
		}
		highlights = append(highlights, h)
	}
	return highlights, rows.Err()
}

// DeleteHighlight removes a highlight row. Returns whether a row was deleted.
func (m *MetadataStore) DeleteHighlight(ctx context.Context, id string) (bool, error) {
	res, err := m.db.ExecContext(ctx, `DELETE FROM highlights WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete highlight %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ReplaceHighlights atomically removes the given highlight ids from a page
// and inserts the replacement. This is the persistence step of a highlight
// merge; partial application must never be observable.
func (m *MetadataStore) ReplaceHighlights(ctx context.Context, pageID string, removeIDs []string, replacement *Highlight) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range removeIDs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM highlights WHERE id = ? AND page_id = ?`, id, pageID); err != nil {
			return fmt.Errorf("remove highlight %s: %w", id, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO highlights (`+highlightColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		replacement.ID, replacement.PageID, replacement.UserID,
		replacement.Quote, replacement.Prefix, replacement.Suffix, replacement.Patch,
		replacement.Annotation, nanoOrNull(replacement.SharedAt),
		replacement.CreatedAt.UnixNano(), replacement.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert replacement highlight %s: %w", replacement.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit highlight merge: %w", err)
	}
	return nil
}

// PageUpdate is a partial page update. Nil pointer fields are left
// unchanged. ArchivedAt and SharedAt are tri-state: unset, set, or cleared.
type PageUpdate struct {
	Title                      *string
	Author                     *string
	Description                *string
	Content                    *string
	URL                        *string
	Hash                       *string
	Slug                       *string
	SiteName                   *string
	UploadFileID               *string
	PageType                   *PageType
	Labels                     *[]Label
	ReadingProgress            *float64
	ReadingProgressAnchorIndex *int
	SavedAt                    *time.Time
	ArchivedAt                 OptionalTime
	SharedAt                   OptionalTime
}

// OptionalTime is a tri-state nullable timestamp for partial updates.
type OptionalTime struct {
	Valid bool
	Time  *time.Time
}

// SetTime marks the field for update to t.
func SetTime(t time.Time) OptionalTime {
	return OptionalTime{Valid: true, Time: &t}
}

// ClearTime marks the field for update to NULL.
func ClearTime() OptionalTime {
	return OptionalTime{Valid: true}
}

func (u PageUpdate) apply(p *SavedItem) {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Author != nil {
		p.Author = *u.Author
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Content != nil {
		p.Content = *u.Content
	}
	if u.URL != nil {
		p.URL = *u.URL
	}
	if u.Hash != nil {
		p.Hash = *u.Hash
	}
	if u.Slug != nil {
		p.Slug = *u.Slug
	}
	if u.SiteName != nil {
		p.SiteName = *u.SiteName
	}
	if u.UploadFileID != nil {
		p.UploadFileID = *u.UploadFileID
	}
	if u.PageType != nil {
		p.PageType = *u.PageType
	}
	if u.Labels != nil {
		p.Labels = *u.Labels
	}
	if u.ReadingProgress != nil {
		p.ReadingProgress = *u.ReadingProgress
	}
	if u.ReadingProgressAnchorIndex != nil {
		p.ReadingProgressAnchorIndex = *u.ReadingProgressAnchorIndex
	}
	if u.SavedAt != nil {
		p.SavedAt = *u.SavedAt
	}
	if u.ArchivedAt.Valid {
		p.ArchivedAt = u.ArchivedAt.Time
	}
	if u.SharedAt.Valid {
		p.SharedAt = u.SharedAt.Time
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPage(row rowScanner) (*SavedItem, error) {
	var (
		p          SavedItem
		pageType   string
		labelsJSON string
		createdAt  int64
		savedAt    int64
		archivedAt sql.NullInt64
		sharedAt   sql.NullInt64
	)

	err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Author, &p.Description,
		&p.Content, &p.URL, &p.Hash, &p.UploadFileID, &pageType, &p.Slug,
		&p.SiteName, &labelsJSON, &p.ReadingProgress, &p.ReadingProgressAnchorIndex,
		&createdAt, &savedAt, &archivedAt, &sharedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan page: %w", err)
	}

	p.PageType = PageType(pageType)
	if err := json.Unmarshal([]byte(labelsJSON), &p.Labels); err != nil {
		return nil, fmt.Errorf("unmarshal labels: %w", err)
	}
	p.CreatedAt = time.Unix(0, createdAt).UTC()
	p.SavedAt = time.Unix(0, savedAt).UTC()
	p.ArchivedAt = timeOrNil(archivedAt)
	p.SharedAt = timeOrNil(sharedAt)

	return &p, nil
}

func scanHighlight(row rowScanner) (*Highlight, error) {
	var (
		h          Highlight
		annotation sql.NullString
		sharedAt   sql.NullInt64
		createdAt  int64
		updatedAt  int64
	)

	err := row.Scan(&h.ID, &h.PageID, &h.UserID, &h.Quote, &h.Prefix, &h.Suffix,
		&h.Patch, &annotation, &sharedAt, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan highlight: %w", err)
	}

	if annotation.Valid {
		h.Annotation = &annotation.String
	}
	h.SharedAt = timeOrNil(sharedAt)
	h.CreatedAt = time.Unix(0, createdAt).UTC()
	h.UpdatedAt = time.Unix(0, updatedAt).UTC()

	return &h, nil
}

func nanoOrNull(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

func timeOrNil(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}
