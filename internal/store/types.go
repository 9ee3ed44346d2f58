// Package store provides the persistence layer for saved items: a SQLite
// document-of-record database and a bleve full-text search index kept in
// sync as a denormalized, rebuildable projection.
package store

import (
	"strings"
	"time"
)

// PageType classifies a saved item.
type PageType string

const (
	PageTypeArticle    PageType = "article"
	PageTypeBook       PageType = "book"
	PageTypeFile       PageType = "file"
	PageTypeHighlights PageType = "highlights"
	PageTypeProfile    PageType = "profile"
	PageTypeUnknown    PageType = "unknown"
	PageTypeWebsite    PageType = "website"
)

// ValidPageType reports whether t is a known page type.
func ValidPageType(t PageType) bool {
	switch t {
	case PageTypeArticle, PageTypeBook, PageTypeFile, PageTypeHighlights,
		PageTypeProfile, PageTypeUnknown, PageTypeWebsite:
		return true
	}
	return false
}

// Label is a user-scoped tag. Only the name is embedded into the page
// document for search; identity (id, color) is owned by the caller and
// carried along as a denormalized snapshot.
type Label struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
}

// SavedItem is one saved page/file per (user, normalized URL).
type SavedItem struct {
	ID                         string
	UserID                     string
	Title                      string
	Author                     string
	Description                string
	Content                    string
	URL                        string
	Hash                       string
	UploadFileID               string
	PageType                   PageType
	Slug                       string
	SiteName                   string
	Labels                     []Label
	ReadingProgress            float64
	ReadingProgressAnchorIndex int
	CreatedAt                  time.Time
	SavedAt                    time.Time
	ArchivedAt                 *time.Time
	SharedAt                   *time.Time
}

// Highlight is a user annotation anchored to a position in a saved item.
type Highlight struct {
	ID         string
	PageID     string
	UserID     string
	Quote      string
	Prefix     string
	Suffix     string
	Patch      string
	Annotation *string
	SharedAt   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// InFilter selects the containment state: all items, archive only, or inbox
// only. Containment is derived solely from archivedAt presence.
type InFilter int

const (
	InAll InFilter = iota
	InArchive
	InInbox
)

// ReadFilter selects items by reading-progress threshold.
//
// The labels are inverted relative to intuition: "unread" keys off a high
// reading-progress value. The threshold (98) and comparison direction are an
// external behavioral contract and must not be corrected here.
type ReadFilter int

const (
	ReadAll ReadFilter = iota
	ReadRead
	ReadUnread
)

// LabelFilter is one include/exclude entry: a set of label names combined
// with OR. Entries themselves combine with AND (include) across entries.
type LabelFilter struct {
	Labels []string
}

// SearchParams are the typed filter parameters compiled into an index query.
// Label names must already be validated/owned by the calling user.
type SearchParams struct {
	Query         string
	TypeFilter    PageType // empty means no type filter
	InFilter      InFilter
	ReadFilter    ReadFilter
	NotNullField  string
	IncludeLabels []LabelFilter
	ExcludeLabels []LabelFilter
}

// Index field names. These are the wire contract with the search index;
// the query compiler and the document builder must agree on them.
const (
	FieldUserID          = "userId"
	FieldTitle           = "title"
	FieldAuthor          = "author"
	FieldDescription     = "description"
	FieldContent         = "content"
	FieldURL             = "url"
	FieldUploadFileID    = "uploadFileId"
	FieldPageType        = "pageType"
	FieldSlug            = "slug"
	FieldSiteName        = "siteName"
	FieldLabelsName      = "labels.name"
	FieldReadingProgress = "readingProgress"
	FieldProgressAnchor  = "readingProgressAnchorIndex"
	FieldCreatedAt       = "createdAt"
	FieldSavedAt         = "savedAt"
	FieldArchivedAt      = "archivedAt"
	FieldSharedAt        = "sharedAt"
)

// DateFields lists index fields holding timestamps. Field-existence clauses
// need to know this: date fields are indexed numerically and require a
// range-based existence check instead of a term wildcard.
var DateFields = map[string]bool{
	FieldCreatedAt:  true,
	FieldSavedAt:    true,
	FieldArchivedAt: true,
	FieldSharedAt:   true,
}

// searchDoc builds the denormalized index document for a page. Optional
// fields are omitted entirely when absent so that field-existence queries
// see them as missing. Label names are lowercased here; the query compiler
// lowercases at query time, giving case-insensitive exact matching.
func searchDoc(p *SavedItem) map[string]interface{} {
	doc := map[string]interface{}{
		FieldUserID:          p.UserID,
		FieldTitle:           p.Title,
		FieldContent:         p.Content,
		FieldURL:             p.URL,
		FieldPageType:        string(p.PageType),
		FieldSlug:            p.Slug,
		FieldReadingProgress: p.ReadingProgress,
		FieldProgressAnchor:  p.ReadingProgressAnchorIndex,
		FieldCreatedAt:       p.CreatedAt,
		FieldSavedAt:         p.SavedAt,
	}

	if p.Author != "" {
		doc[FieldAuthor] = p.Author
	}
	if p.Description != "" {
		doc[FieldDescription] = p.Description
	}
	if p.SiteName != "" {
		doc[FieldSiteName] = p.SiteName
	}
	if p.UploadFileID != "" {
		doc[FieldUploadFileID] = p.UploadFileID
	}
	if p.ArchivedAt != nil {
		doc[FieldArchivedAt] = *p.ArchivedAt
	}
	if p.SharedAt != nil {
		doc[FieldSharedAt] = *p.SharedAt
	}

	labels := make([]map[string]interface{}, 0, len(p.Labels))
	for _, l := range p.Labels {
		labels = append(labels, map[string]interface{}{
			"name": strings.ToLower(l.Name),
		})
	}
	doc["labels"] = labels

	return doc
}
