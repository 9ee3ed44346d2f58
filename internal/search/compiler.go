// Package search compiles typed filter parameters into boolean index
// queries and paginates the results with offset cursors.
package search

import (
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/readstash/readstash/internal/store"
)

// TextSearchFields are the fields a free-text query matches against.
// A document matches if any field matches.
var TextSearchFields = []string{
	store.FieldTitle,
	store.FieldContent,
	store.FieldAuthor,
	store.FieldDescription,
	store.FieldSlug,
	store.FieldSiteName,
}

// ReadingProgressThreshold separates "read" from "unread" items.
//
// The threshold value and the comparison direction (unread requires
// progress >= threshold) are an external behavioral contract inherited from
// the product's save-progress flow. Do not flip them to match the labels'
// natural meaning.
const ReadingProgressThreshold = 98.0

// Compile translates filter parameters into a boolean query tree.
//
// It is pure: params are not mutated and identical input yields an
// identical tree. Every compiled query carries a userId equality clause —
// the index holds all users' documents and this clause is the only
// isolation mechanism.
func Compile(userID string, params store.SearchParams) *query.BooleanQuery {
	q := bleve.NewBooleanQuery()

	user := bleve.NewTermQuery(userID)
	user.SetField(store.FieldUserID)
	q.AddMust(user)

	if text := strings.TrimSpace(params.Query); text != "" {
		fields := bleve.NewDisjunctionQuery()
		for _, field := range TextSearchFields {
			m := bleve.NewMatchQuery(text)
			m.SetField(field)
			fields.AddQuery(m)
		}
		q.AddMust(fields)
	}

	if params.TypeFilter != "" {
		pt := bleve.NewTermQuery(string(params.TypeFilter))
		pt.SetField(store.FieldPageType)
		q.AddMust(pt)
	}

	switch params.InFilter {
	case store.InArchive:
		q.AddMust(existsClause(store.FieldArchivedAt))
	case store.InInbox:
		q.AddMustNot(existsClause(store.FieldArchivedAt))
	}

	switch params.ReadFilter {
	case store.ReadUnread:
		q.AddMust(progressAtLeast(ReadingProgressThreshold))
	case store.ReadRead:
		q.AddMust(progressBelow(ReadingProgressThreshold))
	}

	if params.NotNullField != "" {
		q.AddMust(existsClause(params.NotNullField))
	}

	for _, entry := range params.IncludeLabels {
		if clause := labelClause(entry); clause != nil {
			q.AddMust(clause)
		}
	}

	for _, entry := range params.ExcludeLabels {
		if clause := labelClause(entry); clause != nil {
			q.AddMustNot(clause)
		}
	}

	return q
}

// labelClause builds a disjunction over the entry's label names: the page
// matches if it carries any of them. Names are lowercased to pair with the
// lowercased labels.name index field.
func labelClause(entry store.LabelFilter) query.Query {
	if len(entry.Labels) == 0 {
		return nil
	}

	dis := bleve.NewDisjunctionQuery()
	for _, name := range entry.Labels {
		t := bleve.NewTermQuery(strings.ToLower(name))
		t.SetField(store.FieldLabelsName)
		dis.AddQuery(t)
	}
	return dis
}

// existsBound is the far end of date-field existence ranges. Any indexed
// timestamp falls inside [epoch, existsBound). Bleve stores datetimes as
// int64 nanoseconds, so the bound must stay below the unix-nano ceiling
// (mid-2262); anything later makes the whole request fail.
var existsBound = time.Date(2262, 1, 1, 0, 0, 0, 0, time.UTC)

// existsClause builds a field-presence query. Date fields are indexed as
// numeric timestamps, so presence is a range over all representable time;
// term fields use a match-anything wildcard.
func existsClause(field string) query.Query {
	if store.DateFields[field] {
		dr := bleve.NewDateRangeQuery(time.Unix(0, 0).UTC(), existsBound)
		dr.SetField(field)
		return dr
	}

	w := bleve.NewWildcardQuery("*")
	w.SetField(field)
	return w
}

func progressAtLeast(threshold float64) query.Query {
	incl := true
	nr := bleve.NewNumericRangeInclusiveQuery(&threshold, nil, &incl, nil)
	nr.SetField(store.FieldReadingProgress)
	return nr
}

func progressBelow(threshold float64) query.Query {
	excl := false
	nr := bleve.NewNumericRangeInclusiveQuery(nil, &threshold, nil, &excl)
	nr.SetField(store.FieldReadingProgress)
	return nr
}
