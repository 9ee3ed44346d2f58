package store

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/char/html"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
)

// HTMLAnalyzerName is the analyzer for rendered page content: markup is
// stripped before tokenization so tags never match search terms, while the
// stored text remains intact.
const HTMLAnalyzerName = "html_text"

// buildIndexMapping creates the index mapping for saved-item documents.
//
//   - content: html char filter -> unicode tokenizer -> lowercase
//   - title/author/description/slug/siteName: standard analyzer
//   - userId/url/uploadFileId/pageType: exact match (keyword)
//   - labels: sub-document, labels.name exact match (lowercased on write)
//   - readingProgress / readingProgressAnchorIndex: numeric
//   - createdAt/savedAt/archivedAt/sharedAt: datetime
func buildIndexMapping() (mapping.IndexMapping, error) {
	im := bleve.NewIndexMapping()

	err := im.AddCustomAnalyzer(HTMLAnalyzerName, map[string]interface{}{
		"type":         custom.Name,
		"char_filters": []string{html.Name},
		"tokenizer":    unicode.Name,
		"token_filters": []string{
			lowercase.Name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("add html analyzer: %w", err)
	}

	doc := bleve.NewDocumentMapping()

	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = HTMLAnalyzerName
	contentField.IncludeInAll = false
	doc.AddFieldMappingsAt(FieldContent, contentField)

	for _, name := range []string{FieldTitle, FieldAuthor, FieldDescription, FieldSlug, FieldSiteName} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = standard.Name
		fm.IncludeInAll = false
		doc.AddFieldMappingsAt(name, fm)
	}

	for _, name := range []string{FieldUserID, FieldURL, FieldUploadFileID, FieldPageType} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.IncludeInAll = false
		doc.AddFieldMappingsAt(name, fm)
	}

	for _, name := range []string{FieldReadingProgress, FieldProgressAnchor} {
		fm := bleve.NewNumericFieldMapping()
		fm.IncludeInAll = false
		doc.AddFieldMappingsAt(name, fm)
	}

	for _, name := range []string{FieldCreatedAt, FieldSavedAt, FieldArchivedAt, FieldSharedAt} {
		fm := bleve.NewDateTimeFieldMapping()
		fm.IncludeInAll = false
		doc.AddFieldMappingsAt(name, fm)
	}

	labelName := bleve.NewTextFieldMapping()
	labelName.Analyzer = keyword.Name
	labelName.IncludeInAll = false
	labels := bleve.NewDocumentMapping()
	labels.AddFieldMappingsAt("name", labelName)
	doc.AddSubDocumentMapping("labels", labels)

	im.DefaultMapping = doc
	return im, nil
}
