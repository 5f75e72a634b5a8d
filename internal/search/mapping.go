package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping returns the mapping for item documents.
//
// Name is stemmed (English) with term vectors for highlighting; brand is
// lowercased and split without stemming. Keyword fields keep whole values so
// term filters and facets see "One Size" rather than "one" and "size".
func buildIndexMapping() mapping.IndexMapping {
	doc := bleve.NewDocumentMapping()

	doc.AddFieldMappingsAt(fieldName, textField(en.AnalyzerName, true))
	doc.AddFieldMappingsAt(fieldBrand, textField(simple.Name, true))

	idField := bleve.NewTextFieldMapping()
	idField.Analyzer = keyword.Name
	doc.AddFieldMappingsAt(fieldID, idField)

	for _, f := range []string{fieldBrandExact, fieldColor, fieldSize, fieldTags} {
		doc.AddFieldMappingsAt(f, textField(keyword.Name, false))
	}

	for _, f := range []string{fieldPrice, fieldCreatedAt, fieldUpdatedAt} {
		num := bleve.NewNumericFieldMapping()
		num.Store = true
		doc.AddFieldMappingsAt(f, num)
	}

	doc.AddFieldMappingsAt(fieldHasPrice, bleve.NewBooleanFieldMapping())
	doc.AddFieldMappingsAt(fieldLiked, bleve.NewBooleanFieldMapping())

	m := bleve.NewIndexMapping()
	m.DefaultAnalyzer = en.AnalyzerName
	m.DefaultMapping = doc
	return m
}

func textField(analyzer string, vectors bool) *mapping.FieldMapping {
	fm := bleve.NewTextFieldMapping()
	fm.Analyzer = analyzer
	fm.Store = true
	fm.IncludeTermVectors = vectors
	return fm
}
