// Package stats derives structure metrics from classified elements.
// Every function here is pure and total: empty input yields zeros, never
// NaN or Inf.
package stats

import (
	"unicode/utf8"

	"github.com/hazyhaar/pdfstruct/classify"
)

// DocumentStatistics summarises one document's element list.
type DocumentStatistics struct {
	DocumentID string `json:"document_id,omitempty"`

	TitleCount     int `json:"title_count"`
	SubtitleCount  int `json:"subtitle_count"`
	SectionCount   int `json:"section_count"`
	ParagraphCount int `json:"paragraph_count"`
	ListItemCount  int `json:"list_item_count"`
	TableCount     int `json:"table_count"`
	ImageCount     int `json:"image_count"`
	ElementCount   int `json:"element_count"`
	PageCount      int `json:"page_count"`

	AvgTextDensityPerPage float64 `json:"avg_text_density_per_page"`
	AvgHierarchicalDepth  float64 `json:"avg_hierarchical_depth"`
	AvgParagraphLength    float64 `json:"avg_paragraph_length"`

	// SectionDistribution maps page number to section count. Pages without
	// sections are absent.
	SectionDistribution map[int]int `json:"section_distribution"`
}

// Count returns the count for one element type.
func (s DocumentStatistics) Count(t classify.ElementType) int {
	switch t {
	case classify.Title:
		return s.TitleCount
	case classify.Subtitle:
		return s.SubtitleCount
	case classify.Section:
		return s.SectionCount
	case classify.Paragraph:
		return s.ParagraphCount
	case classify.ListItem:
		return s.ListItemCount
	case classify.Table:
		return s.TableCount
	case classify.Image:
		return s.ImageCount
	}
	return 0
}

// Counts returns the per-type counts as a map.
func (s DocumentStatistics) Counts() map[classify.ElementType]int {
	m := make(map[classify.ElementType]int, len(classify.AllTypes))
	for _, t := range classify.AllTypes {
		m[t] = s.Count(t)
	}
	return m
}

// Compute derives the statistics of one document. Text density divides by
// the page count, so pages without text dilute it.
func Compute(elements []classify.Element, pageCount int) DocumentStatistics {
	s := DocumentStatistics{
		ElementCount:        len(elements),
		PageCount:           pageCount,
		SectionDistribution: make(map[int]int),
	}
	var chars, depthSum, depthN, words int
	for _, e := range elements {
		if s.DocumentID == "" {
			s.DocumentID = e.DocumentID
		}
		switch e.Type {
		case classify.Title:
			s.TitleCount++
		case classify.Subtitle:
			s.SubtitleCount++
		case classify.Section:
			s.SectionCount++
			s.SectionDistribution[e.PageNumber]++
		case classify.Paragraph:
			s.ParagraphCount++
			words += classify.WordCount(e.Text)
		case classify.ListItem:
			s.ListItemCount++
		case classify.Table:
			s.TableCount++
		case classify.Image:
			s.ImageCount++
		}
		if e.Type.Textual() {
			chars += utf8.RuneCountInString(e.Text)
			depthSum += e.Depth
			depthN++
		}
	}
	s.AvgTextDensityPerPage = ratio(chars, pageCount)
	s.AvgHierarchicalDepth = ratio(depthSum, depthN)
	s.AvgParagraphLength = ratio(words, s.ParagraphCount)
	return s
}

// GlobalStatistics folds many documents.
type GlobalStatistics struct {
	DocumentCount int                          `json:"document_count"`
	TotalsByType  map[classify.ElementType]int `json:"totals_by_type"`
	TotalElements int                          `json:"total_elements"`

	// Means across documents, each document weighing the same.
	AvgTextDensityPerPage float64 `json:"avg_text_density_per_page"`
	AvgHierarchicalDepth  float64 `json:"avg_hierarchical_depth"`
	AvgParagraphLength    float64 `json:"avg_paragraph_length"`

	AvgTitlesPerDocument   float64 `json:"avg_titles_per_document"`
	AvgSectionsPerDocument float64 `json:"avg_sections_per_document"`
	AvgTablesPerDocument   float64 `json:"avg_tables_per_document"`
	AvgImagesPerDocument   float64 `json:"avg_images_per_document"`
}

// Fold computes global statistics as plain arithmetic means of the
// per-document values. totals carries raw element counts per type, as
// stored; when nil it is summed from docs.
func Fold(docs []DocumentStatistics, totals map[classify.ElementType]int) GlobalStatistics {
	g := GlobalStatistics{
		DocumentCount: len(docs),
		TotalsByType:  make(map[classify.ElementType]int, len(classify.AllTypes)),
	}
	for _, t := range classify.AllTypes {
		g.TotalsByType[t] = 0
	}
	if totals != nil {
		for t, n := range totals {
			g.TotalsByType[t] += n
		}
	} else {
		for _, d := range docs {
			for _, t := range classify.AllTypes {
				g.TotalsByType[t] += d.Count(t)
			}
		}
	}
	for _, n := range g.TotalsByType {
		g.TotalElements += n
	}
	if len(docs) == 0 {
		return g
	}

	var density, depth, length float64
	var titles, sections, tables, images int
	for _, d := range docs {
		density += d.AvgTextDensityPerPage
		depth += d.AvgHierarchicalDepth
		length += d.AvgParagraphLength
		titles += d.TitleCount
		sections += d.SectionCount
		tables += d.TableCount
		images += d.ImageCount
	}
	n := float64(len(docs))
	g.AvgTextDensityPerPage = density / n
	g.AvgHierarchicalDepth = depth / n
	g.AvgParagraphLength = length / n
	g.AvgTitlesPerDocument = float64(titles) / n
	g.AvgSectionsPerDocument = float64(sections) / n
	g.AvgTablesPerDocument = float64(tables) / n
	g.AvgImagesPerDocument = float64(images) / n
	return g
}

func ratio(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	return float64(num) / float64(den)
}
