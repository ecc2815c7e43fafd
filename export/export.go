// Package export renders stored analyses as CSV and JSON documents.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/hazyhaar/pdfstruct/classify"
	"github.com/hazyhaar/pdfstruct/stats"
	"github.com/hazyhaar/pdfstruct/store"
)

// TableRow is one detected table flattened for export.
type TableRow struct {
	DocumentID string      `json:"document_id"`
	ElementID  int         `json:"element_id"`
	Page       int         `json:"page"`
	Position   int         `json:"position"`
	BBox       *[4]float64 `json:"bbox,omitempty"` // x0, y0, x1, y1
	CellText   string      `json:"cell_text"`
}

// TableRows selects the table elements, in document order.
func TableRows(elements []classify.Element) []TableRow {
	var rows []TableRow
	for _, e := range elements {
		if e.Type != classify.Table {
			continue
		}
		r := TableRow{
			DocumentID: e.DocumentID,
			ElementID:  e.ID,
			Page:       e.PageNumber,
			Position:   e.OrderIndex,
			CellText:   e.CellText,
		}
		if e.BBox != nil {
			r.BBox = &[4]float64{e.BBox.X0, e.BBox.Y0, e.BBox.X1, e.BBox.Y1}
		}
		rows = append(rows, r)
	}
	return rows
}

var tableHeader = []string{"document_id", "element_id", "page", "position", "x0", "y0", "x1", "y1", "cell_text"}

// WriteTableCSV writes table rows with their bounding boxes. Cell text keeps
// its tab and newline separators inside the quoted field.
func WriteTableCSV(w io.Writer, rows []TableRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tableHeader); err != nil {
		return fmt.Errorf("export: csv header: %w", err)
	}
	for _, r := range rows {
		rec := []string{r.DocumentID, strconv.Itoa(r.ElementID), strconv.Itoa(r.Page), strconv.Itoa(r.Position), "", "", "", "", r.CellText}
		if r.BBox != nil {
			for i, v := range r.BBox {
				rec[4+i] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("export: csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteElementsCSV writes the generic element layout. The first column is
// named after the filtered type ("List_Item_ID"), or "Element_ID" when typ
// is empty. Tables have no text, so their cell text fills Content.
func WriteElementsCSV(w io.Writer, typ classify.ElementType, elements []classify.Element) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{HeaderName(typ) + "_ID", "Page", "Type", "Content"}); err != nil {
		return fmt.Errorf("export: csv header: %w", err)
	}
	for _, e := range elements {
		content := e.Text
		if e.Type == classify.Table {
			content = e.CellText
		}
		if err := cw.Write([]string{strconv.Itoa(e.ID), strconv.Itoa(e.PageNumber), string(e.Type), content}); err != nil {
			return fmt.Errorf("export: csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// HeaderName title-cases each underscore-separated part of a type name.
func HeaderName(typ classify.ElementType) string {
	if typ == "" {
		return "Element"
	}
	c := cases.Title(language.Und)
	parts := strings.Split(string(typ), "_")
	for i, p := range parts {
		parts[i] = c.String(p)
	}
	return strings.Join(parts, "_")
}

// CSVFilename names a CSV download: "<file>_<type>.csv" or "<file>_all.csv".
func CSVFilename(filename string, typ classify.ElementType) string {
	suffix := "_all"
	if typ != "" {
		suffix = "_" + string(typ)
	}
	return filename + suffix + ".csv"
}

// SnapshotFilename names a JSON snapshot download.
func SnapshotFilename(filename string) string {
	return filename + "_metadata.json"
}

// Snapshot is the JSON export of one document: its metadata and the cached
// statistics (null when none were computed).
type Snapshot struct {
	DocumentInfo store.DocumentMeta        `json:"document_info"`
	Statistics   *stats.DocumentStatistics `json:"statistics"`
}

// NewSnapshot builds a Snapshot.
func NewSnapshot(doc store.DocumentMeta, st *stats.DocumentStatistics) Snapshot {
	return Snapshot{DocumentInfo: doc, Statistics: st}
}

// WriteJSON writes v as indented JSON without HTML escaping.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("export: json: %w", err)
	}
	return nil
}
