package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hazyhaar/pdfstruct/classify"
	"github.com/hazyhaar/pdfstruct/dbopen"
	"github.com/hazyhaar/pdfstruct/pdfprim"
)

// ElementFilter narrows LoadElements. Zero fields match everything.
type ElementFilter struct {
	Type classify.ElementType
	Page int
}

// SaveElements writes a document's elements in a single transaction. The
// document row must exist.
func (s *Store) SaveElements(ctx context.Context, documentID string, els []classify.Element) error {
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO elements (document_id, element_id, element_type, page_number, order_index,
			                      content, font_size, is_bold, depth, bbox, cell_text)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("store: prepare elements: %w", err)
		}
		defer stmt.Close()

		for _, e := range els {
			var size sql.NullFloat64
			if e.FontSize != nil {
				size = sql.NullFloat64{Float64: *e.FontSize, Valid: true}
			}
			var bold sql.NullInt64
			if e.IsBold != nil {
				bold = sql.NullInt64{Int64: boolInt(*e.IsBold), Valid: true}
			}
			var bbox sql.NullString
			if e.BBox != nil {
				b, err := json.Marshal(e.BBox)
				if err != nil {
					return fmt.Errorf("store: element %d bbox: %w", e.ID, err)
				}
				bbox = sql.NullString{String: string(b), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx,
				documentID, e.ID, string(e.Type), e.PageNumber, e.OrderIndex,
				e.Text, size, bold, e.Depth, bbox, e.CellText,
			); err != nil {
				return fmt.Errorf("store: insert element %d: %w", e.ID, err)
			}
		}
		return nil
	})
}

// LoadElements returns a document's elements in document order.
func (s *Store) LoadElements(ctx context.Context, documentID string, f ElementFilter) ([]classify.Element, error) {
	var b strings.Builder
	b.WriteString(`
		SELECT element_id, element_type, page_number, order_index, content,
		       font_size, is_bold, depth, bbox, cell_text
		FROM elements WHERE document_id = ?`)
	args := []any{documentID}
	if f.Type != "" {
		b.WriteString(" AND element_type = ?")
		args = append(args, string(f.Type))
	}
	if f.Page > 0 {
		b.WriteString(" AND page_number = ?")
		args = append(args, f.Page)
	}
	b.WriteString(" ORDER BY element_id")

	rows, err := s.DB.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("store: load elements: %w", err)
	}
	defer rows.Close()

	var out []classify.Element
	for rows.Next() {
		var (
			e    classify.Element
			typ  string
			size sql.NullFloat64
			bold sql.NullInt64
			bbox sql.NullString
		)
		if err := rows.Scan(&e.ID, &typ, &e.PageNumber, &e.OrderIndex, &e.Text,
			&size, &bold, &e.Depth, &bbox, &e.CellText); err != nil {
			return nil, fmt.Errorf("store: scan element: %w", err)
		}
		e.DocumentID = documentID
		e.Type = classify.ElementType(typ)
		if size.Valid {
			v := size.Float64
			e.FontSize = &v
		}
		if bold.Valid {
			v := bold.Int64 != 0
			e.IsBold = &v
		}
		if bbox.Valid {
			var bb pdfprim.BBox
			if err := json.Unmarshal([]byte(bbox.String), &bb); err != nil {
				return nil, fmt.Errorf("store: element %d bbox: %w", e.ID, err)
			}
			e.BBox = &bb
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// TypeCount is one row of ElementTypeSummary.
type TypeCount struct {
	Type  classify.ElementType `json:"type"`
	Count int                  `json:"count"`
}

// ElementTypeSummary counts stored elements per type across all documents,
// most frequent first.
func (s *Store) ElementTypeSummary(ctx context.Context) ([]TypeCount, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT element_type, COUNT(*) AS n FROM elements
		GROUP BY element_type ORDER BY n DESC, element_type`)
	if err != nil {
		return nil, fmt.Errorf("store: type summary: %w", err)
	}
	defer rows.Close()

	var out []TypeCount
	for rows.Next() {
		var tc TypeCount
		var typ string
		if err := rows.Scan(&typ, &tc.Count); err != nil {
			return nil, fmt.Errorf("store: scan type summary: %w", err)
		}
		tc.Type = classify.ElementType(typ)
		out = append(out, tc)
	}
	return out, rows.Err()
}

// ElementTotals is ElementTypeSummary as a map, every type present.
func (s *Store) ElementTotals(ctx context.Context) (map[classify.ElementType]int, error) {
	sum, err := s.ElementTypeSummary(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[classify.ElementType]int, len(classify.AllTypes))
	for _, t := range classify.AllTypes {
		m[t] = 0
	}
	for _, tc := range sum {
		m[tc.Type] = tc.Count
	}
	return m, nil
}

// SearchHit is one element matched by SearchContent.
type SearchHit struct {
	DocumentID string               `json:"document_id"`
	Filename   string               `json:"filename"`
	ElementID  int                  `json:"element_id"`
	Type       classify.ElementType `json:"type"`
	PageNumber int                  `json:"page_number"`
	Text       string               `json:"text"`
}

// SearchContent finds elements whose text contains term, case-insensitively
// for ASCII. documentID narrows the search when non-empty. limit <= 0 means
// no limit. Hits are ordered by filename, then page.
func (s *Store) SearchContent(ctx context.Context, term, documentID string, limit int) ([]SearchHit, error) {
	if strings.TrimSpace(term) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT e.document_id, d.filename, e.element_id, e.element_type, e.page_number, e.content
		FROM elements e JOIN documents d ON d.id = e.document_id
		WHERE e.content LIKE ? ESCAPE '\'
		  AND (? = '' OR e.document_id = ?)
		ORDER BY d.filename, e.page_number, e.order_index, e.document_id
		LIMIT ?`,
		"%"+escapeLike(term)+"%", documentID, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()

	var out []SearchHit
	for rows.Next() {
		var h SearchHit
		var typ string
		if err := rows.Scan(&h.DocumentID, &h.Filename, &h.ElementID, &typ, &h.PageNumber, &h.Text); err != nil {
			return nil, fmt.Errorf("store: scan hit: %w", err)
		}
		h.Type = classify.ElementType(typ)
		out = append(out, h)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
