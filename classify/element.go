package classify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hazyhaar/pdfstruct/pdfprim"
)

// ErrUnknownType is returned by ParseElementType for names outside the
// seven element types.
var ErrUnknownType = errors.New("classify: unknown element type")

// ElementType is the structural role of an element.
type ElementType string

const (
	Title     ElementType = "title"
	Subtitle  ElementType = "subtitle"
	Section   ElementType = "section"
	Paragraph ElementType = "paragraph"
	ListItem  ElementType = "list_item"
	Table     ElementType = "table"
	Image     ElementType = "image"
)

// AllTypes lists every element type in rule order.
var AllTypes = []ElementType{Title, Subtitle, Section, Paragraph, ListItem, Table, Image}

// ParseElementType validates a type name.
func ParseElementType(s string) (ElementType, error) {
	t := ElementType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
	return t, nil
}

// Valid reports whether t is one of the seven element types.
func (t ElementType) Valid() bool {
	for _, v := range AllTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Textual reports whether elements of this type carry text and hierarchy.
func (t ElementType) Textual() bool { return t != Table && t != Image }

// Element is one classified structural unit of a document.
type Element struct {
	ID         int           `json:"id"`
	DocumentID string        `json:"document_id"`
	Type       ElementType   `json:"type"`
	PageNumber int           `json:"page_number"`
	Text       string        `json:"text"`
	FontSize   *float64      `json:"font_size"`
	IsBold     *bool         `json:"is_bold"`
	Depth      int           `json:"depth"`
	BBox       *pdfprim.BBox `json:"bbox,omitempty"`
	OrderIndex int           `json:"order_index"`
	CellText   string        `json:"cell_text,omitempty"`
}

// Warning is a non-fatal classification problem. The primitive it refers
// to was still emitted as a best-effort paragraph, or dropped when empty.
type Warning struct {
	Page   int    `json:"page"`
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

func (w Warning) String() string {
	return fmt.Sprintf("page %d primitive %d: %s", w.Page, w.Index, w.Reason)
}

// WordCount splits on whitespace.
func WordCount(s string) int { return len(strings.Fields(s)) }
