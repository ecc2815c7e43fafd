package pdfprim

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnreadablePDF is returned when the input is not a PDF, is corrupt,
	// or is encrypted and no usable password was supplied.
	ErrUnreadablePDF = errors.New("pdfprim: unreadable pdf")
	// ErrEmptyDocument is returned when the PDF has zero pages.
	ErrEmptyDocument = errors.New("pdfprim: document has no pages")
)

// Kind identifies what a primitive represents.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindTable Kind = "table"
)

// BBox is an axis-aligned rectangle in PDF user space (origin bottom-left).
type BBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Empty reports whether the box has no area.
func (b BBox) Empty() bool { return b.X1 <= b.X0 || b.Y1 <= b.Y0 }

// Contains reports whether the point lies inside the box, with tolerance tol.
func (b BBox) Contains(x, y, tol float64) bool {
	return x >= b.X0-tol && x <= b.X1+tol && y >= b.Y0-tol && y <= b.Y1+tol
}

// Union returns the smallest box enclosing both.
func (b BBox) Union(o BBox) BBox {
	if b == (BBox{}) {
		return o
	}
	if o == (BBox{}) {
		return b
	}
	return BBox{
		X0: math.Min(b.X0, o.X0),
		Y0: math.Min(b.Y0, o.Y0),
		X1: math.Max(b.X1, o.X1),
		Y1: math.Max(b.Y1, o.Y1),
	}
}

// Primitive is one raw unit of page content, before classification.
// It is a plain value: the extractor never rewrites it once emitted.
type Primitive struct {
	Kind Kind `json:"kind"`
	Page int  `json:"page"`

	// Text runs only.
	Text     string  `json:"text,omitempty"`
	FontSize float64 `json:"font_size,omitempty"`
	IsBold   bool    `json:"is_bold,omitempty"`
	// HasFont is false when the run had no resolvable font metadata.
	HasFont bool `json:"has_font"`

	BBox BBox `json:"bbox"`

	// CellText is the text found inside a table region (tables only).
	CellText string `json:"cell_text,omitempty"`
}

// ExtractionWarning records a page that could not be decoded.
type ExtractionWarning struct {
	Page   int    `json:"page"`
	Reason string `json:"reason"`
}

func (w ExtractionWarning) String() string {
	return fmt.Sprintf("page %d: %s", w.Page, w.Reason)
}

// Extraction is the primitive stream of a whole document.
type Extraction struct {
	PageCount  int                 `json:"page_count"`
	Primitives []Primitive         `json:"primitives"`
	Warnings   []ExtractionWarning `json:"warnings,omitempty"`
	Quality    *Quality            `json:"quality,omitempty"`
}
