package pdfprim

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hazyhaar/pdfstruct/internal/pdftest"
)

func TestOpen_NotAPDF(t *testing.T) {
	// WHAT: Arbitrary bytes are rejected as unreadable.
	// WHY: Fatal input errors must be distinguishable from empty results.
	for _, data := range [][]byte{
		[]byte("this is not a pdf"),
		{},
		buildTestPDF("Helvetica", "BT /F1 12 Tf 72 720 Td (x) Tj ET")[:40],
	} {
		_, err := OpenBytes(data)
		if !errors.Is(err, ErrUnreadablePDF) {
			t.Errorf("Open(%q...) err = %v, want ErrUnreadablePDF", truncate(data, 20), err)
		}
	}
}

func TestOpen_NoPages(t *testing.T) {
	// WHAT: A page tree without pages fails; it never yields an empty success.
	_, err := OpenBytes(buildTestPDF("Helvetica"))
	if !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("err = %v, want ErrEmptyDocument", err)
	}
	if errors.Is(err, ErrUnreadablePDF) {
		t.Errorf("empty document must not also be ErrUnreadablePDF: %v", err)
	}
}

func TestDocument_CorruptPageSkipped(t *testing.T) {
	// WHAT: Page 2 of 3 has an undecodable FlateDecode stream. Open succeeds,
	// pages 1 and 3 are extracted and page 2 becomes one warning.
	// WHY: One damaged page must not cost the whole document.
	raw := buildTestPDF("Helvetica",
		pdftest.Text(11, 72, 720, "first page"),
		pdftest.Corrupt,
		pdftest.Text(11, 72, 720, "third page"),
	)
	doc, err := OpenBytes(raw)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := doc.Primitives(2); err == nil {
		t.Error("Primitives(2) should fail on the corrupt stream")
	}

	ext, err := doc.Extract(context.Background())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if ext.PageCount != 3 {
		t.Errorf("page count = %d", ext.PageCount)
	}
	if len(ext.Primitives) != 2 || ext.Primitives[0].Page != 1 || ext.Primitives[1].Page != 3 {
		t.Fatalf("primitives = %+v, want pages 1 and 3", ext.Primitives)
	}
	if ext.Primitives[1].Text != "third page" {
		t.Errorf("text = %q", ext.Primitives[1].Text)
	}
	if len(ext.Warnings) != 1 || ext.Warnings[0].Page != 2 {
		t.Errorf("warnings = %+v, want one for page 2", ext.Warnings)
	}
}

func TestDocument_TextRunWithFontMetadata(t *testing.T) {
	// WHAT: A real PDF yields text runs with size and bold from the font dict.
	// WHY: Classification depends entirely on this typography.
	raw := buildTestPDF("Helvetica-Bold", "BT /F1 18 Tf 72 720 Td (Annual Report) Tj ET")
	doc, err := OpenBytes(raw)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if doc.PageCount() != 1 {
		t.Fatalf("page count = %d", doc.PageCount())
	}
	prims, err := doc.Primitives(1)
	if err != nil {
		t.Fatalf("primitives: %v", err)
	}
	if len(prims) != 1 {
		t.Fatalf("primitives = %+v, want 1", prims)
	}
	p := prims[0]
	if p.Text != "Annual Report" || p.FontSize != 18 || !p.IsBold || !p.HasFont || p.Page != 1 {
		t.Errorf("primitive = %+v", p)
	}
}

func TestDocument_PagesInOrder(t *testing.T) {
	raw := buildTestPDF("Helvetica",
		"BT /F1 11 Tf 72 720 Td (first page) Tj ET",
		"BT /F1 11 Tf 72 720 Td (second page) Tj ET",
		"BT /F1 11 Tf 72 720 Td (third page) Tj ET",
	)
	doc, err := OpenBytes(raw)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var pages []int
	for p := range doc.Pages() {
		pages = append(pages, p)
	}
	if fmt.Sprint(pages) != "[1 2 3]" {
		t.Errorf("pages = %v", pages)
	}

	ext, err := doc.Extract(context.Background())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(ext.Primitives) != 3 || len(ext.Warnings) != 0 {
		t.Fatalf("extraction = %+v", ext)
	}
	for i, p := range ext.Primitives {
		if p.Page != i+1 {
			t.Errorf("primitive %d page = %d", i, p.Page)
		}
	}
	if ext.Primitives[1].Text != "second page" {
		t.Errorf("text = %q", ext.Primitives[1].Text)
	}
}

func TestDocument_ImageXObject(t *testing.T) {
	// WHAT: An image XObject placed with cm becomes an image primitive.
	raw := buildTestPDF("Helvetica", "q 100 0 0 100 72 692 cm /Im1 Do Q")
	doc, err := OpenBytes(raw)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	prims, err := doc.Primitives(1)
	if err != nil {
		t.Fatalf("primitives: %v", err)
	}
	if len(prims) != 1 || prims[0].Kind != KindImage {
		t.Fatalf("primitives = %+v, want one image", prims)
	}
	if prims[0].BBox != (BBox{X0: 72, Y0: 692, X1: 172, Y1: 792}) {
		t.Errorf("bbox = %+v", prims[0].BBox)
	}
	if !doc.HasImageStreams() {
		t.Error("HasImageStreams = false")
	}
}

func TestDocument_PageOutOfRange(t *testing.T) {
	doc, err := OpenBytes(buildTestPDF("Helvetica", "BT ET"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := doc.Primitives(0); err == nil {
		t.Error("expected error for page 0")
	}
	if _, err := doc.Primitives(2); err == nil {
		t.Error("expected error for page 2")
	}
}

// --- PDF test helpers ---

func buildTestPDF(baseFont string, streams ...string) []byte {
	return pdftest.Build(baseFont, streams...)
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return bytes.Clone(b)
}
