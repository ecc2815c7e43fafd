package pdfprim

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"testing"
)

// fakePager serves one text primitive per page and fails on chosen pages.
type fakePager struct {
	pages   int
	fail    map[int]bool
	panicOn int
	calls   int
}

func (f *fakePager) PageCount() int { return f.pages }

func (f *fakePager) Pages() iter.Seq[int] {
	return func(yield func(int) bool) {
		for p := 1; p <= f.pages; p++ {
			if !yield(p) {
				return
			}
		}
	}
}

func (f *fakePager) Primitives(page int) ([]Primitive, error) {
	f.calls++
	if page == f.panicOn {
		panic("corrupt xref")
	}
	if f.fail[page] {
		return nil, fmt.Errorf("flate: corrupt input")
	}
	return []Primitive{{Kind: KindText, Page: page, Text: fmt.Sprintf("page %d text", page), FontSize: 11, HasFont: true}}, nil
}

func TestExtract_PartialFailure(t *testing.T) {
	// WHAT: Page 6 of 10 fails; the other 9 pages are kept with one warning.
	// WHY: Partial extraction is preferred over losing the whole document.
	p := &fakePager{pages: 10, fail: map[int]bool{6: true}}
	ext, err := Extract(context.Background(), p)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(ext.Primitives) != 9 {
		t.Errorf("primitives = %d, want 9", len(ext.Primitives))
	}
	for _, prim := range ext.Primitives {
		if prim.Page == 6 {
			t.Error("page 6 primitives should be absent")
		}
	}
	if len(ext.Warnings) != 1 || ext.Warnings[0].Page != 6 {
		t.Fatalf("warnings = %+v, want one for page 6", ext.Warnings)
	}
	if ext.PageCount != 10 {
		t.Errorf("page count = %d", ext.PageCount)
	}
	if ext.Quality == nil || ext.Quality.PageCount != 10 {
		t.Errorf("quality = %+v", ext.Quality)
	}
}

func TestExtract_PagePanicBecomesWarning(t *testing.T) {
	p := &fakePager{pages: 3, panicOn: 2}
	ext, err := Extract(context.Background(), p)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(ext.Primitives) != 2 || len(ext.Warnings) != 1 || ext.Warnings[0].Page != 2 {
		t.Errorf("extraction = %+v", ext)
	}
}

func TestExtract_EmptyDocument(t *testing.T) {
	_, err := Extract(context.Background(), &fakePager{})
	if !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("err = %v, want ErrEmptyDocument", err)
	}
}

func TestExtract_CancelledBetweenPages(t *testing.T) {
	// WHAT: A cancelled context stops extraction before the next page.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &fakePager{pages: 5}
	if _, err := Extract(ctx, p); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if p.calls != 0 {
		t.Errorf("pages decoded after cancel = %d", p.calls)
	}
}

func TestQuality_NeedsOCR(t *testing.T) {
	tests := []struct {
		name string
		q    Quality
		want bool
	}{
		{"scanned", Quality{CharsPerPage: 10, HasImageStreams: true, PrintableRatio: 1}, true},
		{"garbled", Quality{CharsPerPage: 900, PrintableRatio: 0.5}, true},
		{"clean", Quality{CharsPerPage: 900, PrintableRatio: 0.99, WordlikeRatio: 0.9}, false},
		{"glyph soup", Quality{CharsPerPage: 900, PrintableRatio: 0.99, WordlikeRatio: 0.1}, true},
		{"short text no images", Quality{CharsPerPage: 10, PrintableRatio: 1}, false},
	}
	for _, tt := range tests {
		if got := tt.q.NeedsOCR(); got != tt.want {
			t.Errorf("%s: NeedsOCR = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestComputeQuality(t *testing.T) {
	prims := []Primitive{
		{Kind: KindText, Text: "normal words here"},
		{Kind: KindImage},
		{Kind: KindTable, CellText: "a\tb"},
	}
	q := computeQuality(2, prims, false)
	if !q.HasImageStreams {
		t.Error("image primitive should set HasImageStreams")
	}
	if q.PrintableRatio < 0.99 {
		t.Errorf("printable ratio = %f", q.PrintableRatio)
	}
	if q.CharsPerPage <= 0 {
		t.Errorf("chars per page = %f", q.CharsPerPage)
	}
	if math.Abs(q.WordlikeRatio-0.6) > 1e-9 {
		t.Errorf("wordlike ratio = %f, want 0.6", q.WordlikeRatio)
	}
}

func TestTextScan(t *testing.T) {
	tests := []struct {
		name      string
		in        []string
		printable float64
		wordlike  float64
		visible   int
	}{
		{"empty", nil, 1, 0, 0},
		{"words", []string{"hello world", "again"}, 1, 1, 15},
		{"control bytes", []string{"ab\x01\x02"}, 0.5, 1, 2},
		{"private use", []string{"\ue000\ue001 ok"}, 0.6, 1, 2},
		{"one glyph per token", []string{"a b c d e f"}, 1, 0, 6},
		{"no spaces", []string{"averyveryverylongrunoftext"}, 1, 0, 26},
	}
	for _, tt := range tests {
		var ts textScan
		for _, s := range tt.in {
			ts.add(s)
		}
		if got := ts.printableRatio(); math.Abs(got-tt.printable) > 1e-9 {
			t.Errorf("%s: printable = %f, want %f", tt.name, got, tt.printable)
		}
		if got := ts.wordlikeRatio(); math.Abs(got-tt.wordlike) > 1e-9 {
			t.Errorf("%s: wordlike = %f, want %f", tt.name, got, tt.wordlike)
		}
		if ts.visible != tt.visible {
			t.Errorf("%s: visible = %d, want %d", tt.name, ts.visible, tt.visible)
		}
	}
}
