package classify

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"reflect"
	"testing"

	"github.com/hazyhaar/pdfstruct/pdfprim"
)

func quiet() Option { return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))) }

func run(page int, text string, size float64, bold bool) pdfprim.Primitive {
	return pdfprim.Primitive{Kind: pdfprim.KindText, Page: page, Text: text, FontSize: size, IsBold: bold, HasFont: true}
}

func types(els []Element) []ElementType {
	out := make([]ElementType, len(els))
	for i, e := range els {
		out[i] = e.Type
	}
	return out
}

func depths(els []Element) []int {
	out := make([]int, len(els))
	for i, e := range els {
		out[i] = e.Depth
	}
	return out
}

func TestStep_Rules(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		name      string
		f         features
		depth     int
		wantType  ElementType
		wantDepth int
	}{
		{"title beats section", features{text: "Five words in a title", size: 16, bold: true, words: 5, hasFont: true}, 3, Title, 0},
		{"subtitle", features{size: 14, bold: true, words: 3, hasFont: true}, 4, Subtitle, 1},
		{"section bold 12", features{size: 12, bold: true, words: 40, hasFont: true}, 1, Section, 2},
		{"section short 13", features{size: 13, words: 20, hasFont: true}, 0, Section, 1},
		{"long 13 not section", features{text: "x", size: 13, words: 21, hasFont: true}, 2, Paragraph, 2},
		{"16 not bold short", features{size: 16, words: 3, hasFont: true}, 0, Section, 1},
		{"list", features{text: "1. Introduction", size: 11, words: 2, hasFont: true}, 2, ListItem, 2},
		{"paragraph", features{text: "Plain body text.", size: 11, words: 3, hasFont: true}, 2, Paragraph, 2},
		{"no font skips headings", features{text: "Big", size: 30, bold: true, words: 1}, 1, Paragraph, 1},
		{"no font skips lists", features{text: "• item", size: 30, words: 2}, 1, Paragraph, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, d := step(th, tt.depth, tt.f)
			if typ != tt.wantType || d != tt.wantDepth {
				t.Errorf("step = (%s, %d), want (%s, %d)", typ, d, tt.wantType, tt.wantDepth)
			}
		})
	}
}

func TestClassify_PriorityOrdering(t *testing.T) {
	// WHAT: 16pt bold with 5 words is a title, never a section.
	// WHY: Rule 1 must pre-empt rule 3 although both match.
	res := Classify("doc", []pdfprim.Primitive{run(1, "One two three four five", 16, true)}, quiet())
	if len(res.Elements) != 1 || res.Elements[0].Type != Title {
		t.Errorf("elements = %+v", res.Elements)
	}
}

func TestClassify_DepthSequence(t *testing.T) {
	// WHAT: Titles reset depth to 0, subtitles set 1, sections increment,
	// body text inherits the current depth.
	prims := []pdfprim.Primitive{
		run(1, "Report", 20, true),
		run(1, "Chapter", 12, true),
		run(1, "Sub chapter", 12, true),
		run(1, "Body text that goes on.", 10, false),
		run(1, "- a point", 10, false),
		{Kind: pdfprim.KindImage, Page: 1, BBox: pdfprim.BBox{X0: 1, Y0: 1, X1: 2, Y1: 2}},
		run(2, "Part Two", 14, true),
		run(2, "More body", 10, false),
		run(2, "Another Title", 18, true),
		run(2, "Closing words", 10, false),
	}
	res := Classify("doc", prims, quiet())
	wantTypes := []ElementType{Title, Section, Section, Paragraph, ListItem, Image, Subtitle, Paragraph, Title, Paragraph}
	wantDepths := []int{0, 1, 2, 2, 2, 2, 1, 1, 0, 0}
	if got := types(res.Elements); !reflect.DeepEqual(got, wantTypes) {
		t.Errorf("types = %v, want %v", got, wantTypes)
	}
	if got := depths(res.Elements); !reflect.DeepEqual(got, wantDepths) {
		t.Errorf("depths = %v, want %v", got, wantDepths)
	}
}

func TestClassify_ListPrecedence(t *testing.T) {
	res := Classify("doc", []pdfprim.Primitive{run(1, "1. Introduction", 11, false)}, quiet())
	if len(res.Elements) != 1 || res.Elements[0].Type != ListItem {
		t.Errorf("elements = %+v", res.Elements)
	}
}

func TestClassify_IDsAndOrder(t *testing.T) {
	// WHAT: IDs are 1-based in document order; order_index restarts per page.
	prims := []pdfprim.Primitive{
		run(1, "a", 10, false),
		run(1, "   ", 10, false),
		{Kind: pdfprim.KindTable, Page: 1, CellText: "x\ty"},
		run(2, "b", 10, false),
		run(3, "c", 10, false),
		run(3, "d", 10, false),
	}
	res := Classify("doc-1", prims, quiet())
	if len(res.Elements) != 5 {
		t.Fatalf("elements = %d, want 5 (whitespace dropped)", len(res.Elements))
	}
	wantOrder := []int{0, 1, 0, 0, 1}
	for i, e := range res.Elements {
		if e.ID != i+1 {
			t.Errorf("element %d id = %d", i, e.ID)
		}
		if e.OrderIndex != wantOrder[i] {
			t.Errorf("element %d order = %d, want %d", i, e.OrderIndex, wantOrder[i])
		}
		if e.DocumentID != "doc-1" {
			t.Errorf("document id = %q", e.DocumentID)
		}
	}
	tbl := res.Elements[1]
	if tbl.Type != Table || tbl.Text != "" || tbl.FontSize != nil || tbl.IsBold != nil || tbl.CellText != "x\ty" {
		t.Errorf("table element = %+v", tbl)
	}
	if tbl.BBox != nil {
		t.Errorf("zero bbox should be nil, got %+v", tbl.BBox)
	}
}

func TestClassify_MissingFontMetadata(t *testing.T) {
	// WHAT: A run without font metadata inherits the previous size, is not
	// bold, skips the heading rules and raises a warning.
	prims := []pdfprim.Primitive{
		run(1, "Body", 11, false),
		{Kind: pdfprim.KindText, Page: 1, Text: "Looks Like A Heading", FontSize: 24, IsBold: true},
	}
	res := Classify("doc", prims, quiet())
	if len(res.Elements) != 2 {
		t.Fatalf("elements = %+v", res.Elements)
	}
	e := res.Elements[1]
	if e.Type != Paragraph || *e.FontSize != 11 || *e.IsBold {
		t.Errorf("element = %+v size %v bold %v", e, *e.FontSize, *e.IsBold)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Index != 1 {
		t.Errorf("warnings = %+v", res.Warnings)
	}

	res = Classify("doc", prims[1:], quiet())
	if *res.Elements[0].FontSize != 0 {
		t.Errorf("first run without font should default to size 0, got %v", *res.Elements[0].FontSize)
	}
}

func TestClassify_MalformedPrimitives(t *testing.T) {
	// WHAT: Invalid UTF-8, NaN sizes and unknown kinds never panic and end
	// up as paragraphs with warnings.
	prims := []pdfprim.Primitive{
		run(1, "bad \xff bytes", 20, true),
		run(1, "nan size", math.NaN(), true),
		run(1, "negative", -3, false),
		{Kind: "shape", Page: 1, Text: "odd"},
		{Kind: "shape", Page: 1},
	}
	res := Classify("doc", prims, quiet())
	if got := types(res.Elements); !reflect.DeepEqual(got, []ElementType{Paragraph, Paragraph, Paragraph, Paragraph}) {
		t.Errorf("types = %v", got)
	}
	if len(res.Warnings) != 6 {
		t.Errorf("warnings = %d, want 6: %+v", len(res.Warnings), res.Warnings)
	}
	for _, e := range res.Elements {
		if e.FontSize != nil && (math.IsNaN(*e.FontSize) || *e.FontSize < 0) {
			t.Errorf("element carries invalid size %v", *e.FontSize)
		}
	}
	if _, err := json.Marshal(res); err != nil {
		t.Errorf("result must be JSON-safe: %v", err)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	prims := []pdfprim.Primitive{
		run(1, "Title", 18, true),
		run(1, "Intro", 13, false),
		run(1, "• one", 10, false),
		{Kind: pdfprim.KindTable, Page: 2, BBox: pdfprim.BBox{X0: 1, Y0: 2, X1: 3, Y1: 4}},
		run(2, "Body paragraph text", 10, false),
	}
	a, _ := json.Marshal(Classify("d", prims, quiet()))
	b, _ := json.Marshal(Classify("d", prims, quiet()))
	if string(a) != string(b) {
		t.Error("classification is not deterministic")
	}
}

func TestClassify_CustomThresholds(t *testing.T) {
	c := New(quiet(), WithThresholds(Thresholds{TitleSize: 30}))
	if got := c.Thresholds(); got.TitleSize != 30 || got.SubtitleSize != 14 {
		t.Errorf("thresholds = %+v", got)
	}
	res := c.Classify("d", []pdfprim.Primitive{run(1, "Heading", 20, true)})
	if res.Elements[0].Type != Subtitle {
		t.Errorf("type = %s, want subtitle under raised title threshold", res.Elements[0].Type)
	}
}

func TestParseElementType(t *testing.T) {
	for _, typ := range AllTypes {
		got, err := ParseElementType(string(typ))
		if err != nil || got != typ {
			t.Errorf("ParseElementType(%q) = %q, %v", typ, got, err)
		}
	}
	if got, err := ParseElementType(" Table "); err != nil || got != Table {
		t.Errorf("ParseElementType(\" Table \") = %q, %v", got, err)
	}
	if _, err := ParseElementType("figure"); !errors.Is(err, ErrUnknownType) {
		t.Errorf("err = %v, want ErrUnknownType", err)
	}
	if Table.Textual() || Image.Textual() || !Paragraph.Textual() {
		t.Error("Textual mismatch")
	}
}
