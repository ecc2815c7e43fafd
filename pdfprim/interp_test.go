package pdfprim

import (
	"testing"
)

func testResources() staticResources {
	return staticResources{
		fonts: map[string]*fontInfo{
			"F1": {baseFont: "Helvetica"},
			"F2": {baseFont: "Helvetica-Bold", bold: true},
		},
		xobjects: map[string]xobject{
			"Im1": {kind: xoImage},
		},
	}
}

func interpret(t *testing.T, content string, res resourceSet) []Primitive {
	t.Helper()
	prims, err := interpretPage(1, []byte(content), res)
	if err != nil {
		t.Fatalf("interpretPage: %v", err)
	}
	return prims
}

func texts(prims []Primitive) []string {
	var out []string
	for _, p := range prims {
		out = append(out, string(p.Kind)+":"+p.Text)
	}
	return out
}

func TestInterpret_SingleRun(t *testing.T) {
	// WHAT: Consecutive Tj on one baseline form one run.
	// WHY: The classifier sees runs, not individual show operators.
	prims := interpret(t, "BT /F1 12 Tf 72 720 Td (Hello) Tj ( World) Tj ET", testResources())
	if len(prims) != 1 {
		t.Fatalf("prims = %v, want 1 run", texts(prims))
	}
	p := prims[0]
	if p.Kind != KindText || p.Text != "Hello World" || p.Page != 1 {
		t.Errorf("prim = %+v", p)
	}
	if p.FontSize != 12 || p.IsBold || !p.HasFont {
		t.Errorf("style = size %v bold %v hasFont %v", p.FontSize, p.IsBold, p.HasFont)
	}
}

func TestInterpret_LinesJoinWithinBlock(t *testing.T) {
	// WHAT: Lines at normal leading with the same style stay in one run.
	prims := interpret(t, "BT /F1 12 Tf 14 TL 72 720 Td (first line) Tj T* (second line) Tj ET", testResources())
	if len(prims) != 1 || prims[0].Text != "first line second line" {
		t.Errorf("prims = %v", texts(prims))
	}
}

func TestInterpret_BlockBreaks(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"vertical gap", "BT /F2 18 Tf 72 720 Td (Title) Tj /F1 12 Tf 0 -40 Td (Body text) Tj ET", 2},
		{"style change on new line", "BT /F2 12 Tf 72 720 Td (Heading) Tj /F1 12 Tf 0 -14 Td (body) Tj ET", 2},
		{"list markers", "BT /F1 12 Tf 14 TL 72 720 Td (Intro:) Tj T* (\x95 item one) Tj T* (- item two) Tj ET", 3},
		{"style change mid line", "BT /F1 12 Tf 72 720 Td (Normal ) Tj /F2 12 Tf (bold) Tj ET", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prims := interpret(t, tt.content, testResources())
			if len(prims) != tt.want {
				t.Errorf("prims = %v, want %d", texts(prims), tt.want)
			}
		})
	}
}

func TestInterpret_DominantStyle(t *testing.T) {
	// WHAT: A mixed run takes the style carried by most characters.
	prims := interpret(t, "BT /F1 12 Tf 72 720 Td (Normal text ) Tj /F2 12 Tf (bold) Tj ET", testResources())
	if len(prims) != 1 {
		t.Fatalf("prims = %v", texts(prims))
	}
	if prims[0].IsBold {
		t.Error("dominant style should be regular")
	}

	prims = interpret(t, "BT /F2 16 Tf 72 720 Td (Bold Heading) Tj /F1 16 Tf (x) Tj ET", testResources())
	if len(prims) != 1 || !prims[0].IsBold || prims[0].FontSize != 16 {
		t.Errorf("prims = %+v", prims)
	}
}

func TestInterpret_FontSizeFromMatrices(t *testing.T) {
	// WHAT: Effective size combines Tf with the text matrix and the CTM.
	// WHY: Many producers use "1 Tf" and scale through Tm.
	tests := []struct {
		name    string
		content string
		want    float64
	}{
		{"text matrix", "BT /F1 1 Tf 24 0 0 24 72 700 Tm (Big) Tj ET", 24},
		{"ctm", "q 2 0 0 2 0 0 cm BT /F1 10 Tf 10 10 Td (Scaled) Tj ET Q", 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prims := interpret(t, tt.content, testResources())
			if len(prims) != 1 || prims[0].FontSize != tt.want {
				t.Errorf("prims = %+v, want size %v", prims, tt.want)
			}
		})
	}
}

func TestInterpret_UnknownFont(t *testing.T) {
	// WHAT: A Tf naming a font absent from the resources yields HasFont=false.
	prims := interpret(t, "BT /Fx 12 Tf 72 720 Td (orphan) Tj ET", testResources())
	if len(prims) != 1 || prims[0].HasFont || prims[0].IsBold {
		t.Errorf("prims = %+v", prims)
	}

	prims = interpret(t, "BT 72 720 Td (no tf) Tj ET", nil)
	if len(prims) != 1 || prims[0].HasFont || prims[0].FontSize != 0 {
		t.Errorf("prims = %+v", prims)
	}
}

func TestInterpret_TJSpacing(t *testing.T) {
	tests := []struct {
		content string
		want    string
	}{
		{"BT /F1 12 Tf 72 720 Td [(Hello) -300 (World)] TJ ET", "Hello World"},
		{"BT /F1 12 Tf 72 720 Td [(Hel) -20 (lo)] TJ ET", "Hello"},
	}
	for _, tt := range tests {
		prims := interpret(t, tt.content, testResources())
		if len(prims) != 1 || prims[0].Text != tt.want {
			t.Errorf("%q: prims = %v, want %q", tt.content, texts(prims), tt.want)
		}
	}
}

func TestInterpret_WhitespaceOnlyDropped(t *testing.T) {
	prims := interpret(t, "BT /F1 12 Tf 72 720 Td (   ) Tj ET", testResources())
	if len(prims) != 0 {
		t.Errorf("prims = %v, want none", texts(prims))
	}
}

func TestInterpret_Images(t *testing.T) {
	// WHAT: Image XObjects and inline images become image primitives placed
	// by the CTM, and they split the surrounding text into separate runs.
	prims := interpret(t, "BT /F1 12 Tf 72 720 Td (Before) Tj ET "+
		"q 100 0 0 50 72 600 cm /Im1 Do Q "+
		"BT /F1 12 Tf 72 716 Td (After) Tj ET "+
		"q 10 0 0 10 0 0 cm BI /W 1 /H 1 /CS /G /BPC 8 ID \x00 EI Q", testResources())

	want := []string{"text:Before", "image:", "text:After", "image:"}
	got := texts(prims)
	if len(got) != len(want) {
		t.Fatalf("prims = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("prim %d = %q, want %q", i, got[i], want[i])
		}
	}
	if b := prims[1].BBox; b != (BBox{X0: 72, Y0: 600, X1: 172, Y1: 650}) {
		t.Errorf("image bbox = %+v", b)
	}
	if b := prims[3].BBox; b != (BBox{X0: 0, Y0: 0, X1: 10, Y1: 10}) {
		t.Errorf("inline image bbox = %+v", b)
	}
}

func TestInterpret_FormXObject(t *testing.T) {
	// WHAT: Form XObjects are interpreted with their matrix; self-reference
	// stops at the nesting limit.
	res := testResources()
	res.xobjects["Fm1"] = xobject{
		kind:    xoForm,
		content: []byte("BT /F1 12 Tf 0 0 Td (In form) Tj ET"),
		matrix:  translate(100, 200),
	}
	res.xobjects["Loop"] = xobject{kind: xoForm, content: []byte("/Loop Do")}

	prims := interpret(t, "/Fm1 Do /Loop Do /Missing Do", res)
	if len(prims) != 1 || prims[0].Text != "In form" {
		t.Fatalf("prims = %v", texts(prims))
	}
	if prims[0].BBox.X0 != 100 {
		t.Errorf("form text x = %v, want 100", prims[0].BBox.X0)
	}
}

const gridStream = `100 500 m 300 500 l S
100 480 m 300 480 l S
100 460 m 300 460 l S
100 460 m 100 500 l S
200 460 m 200 500 l S
300 460 m 300 500 l S
`

func TestInterpret_TableWithCellText(t *testing.T) {
	// WHAT: Text inside a ruled grid is folded into the table's cell text.
	// WHY: Cell fragments must not surface as paragraphs.
	content := "BT /F1 10 Tf 100 600 Td (Intro paragraph) Tj ET\n" + gridStream +
		"BT /F1 10 Tf 110 485 Td (A) Tj ET\n" +
		"BT /F1 10 Tf 210 485 Td (B) Tj ET\n" +
		"BT /F1 10 Tf 110 465 Td (C) Tj ET\n" +
		"BT /F1 10 Tf 100 400 Td (Outro paragraph) Tj ET"
	prims := interpret(t, content, testResources())

	want := []string{"text:Intro paragraph", "table:", "text:Outro paragraph"}
	got := texts(prims)
	if len(got) != len(want) {
		t.Fatalf("prims = %v, want %v", got, want)
	}
	tbl := prims[1]
	if tbl.CellText != "A\tB\nC" {
		t.Errorf("cell text = %q", tbl.CellText)
	}
	if tbl.BBox != (BBox{X0: 100, Y0: 460, X1: 300, Y1: 500}) {
		t.Errorf("table bbox = %+v", tbl.BBox)
	}
}

func TestInterpret_EmptyTablePlacedByPosition(t *testing.T) {
	// WHAT: A grid with no text is inserted by its vertical position.
	content := "BT /F1 10 Tf 100 600 Td (Intro paragraph) Tj ET\n" +
		"BT /F1 10 Tf 100 400 Td (Outro paragraph) Tj ET\n" + gridStream
	got := texts(interpret(t, content, testResources()))
	want := []string{"text:Intro paragraph", "table:", "text:Outro paragraph"}
	if len(got) != len(want) || got[1] != want[1] {
		t.Errorf("prims = %v, want %v", got, want)
	}
}

func TestInterpret_NotATable(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"framed box", "100 100 200 100 re S"},
		{"unpainted path", "100 500 m 300 500 l 100 480 m 300 480 l n"},
		{"tiny grid", "0 0 m 5 0 l S 0 2 m 5 2 l S 0 4 m 5 4 l S 0 0 m 0 4 l S 5 0 m 5 4 l S"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, p := range interpret(t, tt.content, testResources()) {
				if p.Kind == KindTable {
					t.Errorf("unexpected table %+v", p)
				}
			}
		})
	}
}

func TestInterpret_FilledRuleTable(t *testing.T) {
	// WHAT: Thin filled rectangles count as rules.
	// WHY: Many producers draw table borders as filled hairline boxes.
	content := "100 500 200 0.5 re f 100 480 200 0.5 re f 100 460 200 0.5 re f " +
		"100 460 0.5 40 re f 200 460 0.5 40 re f 300 460 0.5 40 re f"
	prims := interpret(t, content, testResources())
	if len(prims) != 1 || prims[0].Kind != KindTable {
		t.Errorf("prims = %v, want one table", texts(prims))
	}
}

func TestDetectTables_SeparateGrids(t *testing.T) {
	grid := func(x, y float64) []segment {
		return []segment{
			{x, y, x + 100, y}, {x, y + 20, x + 100, y + 20}, {x, y + 40, x + 100, y + 40},
			{x, y, x, y + 40}, {x + 50, y, x + 50, y + 40}, {x + 100, y, x + 100, y + 40},
		}
	}
	segs := append(grid(50, 100), grid(50, 500)...)
	tables := detectTables(segs)
	if len(tables) != 2 {
		t.Fatalf("tables = %d, want 2", len(tables))
	}
	if tables[0].bbox.Y1 < tables[1].bbox.Y1 {
		t.Error("tables should be ordered top of page first")
	}
	if got := tables[0].column(75); got != 1 {
		t.Errorf("column(75) = %d, want 1", got)
	}
}

func TestCleanText(t *testing.T) {
	if got := cleanText("  a \n\t b\x00c  "); got != "a bc" {
		t.Errorf("cleanText = %q", got)
	}
}
