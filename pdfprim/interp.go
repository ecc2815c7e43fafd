package pdfprim

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// avgGlyphWidth approximates the advance of one glyph in text space units
	// (em fraction); glyph widths are not read from the font.
	avgGlyphWidth = 0.5
	// tjSpaceThreshold: a TJ adjustment below this (thousandths of an em)
	// separates two words.
	tjSpaceThreshold = -200
	maxFormDepth     = 3
)

// matrix is a PDF affine transform [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return x*m[0] + y*m[2] + m[4], x*m[1] + y*m[3] + m[5]
}

func translate(tx, ty float64) matrix { return matrix{1, 0, 0, 1, tx, ty} }

func matrixOf(o op) matrix {
	return matrix{o.number(0), o.number(1), o.number(2), o.number(3), o.number(4), o.number(5)}
}

// unitBox maps the unit square through m, which is how images are placed.
func unitBox(m matrix) BBox {
	var b BBox
	for i, c := range [4][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		x, y := m.apply(c[0], c[1])
		if i == 0 {
			b = BBox{X0: x, Y0: y, X1: x, Y1: y}
			continue
		}
		b.X0, b.Y0 = math.Min(b.X0, x), math.Min(b.Y0, y)
		b.X1, b.Y1 = math.Max(b.X1, x), math.Max(b.Y1, y)
	}
	return b
}

// resourceSet resolves the names a content stream refers to.
type resourceSet interface {
	font(name string) *fontInfo
	xobject(name string) (xobject, bool)
}

type xobjectKind uint8

const (
	xoImage xobjectKind = iota + 1
	xoForm
)

type xobject struct {
	kind    xobjectKind
	content []byte      // decoded form content
	matrix  matrix      // form matrix
	res     resourceSet // form resources, nil means inherit
}

// staticResources is a resourceSet backed by plain maps.
type staticResources struct {
	fonts    map[string]*fontInfo
	xobjects map[string]xobject
}

func (r staticResources) font(name string) *fontInfo { return r.fonts[name] }

func (r staticResources) xobject(name string) (xobject, bool) {
	x, ok := r.xobjects[name]
	return x, ok
}

type gstate struct {
	ctm      matrix
	font     *fontInfo
	fontSize float64
	leading  float64
}

// style is what decides whether two text fragments belong to the same run.
type style struct {
	size    float64
	bold    bool
	hasFont bool
}

// runBuilder accumulates consecutive text fragments into one run.
type runBuilder struct {
	text    strings.Builder
	weights map[style]int
	bbox    BBox
	lastY   float64
	last    style
	active  bool
}

// interpreter walks a page content stream twice: first collecting ruling
// lines to locate tables, then emitting text runs, images and tables in
// content order.
type interpreter struct {
	page      int
	textPass  bool
	gs        gstate
	stack     []gstate
	tm, tlm   matrix
	out       []Primitive
	run       runBuilder
	segs      []segment
	path      []segment
	thin      []segment
	cx, cy    float64
	sx, sy    float64
	tables    []tableRegion
	cells     []*cellText
	tableSlot []int // index in out of each emitted table, -1 if none yet
}

type cellText struct {
	sb     strings.Builder
	lastY  float64
	lastCo int
}

// interpretPage extracts the primitives of one page content stream.
func interpretPage(page int, content []byte, res resourceSet) ([]Primitive, error) {
	ops, err := tokenize(content)
	if err != nil && len(ops) == 0 {
		return nil, err
	}

	in := &interpreter{page: page}
	in.reset()
	in.walk(ops, res, 0)
	in.tables = detectTables(in.segs)

	in.textPass = true
	in.reset()
	in.cells = make([]*cellText, len(in.tables))
	in.tableSlot = make([]int, len(in.tables))
	for i := range in.tables {
		in.cells[i] = &cellText{}
		in.tableSlot[i] = -1
	}
	in.walk(ops, res, 0)
	in.flush()
	in.finishTables()
	return in.out, nil
}

func (in *interpreter) reset() {
	in.gs = gstate{ctm: identity}
	in.stack = in.stack[:0]
	in.tm, in.tlm = identity, identity
}

func (in *interpreter) walk(ops []op, res resourceSet, depth int) {
	for _, o := range ops {
		switch o.name {
		case "q":
			in.stack = append(in.stack, in.gs)
		case "Q":
			if n := len(in.stack); n > 0 {
				in.gs = in.stack[n-1]
				in.stack = in.stack[:n-1]
			}
		case "cm":
			in.gs.ctm = matrixOf(o).mul(in.gs.ctm)
		case "Do":
			in.doXObject(o.nameArg(0), res, depth)
		case "BI":
			if in.textPass {
				in.emitImage(unitBox(in.gs.ctm))
			}
		default:
			if in.textPass {
				in.textOp(o, res)
			} else {
				in.pathOp(o)
			}
		}
	}
}

func (in *interpreter) doXObject(name string, res resourceSet, depth int) {
	if res == nil {
		return
	}
	x, ok := res.xobject(name)
	if !ok {
		return
	}
	switch x.kind {
	case xoImage:
		if in.textPass {
			in.emitImage(unitBox(in.gs.ctm))
		}
	case xoForm:
		if depth >= maxFormDepth {
			return
		}
		ops, _ := tokenize(x.content)
		saved, n := in.gs, len(in.stack)
		in.stack = append(in.stack, saved)
		in.gs.ctm = x.matrix.mul(in.gs.ctm)
		fr := x.res
		if fr == nil {
			fr = res
		}
		in.walk(ops, fr, depth+1)
		in.gs = saved
		if len(in.stack) > n {
			in.stack = in.stack[:n]
		}
	}
}

// pathOp handles the path construction and painting operators.
func (in *interpreter) pathOp(o op) {
	switch o.name {
	case "m":
		in.cx, in.cy = in.gs.ctm.apply(o.number(0), o.number(1))
		in.sx, in.sy = in.cx, in.cy
	case "l":
		x, y := in.gs.ctm.apply(o.number(0), o.number(1))
		in.path = append(in.path, segment{in.cx, in.cy, x, y})
		in.cx, in.cy = x, y
	case "h":
		in.path = append(in.path, segment{in.cx, in.cy, in.sx, in.sy})
		in.cx, in.cy = in.sx, in.sy
	case "re":
		x, y, w, h := o.number(0), o.number(1), o.number(2), o.number(3)
		x0, y0 := in.gs.ctm.apply(x, y)
		x1, y1 := in.gs.ctm.apply(x+w, y+h)
		in.path = append(in.path,
			segment{x0, y0, x1, y0}, segment{x1, y0, x1, y1},
			segment{x1, y1, x0, y1}, segment{x0, y1, x0, y0})
		bw, bh := math.Abs(x1-x0), math.Abs(y1-y0)
		switch {
		case bh < thinRectSize && bw >= minRuleLen:
			my := (y0 + y1) / 2
			in.thin = append(in.thin, segment{x0, my, x1, my})
		case bw < thinRectSize && bh >= minRuleLen:
			mx := (x0 + x1) / 2
			in.thin = append(in.thin, segment{mx, y0, mx, y1})
		}
		in.cx, in.cy = x0, y0
		in.sx, in.sy = x0, y0
	case "S", "s":
		in.segs = append(in.segs, in.path...)
		in.endPath()
	case "f", "F", "f*":
		in.segs = append(in.segs, in.thin...)
		in.endPath()
	case "B", "B*", "b", "b*":
		in.segs = append(in.segs, in.path...)
		in.segs = append(in.segs, in.thin...)
		in.endPath()
	case "n":
		in.endPath()
	}
}

func (in *interpreter) endPath() {
	in.path = in.path[:0]
	in.thin = in.thin[:0]
}

// textOp handles the text object, text state and text showing operators.
func (in *interpreter) textOp(o op, res resourceSet) {
	switch o.name {
	case "BT":
		in.tm, in.tlm = identity, identity
	case "Tf":
		in.gs.fontSize = o.number(1)
		in.gs.font = nil
		if res != nil {
			in.gs.font = res.font(o.nameArg(0))
		}
	case "TL":
		in.gs.leading = o.number(0)
	case "Td":
		in.moveLine(o.number(0), o.number(1))
	case "TD":
		in.gs.leading = -o.number(1)
		in.moveLine(o.number(0), o.number(1))
	case "Tm":
		in.tlm = matrixOf(o)
		in.tm = in.tlm
	case "T*":
		in.moveLine(0, -in.gs.leading)
	case "Tj":
		in.show(o.args, 0)
	case "'":
		in.moveLine(0, -in.gs.leading)
		in.show(o.args, 0)
	case "\"":
		in.moveLine(0, -in.gs.leading)
		in.show(o.args, 2)
	case "TJ":
		if len(o.args) == 0 || o.args[0].kind != opArray {
			return
		}
		gap := false
		for _, el := range o.args[0].arr {
			switch el.kind {
			case opString:
				in.showString(el.str, gap)
				gap = false
			case opNumber:
				in.tm = translate(-el.num/1000*in.gs.fontSize, 0).mul(in.tm)
				if el.num < tjSpaceThreshold {
					gap = true
				}
			}
		}
	}
}

func (in *interpreter) moveLine(tx, ty float64) {
	in.tlm = translate(tx, ty).mul(in.tlm)
	in.tm = in.tlm
}

func (in *interpreter) show(args []operand, i int) {
	if i < len(args) && args[i].kind == opString {
		in.showString(args[i].str, false)
	}
}

func (in *interpreter) showString(raw []byte, gap bool) {
	text := in.gs.font.decode(raw)
	trm := in.tm.mul(in.gs.ctm)
	size := math.Abs(in.gs.fontSize) * math.Hypot(trm[2], trm[3])
	x, y := trm[4], trm[5]
	adv := float64(utf8.RuneCountInString(text)) * in.gs.fontSize * avgGlyphWidth
	in.tm = translate(adv, 0).mul(in.tm)
	if text == "" {
		return
	}

	if t := in.tableAt(x, y); t >= 0 {
		in.flush()
		in.addCell(t, text, x, y)
		return
	}

	f := in.gs.font
	st := style{size: math.Round(size*10) / 10}
	if f != nil {
		st.bold, st.hasFont = f.bold, true
	}
	width := adv * math.Hypot(trm[0], trm[1]) / math.Max(math.Abs(in.gs.fontSize), 1e-9)
	if in.gs.fontSize == 0 {
		width = 0
	}
	in.addText(text, x, y, width, st, gap)
}

func (in *interpreter) addText(text string, x, y, width float64, st style, gap bool) {
	r := &in.run
	if r.active {
		ref := math.Max(st.size, r.last.size)
		if ref == 0 {
			ref = 1
		}
		dy := math.Abs(y - r.lastY)
		newLine := dy > 0.5*ref
		switch {
		case newLine && (dy > 1.5*ref || st != r.last || HasListMarker(text)):
			in.flush()
		case newLine || gap:
			r.text.WriteByte(' ')
		}
	}
	if !r.active {
		r.weights = make(map[style]int)
		r.bbox = BBox{}
		r.active = true
	}
	r.text.WriteString(text)
	n := 0
	for _, c := range text {
		if !unicode.IsSpace(c) {
			n++
		}
	}
	r.weights[st] += n
	r.bbox = r.bbox.Union(BBox{X0: x, Y0: y - 0.2*st.size, X1: x + width, Y1: y + 0.8*st.size})
	r.lastY = y
	r.last = st
}

// flush closes the current run. Its style is the one carried by the most
// non-space characters.
func (in *interpreter) flush() {
	r := &in.run
	if !r.active {
		return
	}
	text := cleanText(r.text.String())
	if text != "" {
		var best style
		bestN := -1
		for st, n := range r.weights {
			if n > bestN || (n == bestN && better(st, best)) {
				best, bestN = st, n
			}
		}
		in.out = append(in.out, Primitive{
			Kind:     KindText,
			Page:     in.page,
			Text:     text,
			FontSize: best.size,
			IsBold:   best.bold,
			HasFont:  best.hasFont,
			BBox:     r.bbox,
		})
	}
	r.text.Reset()
	r.weights = nil
	r.active = false
}

// better breaks weight ties deterministically.
func better(a, b style) bool {
	if a.size != b.size {
		return a.size > b.size
	}
	if a.bold != b.bold {
		return a.bold
	}
	return a.hasFont && !b.hasFont
}

func (in *interpreter) emitImage(b BBox) {
	in.flush()
	in.out = append(in.out, Primitive{Kind: KindImage, Page: in.page, BBox: b})
}

func (in *interpreter) tableAt(x, y float64) int {
	for i, t := range in.tables {
		if t.bbox.Contains(x, y, 1) {
			return i
		}
	}
	return -1
}

func (in *interpreter) addCell(t int, text string, x, y float64) {
	if in.tableSlot[t] < 0 {
		in.tableSlot[t] = len(in.out)
		in.out = append(in.out, Primitive{Kind: KindTable, Page: in.page, BBox: in.tables[t].bbox})
	}
	c := in.cells[t]
	col := in.tables[t].column(x)
	if c.sb.Len() > 0 {
		switch {
		case math.Abs(y-c.lastY) > 1:
			c.sb.WriteByte('\n')
		case col != c.lastCo:
			c.sb.WriteByte('\t')
		}
	}
	c.sb.WriteString(text)
	c.lastY, c.lastCo = y, col
}

// finishTables fills in cell text and places tables that received no text
// by their vertical position.
func (in *interpreter) finishTables() {
	for i, slot := range in.tableSlot {
		if slot >= 0 {
			in.out[slot].CellText = strings.TrimSpace(in.cells[i].sb.String())
		}
	}
	for i, t := range in.tables {
		if in.tableSlot[i] >= 0 {
			continue
		}
		p := Primitive{Kind: KindTable, Page: in.page, BBox: t.bbox}
		at := len(in.out)
		for k, q := range in.out {
			if q.BBox.Y1 < t.bbox.Y1 {
				at = k
				break
			}
		}
		in.out = append(in.out, Primitive{})
		copy(in.out[at+1:], in.out[at:])
		in.out[at] = p
	}
}

// cleanText collapses whitespace and drops control characters.
func cleanText(s string) string {
	var sb strings.Builder
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = sb.Len() > 0
			continue
		case r == utf8.RuneError || unicode.IsControl(r):
			continue
		}
		if space {
			sb.WriteByte(' ')
			space = false
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
