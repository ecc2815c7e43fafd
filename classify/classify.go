package classify

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/hazyhaar/pdfstruct/pdfprim"
)

// Result is the ordered element list of one document plus the warnings
// raised while building it.
type Result struct {
	Elements []Element `json:"elements"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// Classifier turns a document's primitive stream into elements. It holds
// only configuration, so one Classifier may serve concurrent documents.
type Classifier struct {
	th     Thresholds
	logger *slog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithThresholds overrides the heading thresholds. Zero fields keep defaults.
func WithThresholds(th Thresholds) Option {
	return func(c *Classifier) { c.th = th.withDefaults() }
}

// WithLogger sets the logger for classification warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Classifier with default thresholds.
func New(opts ...Option) *Classifier {
	c := &Classifier{th: DefaultThresholds(), logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Thresholds returns the effective thresholds.
func (c *Classifier) Thresholds() Thresholds { return c.th }

// Classify is New(opts...).Classify.
func Classify(documentID string, prims []pdfprim.Primitive, opts ...Option) Result {
	return New(opts...).Classify(documentID, prims)
}

// pass is the state of one left-to-right classification pass.
type pass struct {
	documentID string
	res        Result
	page       int
	order      int
	prevSize   float64
}

// Classify assigns a type and a depth to every primitive in one forward pass.
// The only carried state is the depth accumulator threaded through step.
// Primitives are never rejected: anything odd is logged and degraded.
func (c *Classifier) Classify(documentID string, prims []pdfprim.Primitive) Result {
	p := &pass{documentID: documentID, page: -1}
	depth := 0

	for i, prim := range prims {
		switch prim.Kind {
		case pdfprim.KindTable:
			p.emit(Element{Type: Table, PageNumber: prim.Page, Depth: depth, BBox: bboxOf(prim), CellText: prim.CellText})
		case pdfprim.KindImage:
			p.emit(Element{Type: Image, PageNumber: prim.Page, Depth: depth, BBox: bboxOf(prim)})
		case pdfprim.KindText:
			depth = c.text(p, i, prim, depth)
		default:
			if strings.TrimSpace(prim.Text) == "" {
				c.warn(p, prim.Page, i, fmt.Sprintf("unknown primitive kind %q dropped", prim.Kind))
				continue
			}
			c.warn(p, prim.Page, i, fmt.Sprintf("unknown primitive kind %q treated as text", prim.Kind))
			depth = c.text(p, i, prim, depth)
		}
	}
	return p.res
}

func (c *Classifier) text(p *pass, i int, prim pdfprim.Primitive, depth int) int {
	text := prim.Text
	degraded := false
	if !utf8.ValidString(text) {
		c.warn(p, prim.Page, i, "invalid UTF-8 in text run")
		text = strings.ToValidUTF8(text, "�")
		degraded = true
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return depth
	}

	f := features{text: text, words: WordCount(text), size: prim.FontSize, bold: prim.IsBold, hasFont: prim.HasFont}
	if !f.hasFont {
		c.warn(p, prim.Page, i, "missing font metadata")
		f.size, f.bold = p.prevSize, false
	}
	if math.IsNaN(f.size) || math.IsInf(f.size, 0) || f.size < 0 {
		c.warn(p, prim.Page, i, fmt.Sprintf("invalid font size %v", f.size))
		f.size, f.bold = p.prevSize, false
		degraded = true
	}
	p.prevSize = f.size

	typ, next := Paragraph, depth
	if !degraded {
		typ, next = step(c.th, depth, f)
	}
	size, bold := f.size, f.bold
	p.emit(Element{
		Type:       typ,
		PageNumber: prim.Page,
		Text:       text,
		FontSize:   &size,
		IsBold:     &bold,
		Depth:      next,
	})
	return next
}

func (p *pass) emit(e Element) {
	if e.PageNumber != p.page {
		p.page, p.order = e.PageNumber, 0
	}
	e.ID = len(p.res.Elements) + 1
	e.DocumentID = p.documentID
	e.OrderIndex = p.order
	p.order++
	p.res.Elements = append(p.res.Elements, e)
}

func (c *Classifier) warn(p *pass, page, index int, reason string) {
	p.res.Warnings = append(p.res.Warnings, Warning{Page: page, Index: index, Reason: reason})
	c.logger.Warn("classify: degraded primitive",
		"document_id", p.documentID, "page", page, "index", index, "reason", reason)
}

func bboxOf(p pdfprim.Primitive) *pdfprim.BBox {
	if p.BBox == (pdfprim.BBox{}) {
		return nil
	}
	b := p.BBox
	return &b
}
