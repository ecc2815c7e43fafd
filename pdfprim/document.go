package pdfprim

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Document is an opened, validated PDF ready for page-by-page extraction.
type Document struct {
	ctx    *model.Context
	logger *slog.Logger
}

// Option configures Open.
type Option func(*openConfig)

type openConfig struct {
	password string
	logger   *slog.Logger
}

// WithPassword supplies the user password of an encrypted document.
func WithPassword(pw string) Option {
	return func(c *openConfig) { c.password = pw }
}

// WithLogger sets the logger used for per-page diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *openConfig) { c.logger = l }
}

// Open parses and validates a PDF. Structural damage that pdfcpu cannot get
// past in relaxed mode, and encryption without a matching password, are
// reported as ErrUnreadablePDF. A document without pages is ErrEmptyDocument.
//
// The cross-reference table is not optimized: optimizing decodes every
// content stream, and a single undecodable page must only cost that page.
func Open(r io.ReadSeeker, opts ...Option) (doc *Document, err error) {
	cfg := openConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	defer func() {
		if p := recover(); p != nil {
			doc, err = nil, fmt.Errorf("%w: parser panic: %v", ErrUnreadablePDF, p)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if cfg.password != "" {
		conf.UserPW = cfg.password
		conf.OwnerPW = cfg.password
	}
	ctx, err := api.ReadContext(r, conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadablePDF, err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: validate: %v", ErrUnreadablePDF, err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("%w: page tree: %v", ErrUnreadablePDF, err)
	}
	if ctx.PageCount == 0 {
		return nil, ErrEmptyDocument
	}
	return &Document{ctx: ctx, logger: cfg.logger}, nil
}

// OpenBytes is Open over an in-memory buffer.
func OpenBytes(data []byte, opts ...Option) (*Document, error) {
	return Open(bytes.NewReader(data), opts...)
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return d.ctx.PageCount }

// Pages yields page numbers in document order, starting at 1.
func (d *Document) Pages() iter.Seq[int] {
	return func(yield func(int) bool) {
		for p := 1; p <= d.ctx.PageCount; p++ {
			if !yield(p) {
				return
			}
		}
	}
}

// Primitives extracts the primitives of one page. A parser panic on a
// malformed page is returned as an error so callers can skip the page.
func (d *Document) Primitives(page int) (prims []Primitive, err error) {
	if page < 1 || page > d.ctx.PageCount {
		return nil, fmt.Errorf("page %d out of range 1..%d", page, d.ctx.PageCount)
	}
	defer func() {
		if p := recover(); p != nil {
			prims, err = nil, fmt.Errorf("page %d: parser panic: %v", page, p)
		}
	}()

	rd, err := pdfcpu.ExtractPageContent(d.ctx, page)
	if err != nil {
		return nil, fmt.Errorf("page %d: content: %w", page, err)
	}
	if rd == nil {
		return nil, nil
	}
	content, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("page %d: read content: %w", page, err)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, nil
	}

	res := d.pageResources(page)
	prims, err = interpretPage(page, content, res)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}
	d.logger.Debug("pdfprim: page extracted", "page", page, "primitives", len(prims))
	return prims, nil
}

// HasImageStreams reports whether the cross-reference table holds any image
// XObject stream.
func (d *Document) HasImageStreams() bool {
	for _, entry := range d.ctx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if st := sd.NameEntry("Subtype"); st != nil && *st == "Image" {
			return true
		}
	}
	return false
}

func (d *Document) pageResources(page int) resourceSet {
	pd, _, inh, err := d.ctx.PageDict(page, false)
	if err != nil {
		d.logger.Debug("pdfprim: page dict", "page", page, "error", err)
		return nil
	}
	var dict types.Dict
	if pd != nil {
		dict, _ = d.ctx.DereferenceDict(pd["Resources"])
	}
	if dict == nil && inh != nil {
		// Resources inherited from an ancestor Pages node.
		dict = inh.Resources
	}
	if dict == nil {
		return nil
	}
	return newPDFResources(d.ctx, dict)
}

// pdfResources resolves a Resources dictionary lazily, caching fonts.
type pdfResources struct {
	ctx   *model.Context
	dict  types.Dict
	fonts map[string]*fontInfo
}

func newPDFResources(ctx *model.Context, dict types.Dict) *pdfResources {
	return &pdfResources{ctx: ctx, dict: dict, fonts: make(map[string]*fontInfo)}
}

func (r *pdfResources) font(name string) *fontInfo {
	if f, ok := r.fonts[name]; ok {
		return f
	}
	f := r.loadFont(name)
	r.fonts[name] = f
	return f
}

func (r *pdfResources) loadFont(name string) *fontInfo {
	fonts, err := r.ctx.DereferenceDict(r.dict["Font"])
	if err != nil || fonts == nil {
		return nil
	}
	fd, err := r.ctx.DereferenceDict(fonts[name])
	if err != nil || fd == nil {
		return nil
	}

	f := &fontInfo{}
	if n := fd.NameEntry("BaseFont"); n != nil {
		f.baseFont = *n
	}
	desc := fd
	if st := fd.NameEntry("Subtype"); st != nil && *st == "Type0" {
		f.twoByte = true
		if o, err := r.ctx.Dereference(fd["DescendantFonts"]); err == nil {
			if arr, ok := o.(types.Array); ok && len(arr) > 0 {
				if dd, err := r.ctx.DereferenceDict(arr[0]); err == nil && dd != nil {
					desc = dd
				}
			}
		}
	}

	var weight float64
	flags := 0
	if dd, err := r.ctx.DereferenceDict(desc["FontDescriptor"]); err == nil && dd != nil {
		weight = r.number(dd["FontWeight"])
		flags = int(r.number(dd["Flags"]))
	}
	f.bold = boldFromMetadata(f.baseFont, weight, flags)

	if o, ok := fd["ToUnicode"]; ok && o != nil {
		if sd, _, err := r.ctx.DereferenceStreamDict(o); err == nil && sd != nil {
			if err := sd.Decode(); err == nil {
				f.toUni = parseCMap(sd.Content)
			}
		}
	}
	return f
}

func (r *pdfResources) xobject(name string) (xobject, bool) {
	xd, err := r.ctx.DereferenceDict(r.dict["XObject"])
	if err != nil || xd == nil {
		return xobject{}, false
	}
	o, ok := xd[name]
	if !ok || o == nil {
		return xobject{}, false
	}
	sd, _, err := r.ctx.DereferenceStreamDict(o)
	if err != nil || sd == nil {
		return xobject{}, false
	}
	st := sd.NameEntry("Subtype")
	if st == nil {
		return xobject{}, false
	}
	switch *st {
	case "Image":
		return xobject{kind: xoImage}, true
	case "Form":
		x := xobject{kind: xoForm, matrix: identity}
		if err := sd.Decode(); err == nil {
			x.content = sd.Content
		}
		if m, err := r.ctx.Dereference(sd.Dict["Matrix"]); err == nil {
			if arr, ok := m.(types.Array); ok && len(arr) == 6 {
				for i := range arr {
					x.matrix[i] = r.number(arr[i])
				}
			}
		}
		if rd, err := r.ctx.DereferenceDict(sd.Dict["Resources"]); err == nil && rd != nil {
			x.res = newPDFResources(r.ctx, rd)
		}
		return x, true
	}
	return xobject{}, false
}

func (r *pdfResources) number(o types.Object) float64 {
	o, err := r.ctx.Dereference(o)
	if err != nil {
		return 0
	}
	switch v := o.(type) {
	case types.Integer:
		return float64(v)
	case types.Float:
		return float64(v)
	}
	return 0
}
