package pdfprim

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
)

// Pager is a source of per-page primitives. *Document implements it.
type Pager interface {
	PageCount() int
	Pages() iter.Seq[int]
	Primitives(page int) ([]Primitive, error)
}

type imageDetector interface {
	HasImageStreams() bool
}

// Extract walks every page of p in order and concatenates their primitives.
// A page that fails to decode is skipped and recorded as a warning; the
// remaining pages are still processed. The context is checked between pages.
func Extract(ctx context.Context, p Pager) (*Extraction, error) {
	return ExtractWithLogger(ctx, p, slog.Default())
}

// ExtractWithLogger is Extract with an explicit logger for page warnings.
func ExtractWithLogger(ctx context.Context, p Pager, logger *slog.Logger) (*Extraction, error) {
	n := p.PageCount()
	if n == 0 {
		return nil, ErrEmptyDocument
	}

	out := &Extraction{PageCount: n}
	for page := range p.Pages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		prims, err := safePrimitives(p, page)
		if err != nil {
			w := ExtractionWarning{Page: page, Reason: err.Error()}
			out.Warnings = append(out.Warnings, w)
			logger.Warn("pdfprim: page skipped", "page", page, "reason", w.Reason)
			continue
		}
		out.Primitives = append(out.Primitives, prims...)
	}

	hasImages := false
	if d, ok := p.(imageDetector); ok {
		hasImages = d.HasImageStreams()
	}
	out.Quality = computeQuality(n, out.Primitives, hasImages)
	return out, nil
}

func safePrimitives(p Pager, page int) (prims []Primitive, err error) {
	defer func() {
		if r := recover(); r != nil {
			prims, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return p.Primitives(page)
}

// Extract runs Extract over the document with the document's logger.
func (d *Document) Extract(ctx context.Context) (*Extraction, error) {
	return ExtractWithLogger(ctx, d, d.logger)
}
