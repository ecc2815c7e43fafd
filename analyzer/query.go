package analyzer

import (
	"context"
	"time"

	"github.com/hazyhaar/pdfstruct/classify"
	"github.com/hazyhaar/pdfstruct/observability"
	"github.com/hazyhaar/pdfstruct/stats"
	"github.com/hazyhaar/pdfstruct/store"
)

// Document returns a document's metadata.
func (a *Analyzer) Document(ctx context.Context, id string) (*store.DocumentMeta, error) {
	d, err := a.sink.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrNotFound
	}
	return d, nil
}

// Documents lists documents newest first.
func (a *Analyzer) Documents(ctx context.Context, limit int) ([]*store.DocumentMeta, error) {
	return a.store.ListDocuments(ctx, limit)
}

// Elements returns a document's elements, optionally filtered.
func (a *Analyzer) Elements(ctx context.Context, id string, f store.ElementFilter) ([]classify.Element, error) {
	if _, err := a.Document(ctx, id); err != nil {
		return nil, err
	}
	return a.sink.LoadElements(ctx, id, f)
}

// Statistics returns the statistics of one document. A missing cache entry
// is recomputed from the stored elements and saved.
func (a *Analyzer) Statistics(ctx context.Context, id string) (*stats.DocumentStatistics, error) {
	d, err := a.Document(ctx, id)
	if err != nil {
		return nil, err
	}
	st, err := a.sink.LoadStatistics(ctx, id)
	if err != nil || st != nil {
		return st, err
	}

	els, err := a.sink.LoadElements(ctx, id, store.ElementFilter{})
	if err != nil {
		return nil, err
	}
	fresh := stats.Compute(els, d.PageCount)
	fresh.DocumentID = id
	if err := a.sink.SaveStatistics(ctx, fresh); err != nil {
		a.logger.Warn("analyzer: cache statistics", "document_id", id, "error", err)
	}
	return &fresh, nil
}

// Global folds the statistics of every stored document.
func (a *Analyzer) Global(ctx context.Context) (stats.GlobalStatistics, error) {
	all, err := a.sink.LoadAllDocumentStatistics(ctx)
	if err != nil {
		return stats.GlobalStatistics{}, err
	}
	totals, err := a.sink.ElementTotals(ctx)
	if err != nil {
		return stats.GlobalStatistics{}, err
	}
	return stats.Fold(all, totals), nil
}

// TypeSummary counts stored elements per type, most frequent first.
func (a *Analyzer) TypeSummary(ctx context.Context) ([]store.TypeCount, error) {
	return a.store.ElementTypeSummary(ctx)
}

// Search finds elements containing term.
func (a *Analyzer) Search(ctx context.Context, term, documentID string, limit int) ([]store.SearchHit, error) {
	return a.store.SearchContent(ctx, term, documentID, limit)
}

// Warnings returns the warnings recorded for a document.
func (a *Analyzer) Warnings(ctx context.Context, id string) ([]store.Warning, error) {
	if _, err := a.Document(ctx, id); err != nil {
		return nil, err
	}
	return a.store.LoadWarnings(ctx, id)
}

// Delete removes a document and everything derived from it.
func (a *Analyzer) Delete(ctx context.Context, id string) error {
	ok, err := a.sink.DeleteDocument(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Runs returns the most recent analysis attempts.
func (a *Analyzer) Runs(ctx context.Context, limit int) ([]store.Run, error) {
	return a.store.ListRuns(ctx, limit)
}

// Metrics summarizes the analysis metrics recorded during the last window.
// Pending metrics are flushed first.
func (a *Analyzer) Metrics(ctx context.Context, window time.Duration) ([]observability.Summary, error) {
	a.metrics.Flush()
	return a.metrics.Summarize(ctx, time.Now().Add(-window))
}
