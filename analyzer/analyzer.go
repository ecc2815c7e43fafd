// Package analyzer orchestrates pdfstruct: it runs extraction,
// classification and statistics over uploaded PDFs, persists the results and
// serves them over HTTP and MCP.
//
//	a, err := analyzer.New(cfg)
//	defer a.Close()
//	res, err := a.Analyze(ctx, "report.pdf", data)
//	a.RegisterHTTP(router)
//	a.RegisterMCP(mcpServer)
package analyzer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/pdfstruct/classify"
	"github.com/hazyhaar/pdfstruct/observability"
	"github.com/hazyhaar/pdfstruct/pdfprim"
	"github.com/hazyhaar/pdfstruct/stats"
	"github.com/hazyhaar/pdfstruct/store"
)

// ErrNotFound is returned when a document id does not exist.
var ErrNotFound = errors.New("analyzer: document not found")

// Source opens a PDF for extraction.
type Source interface {
	Open(r io.ReadSeeker) (pdfprim.Pager, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(r io.ReadSeeker) (pdfprim.Pager, error)

func (f SourceFunc) Open(r io.ReadSeeker) (pdfprim.Pager, error) { return f(r) }

// Sink receives the results of each analysis and serves them back to the
// per-document and global statistics queries. Listing, search, warnings
// and the run history are always answered by the store.
type Sink interface {
	SaveDocument(ctx context.Context, d *store.DocumentMeta) error
	SaveElements(ctx context.Context, documentID string, els []classify.Element) error
	SaveStatistics(ctx context.Context, st stats.DocumentStatistics) error
	SaveWarnings(ctx context.Context, documentID string, ws []store.Warning) error
	DeleteDocument(ctx context.Context, id string) (bool, error)
	RecordRun(ctx context.Context, r *store.Run) error

	GetDocument(ctx context.Context, id string) (*store.DocumentMeta, error)
	LoadElements(ctx context.Context, documentID string, f store.ElementFilter) ([]classify.Element, error)
	LoadStatistics(ctx context.Context, documentID string) (*stats.DocumentStatistics, error)
	LoadAllDocumentStatistics(ctx context.Context) ([]stats.DocumentStatistics, error)
	ElementTotals(ctx context.Context) (map[classify.ElementType]int, error)
}

var _ Sink = (*store.Store)(nil)

// Analyzer is the pdfstruct orchestrator. It is safe for concurrent use.
type Analyzer struct {
	cfg        *Config
	store      *store.Store
	ownStore   bool
	sink       Sink
	source     Source
	classifier *classify.Classifier
	metrics    *observability.MetricsManager
	ownMetrics bool
	logger     *slog.Logger
}

// Option configures New.
type Option func(*Analyzer)

// WithStore uses an already opened store instead of opening cfg.DBPath.
// The caller keeps ownership.
func WithStore(s *store.Store) Option {
	return func(a *Analyzer) { a.store = s }
}

// WithSink routes analysis writes, and the reads of Document, Elements,
// Statistics and Global, to sink instead of the store.
func WithSink(sink Sink) Option {
	return func(a *Analyzer) { a.sink = sink }
}

// WithMetrics records analysis metrics into mm. The caller keeps ownership.
func WithMetrics(mm *observability.MetricsManager) Option {
	return func(a *Analyzer) { a.metrics = mm }
}

// WithSource replaces the PDF parser.
func WithSource(src Source) Option {
	return func(a *Analyzer) { a.source = src }
}

// New creates an Analyzer, opening the database unless WithStore is given.
func New(cfg *Config, opts ...Option) (*Analyzer, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Analyzer{cfg: cfg, logger: cfg.Logger}
	for _, o := range opts {
		o(a)
	}
	if a.store == nil {
		s, err := store.Open(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		a.store, a.ownStore = s, true
	}
	if a.sink == nil {
		a.sink = a.store
	}
	if a.metrics == nil {
		if err := observability.Init(a.store.DB); err != nil {
			a.Close()
			return nil, err
		}
		a.metrics = observability.NewMetricsManager(a.store.DB, 100, 5*time.Second, a.logger)
		a.ownMetrics = true
	}
	if a.source == nil {
		a.source = pdfSource(cfg.PDFPassword, a.logger)
	}
	a.classifier = classify.New(
		classify.WithThresholds(cfg.Thresholds),
		classify.WithLogger(a.logger),
	)
	return a, nil
}

// Close flushes metrics and closes what New opened.
func (a *Analyzer) Close() error {
	if a.ownMetrics {
		a.metrics.Close()
	}
	if a.ownStore {
		return a.store.Close()
	}
	return nil
}

// Store exposes the underlying store.
func (a *Analyzer) Store() *store.Store { return a.store }

func pdfSource(password string, logger *slog.Logger) Source {
	return SourceFunc(func(r io.ReadSeeker) (pdfprim.Pager, error) {
		opts := []pdfprim.Option{pdfprim.WithLogger(logger)}
		if password != "" {
			opts = append(opts, pdfprim.WithPassword(password))
		}
		return pdfprim.Open(r, opts...)
	})
}

// Result is the outcome of one successful analysis.
type Result struct {
	Document   store.DocumentMeta       `json:"document"`
	Elements   []classify.Element       `json:"elements"`
	Statistics stats.DocumentStatistics `json:"statistics"`
	Quality    *pdfprim.Quality         `json:"quality,omitempty"`
	Warnings   []store.Warning          `json:"warnings,omitempty"`
}

// Analyze extracts, classifies and persists one PDF. Unreadable or empty
// documents fail with an error wrapping pdfprim.ErrUnreadablePDF or
// pdfprim.ErrEmptyDocument; nothing is stored for them but the run log.
// Page-level and classification problems are returned as warnings.
func (a *Analyzer) Analyze(ctx context.Context, filename string, data []byte) (res *Result, err error) {
	start := time.Now()
	run := &store.Run{Filename: filename, StartedAt: start.UnixMilli()}
	defer func() {
		run.DurationMs = time.Since(start).Milliseconds()
		if err != nil {
			run.Status, run.Error = store.RunFailed, err.Error()
		} else {
			run.Status, run.DocumentID, run.Warnings = store.RunOK, res.Document.ID, len(res.Warnings)
		}
		if rerr := a.sink.RecordRun(context.WithoutCancel(ctx), run); rerr != nil {
			a.logger.Warn("analyzer: record run", "filename", filename, "error", rerr)
		}
		a.recordMetrics(run, res)
	}()

	pager, err := a.source.Open(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("analyzer: %s: %w", filename, err)
	}
	ext, err := pdfprim.ExtractWithLogger(ctx, pager, a.logger)
	if err != nil {
		return nil, fmt.Errorf("analyzer: %s: %w", filename, err)
	}

	sum := sha256.Sum256(data)
	meta := store.DocumentMeta{
		Filename:  filename,
		SHA256:    hex.EncodeToString(sum[:]),
		SizeBytes: int64(len(data)),
		PageCount: ext.PageCount,
	}
	if err := a.sink.SaveDocument(ctx, &meta); err != nil {
		return nil, err
	}

	cls := a.classifier.Classify(meta.ID, ext.Primitives)
	st := stats.Compute(cls.Elements, ext.PageCount)
	st.DocumentID = meta.ID
	warnings := collectWarnings(ext, cls.Warnings)

	if err := a.persist(ctx, meta.ID, cls.Elements, st, warnings); err != nil {
		if _, derr := a.sink.DeleteDocument(context.WithoutCancel(ctx), meta.ID); derr != nil {
			a.logger.Error("analyzer: rollback document", "document_id", meta.ID, "error", derr)
		}
		return nil, err
	}

	a.logger.Info("analyzer: document analyzed",
		"document_id", meta.ID,
		"filename", filename,
		"pages", ext.PageCount,
		"elements", len(cls.Elements),
		"warnings", len(warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &Result{
		Document:   meta,
		Elements:   cls.Elements,
		Statistics: st,
		Quality:    ext.Quality,
		Warnings:   warnings,
	}, nil
}

func (a *Analyzer) recordMetrics(run *store.Run, res *Result) {
	now := time.Now()
	labels := map[string]string{"status": run.Status}
	a.metrics.Record(&observability.Metric{
		Name: "analysis_duration_ms", Timestamp: now, Value: float64(run.DurationMs), Unit: "milliseconds", Labels: labels,
	})
	if res == nil {
		return
	}
	for name, v := range map[string]int{
		"analysis_pages":    res.Document.PageCount,
		"analysis_elements": len(res.Elements),
		"analysis_warnings": len(res.Warnings),
	} {
		a.metrics.Record(&observability.Metric{Name: name, Timestamp: now, Value: float64(v), Unit: "count", Labels: labels})
	}
}

func (a *Analyzer) persist(ctx context.Context, id string, els []classify.Element, st stats.DocumentStatistics, ws []store.Warning) error {
	if err := a.sink.SaveElements(ctx, id, els); err != nil {
		return err
	}
	if err := a.sink.SaveStatistics(ctx, st); err != nil {
		return err
	}
	if len(ws) > 0 {
		return a.sink.SaveWarnings(ctx, id, ws)
	}
	return nil
}

func collectWarnings(ext *pdfprim.Extraction, cw []classify.Warning) []store.Warning {
	var out []store.Warning
	for _, w := range ext.Warnings {
		out = append(out, store.Warning{Kind: store.WarnExtraction, Page: w.Page, Reason: w.Reason})
	}
	for _, w := range cw {
		out = append(out, store.Warning{
			Kind:   store.WarnClassification,
			Page:   w.Page,
			Reason: fmt.Sprintf("primitive %d: %s", w.Index, w.Reason),
		})
	}
	if ext.Quality != nil && ext.Quality.NeedsOCR() {
		out = append(out, store.Warning{
			Kind: store.WarnQuality,
			Reason: fmt.Sprintf("text layer looks unusable (%.0f chars/page, %.0f%% printable, %.0f%% word-like tokens); OCR recommended",
				ext.Quality.CharsPerPage, ext.Quality.PrintableRatio*100, ext.Quality.WordlikeRatio*100),
		})
	}
	return out
}

// File is one input of AnalyzeBatch.
type File struct {
	Name string
	Data []byte
}

// BatchItem is the outcome for one File. Exactly one of Result and Err is set.
type BatchItem struct {
	Name   string  `json:"name"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
	Error  string  `json:"error,omitempty"`
}

// AnalyzeBatch analyzes files concurrently, at most cfg.Workers at a time.
// A failing document does not stop the others; items keep the input order.
// The returned error is non-nil only when ctx ends before all files ran.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, files []File) ([]BatchItem, error) {
	items := make([]BatchItem, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)
	for i, f := range files {
		items[i].Name = f.Name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				items[i].Err, items[i].Error = err, err.Error()
				return err
			}
			res, err := a.Analyze(gctx, f.Name, f.Data)
			if err != nil {
				items[i].Err, items[i].Error = err, err.Error()
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				return nil
			}
			items[i].Result = res
			return nil
		})
	}
	return items, g.Wait()
}
