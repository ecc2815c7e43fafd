package analyzer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/pdfstruct/classify"
	"github.com/hazyhaar/pdfstruct/export"
	"github.com/hazyhaar/pdfstruct/horosafe"
	"github.com/hazyhaar/pdfstruct/idgen"
	"github.com/hazyhaar/pdfstruct/kit"
	"github.com/hazyhaar/pdfstruct/pdfprim"
	"github.com/hazyhaar/pdfstruct/shield"
	"github.com/hazyhaar/pdfstruct/store"
)

// Version is reported by GET /.
const Version = "1.0.0"

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	multipartSlack   = 1 << 20
)

var errBadRequest = errors.New("bad request")

// Handler returns the complete HTTP API: middleware stack, optional Basic
// auth (GET /health stays open) and routes.
func (a *Analyzer) Handler() http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.APIStack(a.logger, a.cfg.MaxFileBytes()+multipartSlack) {
		r.Use(mw)
	}
	r.Use(shield.BasicAuth(a.cfg.Auth.Username, a.cfg.Auth.PasswordHash, "/health"))
	a.RegisterHTTP(r)
	return r
}

// RegisterHTTP mounts the API routes on r.
func (a *Analyzer) RegisterHTTP(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message":      "PDF Document Analysis API",
			"version":      Version,
			"health_check": "/health",
		})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := a.store.DB.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Post("/documents/upload", a.handleUpload)
	r.Get("/documents", a.handleList)
	r.Route("/documents/{id}", func(r chi.Router) {
		r.Get("/", a.handleGet)
		r.Delete("/", a.handleDelete)
		r.Get("/elements", a.handleElements)
		r.Get("/statistics", a.handleStatistics)
		r.Get("/warnings", a.handleWarnings)
		r.Get("/export/csv", a.handleExportCSV)
		r.Get("/export/json", a.handleExportJSON)
	})
	r.Get("/statistics/global", a.handleGlobal)
	r.Get("/search", a.handleSearch)
	r.Get("/runs", a.handleRuns)
	r.Get("/metrics", a.handleMetrics)
}

func (a *Analyzer) handleUpload(w http.ResponseWriter, r *http.Request) {
	f, hdr, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			a.fail(w, r, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds %d MB", a.cfg.MaxFileMB))
			return
		}
		a.fail(w, r, http.StatusBadRequest, fmt.Errorf("multipart field \"file\": %w", err))
		return
	}
	defer f.Close()

	name := horosafe.SanitizeFilename(hdr.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		a.fail(w, r, http.StatusBadRequest, errors.New("only .pdf files are accepted"))
		return
	}
	data, err := horosafe.LimitedReadAll(f, a.cfg.MaxFileBytes())
	if errors.Is(err, horosafe.ErrTooLarge) {
		a.fail(w, r, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds %d MB", a.cfg.MaxFileMB))
		return
	}
	if err != nil {
		a.fail(w, r, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}

	res, err := a.Analyze(r.Context(), name, data)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"document_id":   res.Document.ID,
		"filename":      res.Document.Filename,
		"page_count":    res.Document.PageCount,
		"element_count": len(res.Elements),
		"statistics":    res.Statistics,
		"quality":       res.Quality,
		"warnings":      res.Warnings,
	})
}

func (a *Analyzer) handleList(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultListLimit, 1, maxListLimit)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	docs, err := a.Documents(r.Context(), limit)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	if docs == nil {
		docs = []*store.DocumentMeta{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

func (a *Analyzer) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := a.docID(w, r)
	if !ok {
		return
	}
	d, err := a.Document(r.Context(), id)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *Analyzer) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := a.docID(w, r)
	if !ok {
		return
	}
	if err := a.Delete(r.Context(), id); err != nil {
		a.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *Analyzer) handleElements(w http.ResponseWriter, r *http.Request) {
	id, ok := a.docID(w, r)
	if !ok {
		return
	}
	f, err := elementFilter(r)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	els, err := a.Elements(r.Context(), id, f)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	if els == nil {
		els = []classify.Element{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"document_id": id, "elements": els, "count": len(els)})
}

func (a *Analyzer) handleStatistics(w http.ResponseWriter, r *http.Request) {
	id, ok := a.docID(w, r)
	if !ok {
		return
	}
	st, err := a.Statistics(r.Context(), id)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"document_id": id, "statistics": st})
}

func (a *Analyzer) handleWarnings(w http.ResponseWriter, r *http.Request) {
	id, ok := a.docID(w, r)
	if !ok {
		return
	}
	ws, err := a.Warnings(r.Context(), id)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	if ws == nil {
		ws = []store.Warning{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"document_id": id, "warnings": ws})
}

func (a *Analyzer) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	id, ok := a.docID(w, r)
	if !ok {
		return
	}
	f, err := elementFilter(r)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	d, err := a.Document(r.Context(), id)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	els, err := a.sink.LoadElements(r.Context(), id, f)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	if len(els) == 0 {
		what := "elements"
		if f.Type != "" {
			what = string(f.Type)
		}
		a.fail(w, r, http.StatusNotFound, fmt.Errorf("no %s found", what))
		return
	}

	var buf bytes.Buffer
	if f.Type == classify.Table {
		err = export.WriteTableCSV(&buf, export.TableRows(els))
	} else {
		err = export.WriteElementsCSV(&buf, f.Type, els)
	}
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	attachment(w, "text/csv; charset=utf-8", export.CSVFilename(d.Filename, f.Type))
	w.Write(buf.Bytes())
}

func (a *Analyzer) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	id, ok := a.docID(w, r)
	if !ok {
		return
	}
	d, err := a.Document(r.Context(), id)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	st, err := a.Statistics(r.Context(), id)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteJSON(&buf, export.NewSnapshot(*d, st)); err != nil {
		a.writeErr(w, r, err)
		return
	}
	attachment(w, "application/json", export.SnapshotFilename(d.Filename))
	w.Write(buf.Bytes())
}

func (a *Analyzer) handleGlobal(w http.ResponseWriter, r *http.Request) {
	g, err := a.Global(r.Context())
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	summary, err := a.TypeSummary(r.Context())
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	if summary == nil {
		summary = []store.TypeCount{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"global_statistics":    g,
		"element_type_summary": summary,
	})
}

func (a *Analyzer) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		a.fail(w, r, http.StatusBadRequest, errors.New("query parameter q is required"))
		return
	}
	docID := r.URL.Query().Get("document_id")
	if docID != "" {
		canon, err := idgen.Parse(docID)
		if err != nil {
			a.fail(w, r, http.StatusBadRequest, err)
			return
		}
		docID = canon
	}
	limit, err := queryInt(r, "limit", defaultListLimit, 1, maxListLimit)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	hits, err := a.Search(r.Context(), q, docID, limit)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	if hits == nil {
		hits = []store.SearchHit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": q, "results": hits, "count": len(hits)})
}

func (a *Analyzer) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultListLimit, 1, maxListLimit)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	runs, err := a.Runs(r.Context(), limit)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (a *Analyzer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	hours, err := queryInt(r, "hours", 24, 1, 24*366)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	sums, err := a.Metrics(r.Context(), time.Duration(hours)*time.Hour)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"window_hours": hours, "metrics": sums})
}

// --- helpers ---

func (a *Analyzer) docID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := idgen.Parse(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, http.StatusBadRequest, err)
		return "", false
	}
	return id, true
}

func elementFilter(r *http.Request) (store.ElementFilter, error) {
	var f store.ElementFilter
	if s := r.URL.Query().Get("element_type"); s != "" {
		t, err := classify.ParseElementType(s)
		if err != nil {
			return f, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		f.Type = t
	}
	page, err := queryInt(r, "page_number", 0, 1, 1<<31-1)
	if err != nil {
		return f, err
	}
	f.Page = page
	return f, nil
}

// queryInt parses an optional integer parameter within [lo, hi].
func queryInt(r *http.Request, key string, def, lo, hi int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("%w: %s must be an integer in [%d, %d]", errBadRequest, key, lo, hi)
	}
	return v, nil
}

// writeErr maps err to a status code.
func (a *Analyzer) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBadRequest):
		a.fail(w, r, http.StatusBadRequest, err)
	case errors.Is(err, ErrNotFound):
		a.fail(w, r, http.StatusNotFound, err)
	case errors.Is(err, pdfprim.ErrUnreadablePDF), errors.Is(err, pdfprim.ErrEmptyDocument):
		a.fail(w, r, http.StatusUnprocessableEntity, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		a.fail(w, r, http.StatusServiceUnavailable, err)
	default:
		a.logger.ErrorContext(r.Context(), "analyzer: request failed",
			append(kit.LogAttrs(r.Context()), "path", r.URL.Path, "error", err)...)
		a.fail(w, r, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func (a *Analyzer) fail(w http.ResponseWriter, _ *http.Request, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	export.WriteJSON(w, v)
}

func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}
