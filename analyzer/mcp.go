package analyzer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/pdfstruct/classify"
	"github.com/hazyhaar/pdfstruct/horosafe"
	"github.com/hazyhaar/pdfstruct/idgen"
	"github.com/hazyhaar/pdfstruct/kit"
	"github.com/hazyhaar/pdfstruct/store"
)

// RegisterMCP registers the pdfstruct tools on an MCP server.
func (a *Analyzer) RegisterMCP(srv *mcp.Server) {
	a.registerTool(srv, &mcp.Tool{
		Name:        "pdfstruct_analyze",
		Description: "Analyze a local PDF file: extract, classify and store its structural elements. Returns document id, statistics and warnings.",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "Path of the PDF file"},
		}, []string{"path"}),
	}, a.mcpAnalyze, kit.DecodeArgs[analyzeReq]())

	a.registerTool(srv, &mcp.Tool{
		Name:        "pdfstruct_elements",
		Description: "List the classified elements of a stored document, optionally filtered by type and page.",
		InputSchema: inputSchema(map[string]any{
			"document_id":  map[string]any{"type": "string"},
			"element_type": map[string]any{"type": "string", "enum": typeNames()},
			"page_number":  map[string]any{"type": "integer", "minimum": 1},
		}, []string{"document_id"}),
	}, a.mcpElements, kit.DecodeArgs[elementsReq]())

	a.registerTool(srv, &mcp.Tool{
		Name:        "pdfstruct_statistics",
		Description: "Return the structure statistics of one stored document.",
		InputSchema: inputSchema(map[string]any{
			"document_id": map[string]any{"type": "string"},
		}, []string{"document_id"}),
	}, a.mcpStatistics, kit.DecodeArgs[documentReq]())

	a.registerTool(srv, &mcp.Tool{
		Name:        "pdfstruct_global",
		Description: "Return statistics folded across every stored document.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}, a.mcpGlobal, kit.DecodeArgs[struct{}]())

	a.registerTool(srv, &mcp.Tool{
		Name:        "pdfstruct_documents",
		Description: "List stored documents, newest first.",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "minimum": 1, "maximum": maxListLimit},
		}, nil),
	}, a.mcpDocuments, kit.DecodeArgs[listReq]())

	a.registerTool(srv, &mcp.Tool{
		Name:        "pdfstruct_search",
		Description: "Find stored elements whose text contains a term.",
		InputSchema: inputSchema(map[string]any{
			"query":       map[string]any{"type": "string"},
			"document_id": map[string]any{"type": "string"},
			"limit":       map[string]any{"type": "integer", "minimum": 1, "maximum": maxListLimit},
		}, []string{"query"}),
	}, a.mcpSearch, kit.DecodeArgs[searchReq]())

	a.registerTool(srv, &mcp.Tool{
		Name:        "pdfstruct_metrics",
		Description: "Summarize analysis durations and counts over the last hours (default 24).",
		InputSchema: inputSchema(map[string]any{
			"hours": map[string]any{"type": "integer", "minimum": 1},
		}, nil),
	}, a.mcpMetrics, kit.DecodeArgs[metricsReq]())
}

func (a *Analyzer) registerTool(srv *mcp.Server, tool *mcp.Tool, ep kit.Endpoint, decode func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error)) {
	ep = kit.Chain(kit.Logging(a.logger, tool.Name), kit.Recovery(a.logger))(ep)
	kit.RegisterMCPTool(srv, tool, ep, decode)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func typeNames() []string {
	out := make([]string, len(classify.AllTypes))
	for i, t := range classify.AllTypes {
		out[i] = string(t)
	}
	return out
}

type analyzeReq struct {
	Path string `json:"path"`
}

func (a *Analyzer) mcpAnalyze(ctx context.Context, req any) (any, error) {
	r := req.(*analyzeReq)
	if r.Path == "" {
		return nil, errors.New("path is required")
	}
	path := r.Path
	if a.cfg.InputDir != "" {
		p, err := horosafe.SafePath(a.cfg.InputDir, path)
		if err != nil {
			return nil, fmt.Errorf("path %q: %w", r.Path, err)
		}
		path = p
	}
	data, err := horosafe.ReadFile(path, a.cfg.MaxFileBytes())
	if err != nil {
		return nil, err
	}
	res, err := a.Analyze(ctx, filepath.Base(path), data)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"document_id":   res.Document.ID,
		"filename":      res.Document.Filename,
		"page_count":    res.Document.PageCount,
		"element_count": len(res.Elements),
		"statistics":    res.Statistics,
		"warnings":      res.Warnings,
	}, nil
}

type documentReq struct {
	DocumentID string `json:"document_id"`
}

type elementsReq struct {
	DocumentID  string `json:"document_id"`
	ElementType string `json:"element_type"`
	PageNumber  int    `json:"page_number"`
}

func (a *Analyzer) mcpElements(ctx context.Context, req any) (any, error) {
	r := req.(*elementsReq)
	id, err := idgen.Parse(r.DocumentID)
	if err != nil {
		return nil, err
	}
	f := store.ElementFilter{Page: r.PageNumber}
	if r.ElementType != "" {
		if f.Type, err = classify.ParseElementType(r.ElementType); err != nil {
			return nil, err
		}
	}
	els, err := a.Elements(ctx, id, f)
	if err != nil {
		return nil, err
	}
	if els == nil {
		els = []classify.Element{}
	}
	return map[string]any{"document_id": id, "elements": els, "count": len(els)}, nil
}

func (a *Analyzer) mcpStatistics(ctx context.Context, req any) (any, error) {
	r := req.(*documentReq)
	id, err := idgen.Parse(r.DocumentID)
	if err != nil {
		return nil, err
	}
	return a.Statistics(ctx, id)
}

func (a *Analyzer) mcpGlobal(ctx context.Context, _ any) (any, error) {
	return a.Global(ctx)
}

type listReq struct {
	Limit int `json:"limit"`
}

func (a *Analyzer) mcpDocuments(ctx context.Context, req any) (any, error) {
	r := req.(*listReq)
	limit := r.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	docs, err := a.Documents(ctx, limit)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []*store.DocumentMeta{}
	}
	return map[string]any{"documents": docs, "count": len(docs)}, nil
}

type searchReq struct {
	Query      string `json:"query"`
	DocumentID string `json:"document_id"`
	Limit      int    `json:"limit"`
}

func (a *Analyzer) mcpSearch(ctx context.Context, req any) (any, error) {
	r := req.(*searchReq)
	if r.Query == "" {
		return nil, errors.New("query is required")
	}
	docID := r.DocumentID
	if docID != "" {
		var err error
		if docID, err = idgen.Parse(docID); err != nil {
			return nil, err
		}
	}
	limit := r.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	hits, err := a.Search(ctx, r.Query, docID, limit)
	if err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []store.SearchHit{}
	}
	return map[string]any{"query": r.Query, "results": hits, "count": len(hits)}, nil
}

type metricsReq struct {
	Hours int `json:"hours"`
}

func (a *Analyzer) mcpMetrics(ctx context.Context, req any) (any, error) {
	hours := req.(*metricsReq).Hours
	if hours <= 0 {
		hours = 24
	}
	sums, err := a.Metrics(ctx, time.Duration(hours)*time.Hour)
	if err != nil {
		return nil, err
	}
	return map[string]any{"window_hours": hours, "metrics": sums}, nil
}
