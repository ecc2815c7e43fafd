// Command pdfstruct analyzes the structure of PDF documents.
//
// Usage:
//
//	pdfstruct -config pdfstruct.yaml            # serve the HTTP API
//	pdfstruct -db data/pdfstruct.db -listen :8000
//	pdfstruct -analyze report.pdf [more.pdf...]  # analyze, print JSON and exit
//	pdfstruct -stats                             # print global statistics and exit
//	pdfstruct -search "revenue"                  # search stored elements and exit
//	pdfstruct -mcp                               # serve MCP tools over stdio
//	pdfstruct -hash-password secret              # print a bcrypt hash for auth.password_hash
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/pdfstruct/analyzer"
	"github.com/hazyhaar/pdfstruct/export"
	"github.com/hazyhaar/pdfstruct/horosafe"
	"github.com/hazyhaar/pdfstruct/shield"
)

func main() {
	configPath := flag.String("config", "", "path to pdfstruct.yaml config file")
	dbPath := flag.String("db", "", "path to SQLite database (overrides config)")
	listen := flag.String("listen", "", "HTTP listen address (overrides config)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	analyze := flag.Bool("analyze", false, "analyze the PDF files given as arguments and exit")
	showStats := flag.Bool("stats", false, "print global statistics and exit")
	search := flag.String("search", "", "search stored elements and exit")
	serveMCP := flag.Bool("mcp", false, "serve MCP tools over stdio")
	hashPassword := flag.String("hash-password", "", "print the bcrypt hash of a password and exit")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *hashPassword != "" {
		h, err := shield.HashPassword(*hashPassword)
		if err != nil {
			logger.Error("pdfstruct: hash password", "error", err)
			os.Exit(1)
		}
		fmt.Println(h)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := resolveConfig(*configPath, *dbPath, *listen)
	if err != nil {
		logger.Error("pdfstruct: config", "error", err)
		os.Exit(1)
	}
	cfg.Logger = logger

	if err := run(ctx, cfg, mode{analyze: *analyze, stats: *showStats, search: *search, mcp: *serveMCP}, flag.Args()); err != nil {
		logger.Error("pdfstruct: fatal", "error", err)
		os.Exit(1)
	}
}

type mode struct {
	analyze bool
	stats   bool
	search  string
	mcp     bool
}

func run(ctx context.Context, cfg *analyzer.Config, m mode, args []string) error {
	a, err := analyzer.New(cfg)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer a.Close()

	switch {
	case m.analyze:
		return analyzeFiles(ctx, a, args, cfg.MaxFileBytes())
	case m.stats:
		g, err := a.Global(ctx)
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		return export.WriteJSON(os.Stdout, g)
	case m.search != "":
		hits, err := a.Search(ctx, m.search, "", 100)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		return export.WriteJSON(os.Stdout, hits)
	case m.mcp:
		srv := mcp.NewServer(&mcp.Implementation{Name: "pdfstruct", Version: analyzer.Version}, nil)
		a.RegisterMCP(srv)
		cfg.Logger.Info("pdfstruct: serving MCP on stdio", "db", cfg.DBPath)
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			return fmt.Errorf("mcp: %w", err)
		}
		return nil
	}
	return serve(ctx, a, cfg)
}

func analyzeFiles(ctx context.Context, a *analyzer.Analyzer, paths []string, maxBytes int64) error {
	if len(paths) == 0 {
		return errors.New("analyze: no input files")
	}
	files := make([]analyzer.File, 0, len(paths))
	for _, p := range paths {
		data, err := horosafe.ReadFile(p, maxBytes)
		if err != nil {
			return fmt.Errorf("analyze: %w", err)
		}
		files = append(files, analyzer.File{Name: filepath.Base(p), Data: data})
	}

	items, err := a.AnalyzeBatch(ctx, files)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	failed := 0
	for _, it := range items {
		if it.Err != nil {
			failed++
		}
	}
	if len(items) == 1 {
		if items[0].Err != nil {
			return items[0].Err
		}
		if err := export.WriteJSON(os.Stdout, items[0].Result); err != nil {
			return err
		}
	} else if err := export.WriteJSON(os.Stdout, items); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("analyze: %d of %d files failed", failed, len(items))
	}
	return nil
}

func serve(ctx context.Context, a *analyzer.Analyzer, cfg *analyzer.Config) error {
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		cfg.Logger.Info("pdfstruct: server starting", "addr", cfg.Listen, "db", cfg.DBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	cfg.Logger.Info("pdfstruct: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	cfg.Logger.Info("pdfstruct: server stopped")
	return nil
}

func resolveConfig(configPath, dbPath, listen string) (*analyzer.Config, error) {
	cfg := analyzer.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = analyzer.LoadConfig(configPath); err != nil {
			return nil, err
		}
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if listen != "" {
		cfg.Listen = listen
	}
	return cfg, nil
}
