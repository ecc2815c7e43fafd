package store

import (
	"context"
	"fmt"
	"time"

	"github.com/hazyhaar/pdfstruct/idgen"
)

// Run statuses.
const (
	RunOK     = "ok"
	RunFailed = "failed"
)

var newRunID = idgen.Prefixed("run_", idgen.UUIDv7())

// Run is one analysis attempt.
type Run struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id,omitempty"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	Warnings   int    `json:"warnings"`
	DurationMs int64  `json:"duration_ms"`
	StartedAt  int64  `json:"started_at"` // unix ms
}

// RecordRun appends a run to the log, assigning ID and StartedAt when unset.
func (s *Store) RecordRun(ctx context.Context, r *Run) error {
	if r.ID == "" {
		r.ID = newRunID()
	}
	if r.StartedAt == 0 {
		r.StartedAt = time.Now().UnixMilli()
	}
	if r.Status == "" {
		r.Status = RunOK
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO analysis_runs (id, document_id, filename, status, error, warnings, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.DocumentID, r.Filename, r.Status, r.Error, r.Warnings, r.DurationMs, r.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("store: record run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, document_id, filename, status, error, warnings, duration_ms, started_at
		FROM analysis_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.Filename, &r.Status, &r.Error,
			&r.Warnings, &r.DurationMs, &r.StartedAt); err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
