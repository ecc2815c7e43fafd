package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/pdfstruct/idgen"
)

// DocumentMeta describes one analysed file.
type DocumentMeta struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	SHA256      string `json:"sha256"`
	SizeBytes   int64  `json:"size_bytes"`
	PageCount   int    `json:"page_count"`
	ProcessedAt int64  `json:"processed_at"` // unix ms
}

// SaveDocument inserts a document row. An empty ID is assigned a fresh
// UUIDv7, an empty ProcessedAt the current time. Each analysis of the same
// file yields a new row.
func (s *Store) SaveDocument(ctx context.Context, d *DocumentMeta) error {
	if d.ID == "" {
		d.ID = idgen.New()
	}
	if d.ProcessedAt == 0 {
		d.ProcessedAt = time.Now().UnixMilli()
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO documents (id, filename, sha256, size_bytes, page_count, processed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.Filename, d.SHA256, d.SizeBytes, d.PageCount, d.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("store: insert document: %w", err)
	}
	return nil
}

// GetDocument returns a document by ID, or nil when it does not exist.
func (s *Store) GetDocument(ctx context.Context, id string) (*DocumentMeta, error) {
	var d DocumentMeta
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, filename, sha256, size_bytes, page_count, processed_at
		FROM documents WHERE id = ?`, id,
	).Scan(&d.ID, &d.Filename, &d.SHA256, &d.SizeBytes, &d.PageCount, &d.ProcessedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get document: %w", err)
	}
	return &d, nil
}

// ListDocuments returns documents newest first. limit <= 0 means no limit.
func (s *Store) ListDocuments(ctx context.Context, limit int) ([]*DocumentMeta, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, filename, sha256, size_bytes, page_count, processed_at
		FROM documents ORDER BY processed_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list documents: %w", err)
	}
	defer rows.Close()

	var out []*DocumentMeta
	for rows.Next() {
		var d DocumentMeta
		if err := rows.Scan(&d.ID, &d.Filename, &d.SHA256, &d.SizeBytes, &d.PageCount, &d.ProcessedAt); err != nil {
			return nil, fmt.Errorf("store: scan document: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// DeleteDocument removes a document together with its elements, statistics
// and warnings. It reports whether a row was deleted.
func (s *Store) DeleteDocument(ctx context.Context, id string) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("store: delete document: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
