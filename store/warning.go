package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hazyhaar/pdfstruct/dbopen"
)

// Warning kinds.
const (
	WarnExtraction     = "extraction"
	WarnClassification = "classification"
	WarnQuality        = "quality"
)

// Warning is a persisted non-fatal diagnostic of one analysis.
type Warning struct {
	Kind   string `json:"kind"`
	Page   int    `json:"page,omitempty"`
	Reason string `json:"reason"`
}

// SaveWarnings replaces the warnings of a document.
func (s *Store) SaveWarnings(ctx context.Context, documentID string, ws []Warning) error {
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM document_warnings WHERE document_id = ?`, documentID); err != nil {
			return fmt.Errorf("store: clear warnings: %w", err)
		}
		for i, w := range ws {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO document_warnings (document_id, seq, kind, page, reason)
				VALUES (?, ?, ?, ?, ?)`,
				documentID, i, w.Kind, w.Page, w.Reason,
			); err != nil {
				return fmt.Errorf("store: insert warning: %w", err)
			}
		}
		return nil
	})
}

// LoadWarnings returns a document's warnings in the order they were saved.
func (s *Store) LoadWarnings(ctx context.Context, documentID string) ([]Warning, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT kind, page, reason FROM document_warnings
		WHERE document_id = ? ORDER BY seq`, documentID)
	if err != nil {
		return nil, fmt.Errorf("store: load warnings: %w", err)
	}
	defer rows.Close()

	var out []Warning
	for rows.Next() {
		var w Warning
		if err := rows.Scan(&w.Kind, &w.Page, &w.Reason); err != nil {
			return nil, fmt.Errorf("store: scan warning: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
