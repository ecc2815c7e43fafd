package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hazyhaar/pdfstruct/stats"
)

const statsColumns = `document_id, title_count, subtitle_count, section_count, paragraph_count,
	list_item_count, table_count, image_count, element_count, page_count,
	avg_text_density_per_page, avg_hierarchical_depth, avg_paragraph_length, section_distribution`

// SaveStatistics upserts the cached statistics of one document.
func (s *Store) SaveStatistics(ctx context.Context, st stats.DocumentStatistics) error {
	dist, err := encodeDistribution(st.SectionDistribution)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO document_statistics (`+statsColumns+`, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			title_count = excluded.title_count,
			subtitle_count = excluded.subtitle_count,
			section_count = excluded.section_count,
			paragraph_count = excluded.paragraph_count,
			list_item_count = excluded.list_item_count,
			table_count = excluded.table_count,
			image_count = excluded.image_count,
			element_count = excluded.element_count,
			page_count = excluded.page_count,
			avg_text_density_per_page = excluded.avg_text_density_per_page,
			avg_hierarchical_depth = excluded.avg_hierarchical_depth,
			avg_paragraph_length = excluded.avg_paragraph_length,
			section_distribution = excluded.section_distribution,
			computed_at = excluded.computed_at`,
		st.DocumentID, st.TitleCount, st.SubtitleCount, st.SectionCount, st.ParagraphCount,
		st.ListItemCount, st.TableCount, st.ImageCount, st.ElementCount, st.PageCount,
		st.AvgTextDensityPerPage, st.AvgHierarchicalDepth, st.AvgParagraphLength, dist,
		time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("store: save statistics: %w", err)
	}
	return nil
}

// LoadStatistics returns the cached statistics of a document, or nil when
// none were saved.
func (s *Store) LoadStatistics(ctx context.Context, documentID string) (*stats.DocumentStatistics, error) {
	st, err := scanStatistics(s.DB.QueryRowContext(ctx,
		`SELECT `+statsColumns+` FROM document_statistics WHERE document_id = ?`, documentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// LoadAllDocumentStatistics returns every cached statistics row, newest
// document first.
func (s *Store) LoadAllDocumentStatistics(ctx context.Context) ([]stats.DocumentStatistics, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT s.`+statsColumns+`
		FROM document_statistics s JOIN documents d ON d.id = s.document_id
		ORDER BY d.processed_at DESC, d.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: load all statistics: %w", err)
	}
	defer rows.Close()

	var out []stats.DocumentStatistics
	for rows.Next() {
		st, err := scanStatistics(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStatistics(sc scanner) (*stats.DocumentStatistics, error) {
	var st stats.DocumentStatistics
	var dist string
	err := sc.Scan(&st.DocumentID, &st.TitleCount, &st.SubtitleCount, &st.SectionCount, &st.ParagraphCount,
		&st.ListItemCount, &st.TableCount, &st.ImageCount, &st.ElementCount, &st.PageCount,
		&st.AvgTextDensityPerPage, &st.AvgHierarchicalDepth, &st.AvgParagraphLength, &dist)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan statistics: %w", err)
	}
	st.SectionDistribution, err = decodeDistribution(dist)
	if err != nil {
		return nil, fmt.Errorf("store: statistics %s: %w", st.DocumentID, err)
	}
	return &st, nil
}

// The distribution is stored as a JSON object keyed by page number.
func encodeDistribution(m map[int]int) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("store: encode section distribution: %w", err)
	}
	return string(b), nil
}

func decodeDistribution(s string) (map[int]int, error) {
	raw := map[string]int{}
	if s != "" {
		if err := json.Unmarshal([]byte(s), &raw); err != nil {
			return nil, err
		}
	}
	out := make(map[int]int, len(raw))
	for k, v := range raw {
		page, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("bad page key %q", k)
		}
		out[page] = v
	}
	return out, nil
}
