package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/hotelbrief/hotelbrief/internal/interfaces"
	"github.com/hotelbrief/hotelbrief/internal/models"
)

// PageStorage implements interfaces.PageStorage over the Page Artifact table
type PageStorage struct {
	db     *SQLiteDB
	table  string
	logger arbor.ILogger
}

// NewPageStorage creates a new page storage instance
func NewPageStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.PageStorage {
	return &PageStorage{
		db:     db,
		table:  db.config.PageTable,
		logger: logger,
	}
}

// Upsert saves a scraped page, rolling the prior markdown and raw HTML into
// the *_prev columns and flagging checksum changes.
func (p *PageStorage) Upsert(ctx context.Context, page *models.PageArtifact) error {
	if page.HotelID == "" || page.PageURL == "" {
		return fmt.Errorf("page artifact requires hotel_id and page_url")
	}

	tx, err := p.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var prevChecksum, prevMarkdown, prevRawHTML string
	exists := true
	row := tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT checksum, markdown, raw_html FROM %s WHERE hotel_id = ? AND page_url = ?", p.table),
		page.HotelID, page.PageURL)
	if err := row.Scan(&prevChecksum, &prevMarkdown, &prevRawHTML); err != nil {
		if err != sql.ErrNoRows {
			return fmt.Errorf("failed to read existing page: %w", err)
		}
		exists = false
	}

	now := time.Now()
	checksumUpdated := exists && prevChecksum != "" && prevChecksum != page.Checksum

	query := fmt.Sprintf(`
		INSERT INTO %s (
			hotel_id, page_url, raw_html, raw_html_prev, canonical_html,
			markdown, markdown_prev, checksum, depth, active,
			is_checksum_updated, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)
		ON CONFLICT(hotel_id, page_url) DO UPDATE SET
			raw_html = excluded.raw_html,
			raw_html_prev = excluded.raw_html_prev,
			canonical_html = excluded.canonical_html,
			markdown = excluded.markdown,
			markdown_prev = excluded.markdown_prev,
			checksum = excluded.checksum,
			depth = excluded.depth,
			active = 1,
			is_checksum_updated = excluded.is_checksum_updated,
			updated_at = excluded.updated_at
	`, p.table)

	_, err = tx.ExecContext(ctx, query,
		page.HotelID,
		page.PageURL,
		page.RawHTML,
		prevRawHTML,
		page.CanonicalHTML,
		page.Markdown,
		prevMarkdown,
		page.Checksum,
		page.Depth,
		boolToInt(checksumUpdated),
		now.Unix(),
		now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert page %s: %w", page.PageURL, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit page upsert: %w", err)
	}

	page.Active = true
	page.IsChecksumUpdated = checksumUpdated
	page.MarkdownPrev = prevMarkdown
	page.RawHTMLPrev = prevRawHTML
	return nil
}

// Get retrieves one page artifact, or nil when absent
func (p *PageStorage) Get(ctx context.Context, hotelID, pageURL string) (*models.PageArtifact, error) {
	query := fmt.Sprintf(`
		SELECT hotel_id, page_url, raw_html, raw_html_prev, canonical_html,
			   markdown, markdown_prev, checksum, llm_input_checksum, llm_output,
			   depth, active, is_checksum_updated, created_at, updated_at, llm_updated
		FROM %s WHERE hotel_id = ? AND page_url = ?
	`, p.table)

	page, err := scanPage(p.db.db.QueryRowContext(ctx, query, hotelID, pageURL))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return page, err
}

// ListDirty returns extraction-eligible pages. "IS NOT" gives SQLite's
// NULL-safe inequality: a page never extracted (NULL input checksum) is dirty.
func (p *PageStorage) ListDirty(ctx context.Context, hotelID string) ([]*models.PageArtifact, error) {
	query := fmt.Sprintf(`
		SELECT hotel_id, page_url, raw_html, raw_html_prev, canonical_html,
			   markdown, markdown_prev, checksum, llm_input_checksum, llm_output,
			   depth, active, is_checksum_updated, created_at, updated_at, llm_updated
		FROM %s
		WHERE hotel_id = ? AND active = 1 AND markdown != ''
		  AND llm_input_checksum IS NOT checksum
		ORDER BY depth, page_url
	`, p.table)

	rows, err := p.db.db.QueryContext(ctx, query, hotelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dirty pages: %w", err)
	}
	defer rows.Close()

	var pages []*models.PageArtifact
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

// ListURLs returns every stored page URL for a hotel
func (p *PageStorage) ListURLs(ctx context.Context, hotelID string) ([]string, error) {
	query := fmt.Sprintf("SELECT page_url FROM %s WHERE hotel_id = ? ORDER BY page_url", p.table)
	rows, err := p.db.db.QueryContext(ctx, query, hotelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query page urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// MarkExtracted records a successful extraction for a page
func (p *PageStorage) MarkExtracted(ctx context.Context, hotelID, pageURL, checksum, llmOutput string) error {
	now := time.Now().Unix()
	query := fmt.Sprintf(`
		UPDATE %s SET llm_input_checksum = ?, llm_output = ?, llm_updated = ?, updated_at = ?
		WHERE hotel_id = ? AND page_url = ?
	`, p.table)

	result, err := p.db.db.ExecContext(ctx, query, checksum, llmOutput, now, now, hotelID, pageURL)
	if err != nil {
		return fmt.Errorf("failed to mark page extracted: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("no page artifact for %s / %s", hotelID, pageURL)
	}
	return nil
}

// DeactivateMissing sets active=0 on pages not visited by the latest crawl.
// Deactivation is not deletion; the row and its contents survive.
func (p *PageStorage) DeactivateMissing(ctx context.Context, hotelID string, visited []string) (int, error) {
	now := time.Now().Unix()

	var query string
	args := []interface{}{now, hotelID}
	if len(visited) == 0 {
		query = fmt.Sprintf("UPDATE %s SET active = 0, updated_at = ? WHERE hotel_id = ? AND active = 1", p.table)
	} else {
		placeholders := strings.Repeat("?,", len(visited))
		placeholders = placeholders[:len(placeholders)-1]
		query = fmt.Sprintf(
			"UPDATE %s SET active = 0, updated_at = ? WHERE hotel_id = ? AND active = 1 AND page_url NOT IN (%s)",
			p.table, placeholders)
		for _, u := range visited {
			args = append(args, u)
		}
	}

	result, err := p.db.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate pages: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPage(row rowScanner) (*models.PageArtifact, error) {
	var page models.PageArtifact
	var llmInputChecksum, llmOutput sql.NullString
	var active, checksumUpdated int
	var createdAt, updatedAt int64
	var llmUpdated sql.NullInt64

	err := row.Scan(
		&page.HotelID, &page.PageURL, &page.RawHTML, &page.RawHTMLPrev,
		&page.CanonicalHTML, &page.Markdown, &page.MarkdownPrev, &page.Checksum,
		&llmInputChecksum, &llmOutput, &page.Depth, &active, &checksumUpdated,
		&createdAt, &updatedAt, &llmUpdated,
	)
	if err != nil {
		return nil, err
	}

	page.LLMInputChecksum = llmInputChecksum.String
	page.LLMOutput = llmOutput.String
	page.Active = active != 0
	page.IsChecksumUpdated = checksumUpdated != 0
	page.CreatedAt = time.Unix(createdAt, 0)
	page.UpdatedAt = time.Unix(updatedAt, 0)
	if llmUpdated.Valid {
		page.LLMUpdated = time.Unix(llmUpdated.Int64, 0)
	}
	return &page, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
