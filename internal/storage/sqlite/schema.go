package sqlite

import (
	"fmt"
	"strings"

	"github.com/hotelbrief/hotelbrief/internal/models"
)

// pageTableSQL builds the Page Artifact table. Table names are configurable
// so staging and production runs can share one database file.
func pageTableSQL(table string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	hotel_id TEXT NOT NULL,
	page_url TEXT NOT NULL,
	raw_html TEXT NOT NULL DEFAULT '',
	raw_html_prev TEXT NOT NULL DEFAULT '',
	canonical_html TEXT NOT NULL DEFAULT '',
	markdown TEXT NOT NULL DEFAULT '',
	markdown_prev TEXT NOT NULL DEFAULT '',
	checksum TEXT NOT NULL DEFAULT '',
	llm_input_checksum TEXT,
	llm_output TEXT,
	depth INTEGER NOT NULL DEFAULT 0,
	active INTEGER NOT NULL DEFAULT 1,
	is_checksum_updated INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	llm_updated INTEGER,
	PRIMARY KEY (hotel_id, page_url)
);

CREATE INDEX IF NOT EXISTS idx_%s_active ON %s(hotel_id, active);
`, table, table, table)
}

// marketTableSQL builds the Market-Data table with one text column per
// schema category plus the derived other_structured JSON column.
func marketTableSQL(table string) string {
	var cols strings.Builder
	for _, name := range models.CategoryNames() {
		cols.WriteString(fmt.Sprintf("\t%s TEXT,\n", name))
	}
	cols.WriteString(fmt.Sprintf("\t%s TEXT,\n", models.OtherStructuredField))

	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	hotel_id TEXT PRIMARY KEY,
%s	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
`, table, cols.String())
}

const hotelsTableSQL = `
CREATE TABLE IF NOT EXISTS hotels (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	url TEXT NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_hotels_active ON hotels(active);
`

// initSchema creates tables and applies column migrations
func (s *SQLiteDB) initSchema() error {
	statements := []string{
		pageTableSQL(s.config.PageTable),
		marketTableSQL(s.config.DataTable),
		hotelsTableSQL,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return s.migrateMarketColumns()
}

// migrateMarketColumns adds category columns introduced after the table was
// created. Columns are only ever added; the schema is closed per release.
func (s *SQLiteDB) migrateMarketColumns() error {
	existing, err := s.tableColumns(s.config.DataTable)
	if err != nil {
		return err
	}

	wanted := append(models.CategoryNames(), models.OtherStructuredField)
	for _, col := range wanted {
		if existing[col] {
			continue
		}
		alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TEXT", s.config.DataTable, col)
		if _, err := s.db.Exec(alter); err != nil {
			return fmt.Errorf("failed to add column %s: %w", col, err)
		}
		s.logger.Info().Str("table", s.config.DataTable).Str("column", col).Msg("Added market data column")
	}

	return nil
}

// tableColumns returns the column names of a table via PRAGMA table_info
func (s *SQLiteDB) tableColumns(table string) (map[string]bool, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to read table info for %s: %w", table, err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan table info: %w", err)
		}
		columns[name] = true
	}
	return columns, rows.Err()
}
