package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/hotelbrief/hotelbrief/internal/interfaces"
	"github.com/hotelbrief/hotelbrief/internal/models"
)

// MarketDataStorage implements interfaces.MarketDataStorage
type MarketDataStorage struct {
	db     *SQLiteDB
	table  string
	logger arbor.ILogger
}

// NewMarketDataStorage creates a new market data storage instance
func NewMarketDataStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.MarketDataStorage {
	return &MarketDataStorage{
		db:     db,
		table:  db.config.DataTable,
		logger: logger,
	}
}

// Get returns the hotel's record, or nil when none exists yet
func (m *MarketDataStorage) Get(ctx context.Context, hotelID string) (*models.MarketDataRecord, error) {
	columns := append(models.CategoryNames(), models.OtherStructuredField)

	query := fmt.Sprintf(
		"SELECT %s, created_at, updated_at FROM %s WHERE hotel_id = ?",
		strings.Join(columns, ", "), m.table)

	values := make([]sql.NullString, len(columns))
	dest := make([]interface{}, 0, len(columns)+2)
	for i := range values {
		dest = append(dest, &values[i])
	}
	var createdAt, updatedAt int64
	dest = append(dest, &createdAt, &updatedAt)

	err := m.db.db.QueryRowContext(ctx, query, hotelID).Scan(dest...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read market data for %s: %w", hotelID, err)
	}

	record := &models.MarketDataRecord{
		HotelID:   hotelID,
		Fields:    make(map[string]string),
		CreatedAt: time.Unix(createdAt, 0),
		UpdatedAt: time.Unix(updatedAt, 0),
	}
	for i, col := range columns {
		if !values[i].Valid {
			continue
		}
		if col == models.OtherStructuredField {
			record.OtherStructured = values[i].String
		} else {
			record.Fields[col] = values[i].String
		}
	}
	return record, nil
}

// Upsert writes only the supplied fields. Every key must be a schema
// category or other_structured; anything else is a programming error.
func (m *MarketDataStorage) Upsert(ctx context.Context, hotelID string, fields map[string]string) error {
	if hotelID == "" {
		return fmt.Errorf("hotel id must not be empty")
	}
	if len(fields) == 0 {
		return fmt.Errorf("no fields to upsert")
	}

	columns := make([]string, 0, len(fields))
	for col := range fields {
		if !models.IsCategoryName(col) && col != models.OtherStructuredField {
			return fmt.Errorf("unknown market data column %q", col)
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)

	now := time.Now().Unix()

	insertCols := append([]string{"hotel_id"}, columns...)
	insertCols = append(insertCols, "created_at", "updated_at")
	placeholders := strings.Repeat("?,", len(insertCols))
	placeholders = placeholders[:len(placeholders)-1]

	var updates strings.Builder
	for _, col := range columns {
		updates.WriteString(fmt.Sprintf("%s = excluded.%s, ", col, col))
	}
	updates.WriteString("updated_at = excluded.updated_at")

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(hotel_id) DO UPDATE SET %s",
		m.table, strings.Join(insertCols, ", "), placeholders, updates.String())

	args := make([]interface{}, 0, len(insertCols))
	args = append(args, hotelID)
	for _, col := range columns {
		args = append(args, fields[col])
	}
	args = append(args, now, now)

	if _, err := m.db.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert market data for %s: %w", hotelID, err)
	}

	m.logger.Debug().
		Str("hotel_id", hotelID).
		Int("fields", len(columns)).
		Msg("Market data upserted")
	return nil
}
