package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/hotelbrief/hotelbrief/internal/interfaces"
	"github.com/hotelbrief/hotelbrief/internal/models"
)

// HotelStorage implements interfaces.HotelStorage over the hotels table
type HotelStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewHotelStorage creates a new hotel storage instance
func NewHotelStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.HotelStorage {
	return &HotelStorage{
		db:     db,
		logger: logger,
	}
}

// ListActive returns the hotels eligible for the driver loop
func (h *HotelStorage) ListActive(ctx context.Context) ([]*models.Hotel, error) {
	rows, err := h.db.db.QueryContext(ctx,
		"SELECT id, name, url, active, created_at, updated_at FROM hotels WHERE active = 1 ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query active hotels: %w", err)
	}
	defer rows.Close()

	var hotels []*models.Hotel
	for rows.Next() {
		hotel, err := scanHotel(rows)
		if err != nil {
			return nil, err
		}
		hotels = append(hotels, hotel)
	}
	return hotels, rows.Err()
}

// Get returns one hotel, or nil when absent
func (h *HotelStorage) Get(ctx context.Context, hotelID string) (*models.Hotel, error) {
	row := h.db.db.QueryRowContext(ctx,
		"SELECT id, name, url, active, created_at, updated_at FROM hotels WHERE id = ?", hotelID)
	hotel, err := scanHotel(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return hotel, err
}

// Upsert saves a hotel
func (h *HotelStorage) Upsert(ctx context.Context, hotel *models.Hotel) error {
	if hotel.ID == "" {
		return fmt.Errorf("hotel id must not be empty")
	}

	now := time.Now().Unix()
	_, err := h.db.db.ExecContext(ctx, `
		INSERT INTO hotels (id, name, url, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			url = excluded.url,
			active = excluded.active,
			updated_at = excluded.updated_at
	`, hotel.ID, hotel.Name, hotel.URL, boolToInt(hotel.Active), now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert hotel %s: %w", hotel.ID, err)
	}
	return nil
}

func scanHotel(row rowScanner) (*models.Hotel, error) {
	var hotel models.Hotel
	var active int
	var createdAt, updatedAt int64

	if err := row.Scan(&hotel.ID, &hotel.Name, &hotel.URL, &active, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	hotel.Active = active != 0
	hotel.CreatedAt = time.Unix(createdAt, 0)
	hotel.UpdatedAt = time.Unix(updatedAt, 0)
	return &hotel, nil
}
