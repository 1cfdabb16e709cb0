package interfaces

import (
	"context"

	"github.com/hotelbrief/hotelbrief/internal/models"
)

// PageStorage persists Page Artifacts keyed by (hotel_id, page_url).
type PageStorage interface {
	// Upsert saves a scraped page. A pre-existing row has its markdown and
	// raw HTML rolled into the *_prev columns; is_checksum_updated is set
	// when the checksum changed.
	Upsert(ctx context.Context, page *models.PageArtifact) error

	// Get returns the artifact for one URL, or nil when absent.
	Get(ctx context.Context, hotelID, pageURL string) (*models.PageArtifact, error)

	// ListDirty returns active pages with non-empty markdown whose current
	// checksum was never consumed by the extractor, ordered by depth then URL.
	ListDirty(ctx context.Context, hotelID string) ([]*models.PageArtifact, error)

	// ListURLs returns every stored page URL for a hotel.
	ListURLs(ctx context.Context, hotelID string) ([]string, error)

	// MarkExtracted records a successful extraction: llm_input_checksum is
	// set to checksum and llm_output to the serialized category map.
	MarkExtracted(ctx context.Context, hotelID, pageURL, checksum, llmOutput string) error

	// DeactivateMissing sets active=0 on every page of the hotel whose URL
	// is not in visited, returning the number of rows deactivated.
	DeactivateMissing(ctx context.Context, hotelID string, visited []string) (int, error)
}

// MarketDataStorage persists the per-hotel categorical record.
type MarketDataStorage interface {
	// Get returns the hotel's record, or nil when none exists yet.
	Get(ctx context.Context, hotelID string) (*models.MarketDataRecord, error)

	// Upsert writes only the supplied fields; keys must be category names
	// or other_structured. Unknown keys are rejected.
	Upsert(ctx context.Context, hotelID string, fields map[string]string) error
}

// HotelStorage backs the driver loop's hotel selection.
type HotelStorage interface {
	ListActive(ctx context.Context) ([]*models.Hotel, error)
	Upsert(ctx context.Context, hotel *models.Hotel) error
	Get(ctx context.Context, hotelID string) (*models.Hotel, error)
}
