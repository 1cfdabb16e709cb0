package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/hotelbrief/hotelbrief/internal/interfaces"
	"github.com/hotelbrief/hotelbrief/internal/models"
)

// Writer upserts the fields that survived adjudication into the
// Market-Data record, deriving other_structured when other changed.
type Writer struct {
	market     interfaces.MarketDataStorage
	structurer *Structurer
	logger     arbor.ILogger
}

// NewWriter creates a record writer
func NewWriter(market interfaces.MarketDataStorage, structurer *Structurer, logger arbor.ILogger) *Writer {
	return &Writer{
		market:     market,
		structurer: structurer,
		logger:     logger,
	}
}

// Write persists the merged fields for one hotel. merged holds only the
// fields the adjudicator approved; refined is the full refined map, used
// verbatim when no record exists yet. An empty update set is a logged no-op.
func (w *Writer) Write(ctx context.Context, hotelID string, existing *models.MarketDataRecord, merged, refined map[string]string) error {
	updates := make(map[string]string)

	if existing == nil {
		// First consolidation: the refined map becomes the record, filtered
		// for values that carry information.
		for field, value := range refined {
			trimmed := strings.TrimSpace(value)
			if trimmed == "" || strings.EqualFold(trimmed, "N/A") {
				continue
			}
			updates[field] = trimmed
		}
	} else {
		for field, value := range merged {
			updates[field] = value
		}
	}

	if len(updates) == 0 {
		w.logger.Info().
			Str("hotel_id", hotelID).
			Msg("No market data changes, skipping write")
		return nil
	}

	if otherText, ok := updates["other"]; ok {
		updates[models.OtherStructuredField] = w.structurer.Structure(ctx, otherText)
	}

	if err := w.market.Upsert(ctx, hotelID, updates); err != nil {
		return fmt.Errorf("failed to write market data: %w", err)
	}

	w.logger.Info().
		Str("hotel_id", hotelID).
		Int("fields_written", len(updates)).
		Msg("Market data written")
	return nil
}
