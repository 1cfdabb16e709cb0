package models

import "time"

// MarketDataRecord is the per-hotel categorical knowledge record: one text
// value per schema category, plus the derived other_structured JSON string.
type MarketDataRecord struct {
	HotelID         string            `json:"hotel_id"`
	Fields          map[string]string `json:"fields"` // keyed by category name
	OtherStructured string            `json:"other_structured"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Field returns the stored value for a category, or "" when absent.
func (r *MarketDataRecord) Field(name string) string {
	if r == nil || r.Fields == nil {
		return ""
	}
	return r.Fields[name]
}
