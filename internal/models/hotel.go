package models

import "time"

// Hotel is the target of one end-to-end run: an opaque id, a display name
// used in prompts, and the seed URL of its public website.
type Hotel struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
