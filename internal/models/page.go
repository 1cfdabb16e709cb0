package models

import "time"

// PageArtifact is the persisted state for one (hotel, URL) pair. Rows are
// deactivated when a crawl completes without visiting them, never deleted.
// The prev columns roll on update. Markdown is NFC-normalized and trimmed,
// Checksum is its hex SHA-256, and LLMInputChecksum is the checksum last
// consumed by the extractor, empty when the page was never extracted.
// LLMOutput holds the serialized category map from the last extraction.
type PageArtifact struct {
	HotelID           string    `json:"hotel_id"`
	PageURL           string    `json:"page_url"`
	RawHTML           string    `json:"raw_html"`
	RawHTMLPrev       string    `json:"raw_html_prev"`
	CanonicalHTML     string    `json:"canonical_html"`
	Markdown          string    `json:"markdown"`
	MarkdownPrev      string    `json:"markdown_prev"`
	Checksum          string    `json:"checksum"`
	LLMInputChecksum  string    `json:"llm_input_checksum"`
	LLMOutput         string    `json:"llm_output"`
	Depth             int       `json:"depth"`
	Active            bool      `json:"active"`
	IsChecksumUpdated bool      `json:"is_checksum_updated"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	LLMUpdated        time.Time `json:"llm_updated"`
}

// IsDirty reports whether the page is extraction-eligible: active, non-empty
// markdown, and the current checksum was never fed to the extractor.
func (p *PageArtifact) IsDirty() bool {
	return p.Active && p.Markdown != "" && p.LLMInputChecksum != p.Checksum
}
