package extraction

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/hotelbrief/hotelbrief/internal/interfaces"
	"github.com/hotelbrief/hotelbrief/internal/models"
	"github.com/hotelbrief/hotelbrief/internal/services/llm"
)

// Snippet is one non-empty value extracted for a category from one page
type Snippet struct {
	PageURL string
	Value   string
}

// Extractor issues one LLM request per dirty page and returns the partial
// category map. Unparseable responses degrade to the empty map.
type Extractor struct {
	client interfaces.LLMClient
	logger arbor.ILogger
}

// NewExtractor creates a per-page extractor
func NewExtractor(client interfaces.LLMClient, logger arbor.ILogger) *Extractor {
	return &Extractor{
		client: client,
		logger: logger,
	}
}

// ExtractPage extracts the category map from one page's markdown. Keys
// outside the closed schema are discarded; missing keys read as "".
func (e *Extractor) ExtractPage(ctx context.Context, hotelName, pageURL, markdown string) (map[string]string, error) {
	prompt := buildExtractorPrompt(hotelName, pageURL, markdown)

	response, err := e.client.Complete(ctx, extractorSystemPrompt, prompt, extractorMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed for %s: %w", pageURL, err)
	}

	var raw map[string]string
	if status := llm.DecodeObject(response, &raw); status == llm.ParseEmpty {
		e.logger.Warn().
			Str("url", pageURL).
			Int("response_len", len(response)).
			Msg("Extractor response is not JSON, treating page as empty")
		return map[string]string{}, nil
	}

	result := make(map[string]string, len(raw))
	for key, value := range raw {
		if !models.IsCategoryName(key) {
			e.logger.Debug().Str("url", pageURL).Str("key", key).Msg("Dropping key outside category schema")
			continue
		}
		result[key] = value
	}
	return result, nil
}

// SerializeOutput renders the category map for the page's llm_output column
func SerializeOutput(categories map[string]string) string {
	data, err := json.Marshal(categories)
	if err != nil {
		return "{}"
	}
	return string(data)
}
