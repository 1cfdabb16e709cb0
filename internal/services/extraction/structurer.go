package extraction

import (
	"context"
	"encoding/json"

	"github.com/ternarybob/arbor"

	"github.com/hotelbrief/hotelbrief/internal/interfaces"
	"github.com/hotelbrief/hotelbrief/internal/services/llm"
)

// Structurer derives the other_structured JSON from the free-form other
// text. Every failure path falls back to "{}".
type Structurer struct {
	client interfaces.LLMClient
	logger arbor.ILogger
}

// NewStructurer creates a structurer
func NewStructurer(client interfaces.LLMClient, logger arbor.ILogger) *Structurer {
	return &Structurer{
		client: client,
		logger: logger,
	}
}

// Structure converts free-form text into a flat snake_case JSON object string
func (s *Structurer) Structure(ctx context.Context, text string) string {
	if text == "" {
		return "{}"
	}

	response, err := s.client.Complete(ctx, structurerSystemPrompt, buildStructurerPrompt(text), structurerMaxTokens)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Structuring request failed, falling back to empty object")
		return "{}"
	}

	var parsed map[string]interface{}
	if status := llm.DecodeObject(response, &parsed); status == llm.ParseEmpty {
		s.logger.Warn().Int("response_len", len(response)).Msg("Structurer response is not JSON, falling back to empty object")
		return "{}"
	}

	// The object must stay flat; nested values reserialize as their JSON text.
	flat := make(map[string]string, len(parsed))
	for key, value := range parsed {
		switch v := value.(type) {
		case string:
			flat[key] = v
		case nil:
			flat[key] = ""
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				continue
			}
			flat[key] = string(encoded)
		}
	}

	out, err := json.Marshal(flat)
	if err != nil {
		return "{}"
	}
	return string(out)
}
