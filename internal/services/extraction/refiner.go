package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/hotelbrief/hotelbrief/internal/interfaces"
	"github.com/hotelbrief/hotelbrief/internal/models"
)

// Refiner consolidates all snippets gathered for one category into the
// single refined value for that field.
type Refiner struct {
	client interfaces.LLMClient
	logger arbor.ILogger
}

// NewRefiner creates a per-field refiner
func NewRefiner(client interfaces.LLMClient, logger arbor.ILogger) *Refiner {
	return &Refiner{
		client: client,
		logger: logger,
	}
}

// RefineField produces the consolidated value for one category. An empty
// bucket short-circuits to "" without an LLM call.
func (r *Refiner) RefineField(ctx context.Context, hotelName string, category models.Category, snippets []Snippet) (string, error) {
	if len(snippets) == 0 {
		return "", nil
	}

	prompt := buildRefinerPrompt(hotelName, category, snippets)
	response, err := r.client.Complete(ctx, refinerSystemPrompt, prompt, refinerMaxTokens)
	if err != nil {
		return "", fmt.Errorf("refinement request failed for %s: %w", category.Name, err)
	}

	refined := strings.TrimSpace(response)
	r.logger.Debug().
		Str("field", category.Name).
		Int("snippets", len(snippets)).
		Int("refined_len", len(refined)).
		Msg("Field refined")
	return refined, nil
}
