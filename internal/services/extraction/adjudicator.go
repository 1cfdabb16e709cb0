package extraction

import (
	"context"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/hotelbrief/hotelbrief/internal/interfaces"
	"github.com/hotelbrief/hotelbrief/internal/services/llm"
)

// Adjudicator decides, per field, whether a newly refined value
// meaningfully supersedes the stored value, and what the merged text is.
// The degenerate cases never reach the LLM, and any unusable response
// conservatively keeps the existing text.
type Adjudicator struct {
	client interfaces.LLMClient
	logger arbor.ILogger
}

// NewAdjudicator creates a merge adjudicator
func NewAdjudicator(client interfaces.LLMClient, logger arbor.ILogger) *Adjudicator {
	return &Adjudicator{
		client: client,
		logger: logger,
	}
}

type mergeDecision struct {
	IsUpdate   bool   `json:"isUpdate"`
	MergedText string `json:"mergedText"`
}

// Merge returns (isUpdate, mergedText) for one field
func (a *Adjudicator) Merge(ctx context.Context, field, existing, candidate string) (bool, string) {
	if strings.TrimSpace(candidate) == "" {
		return false, existing
	}
	if strings.TrimSpace(existing) == strings.TrimSpace(candidate) {
		return false, existing
	}

	prompt := buildAdjudicatorPrompt(field, existing, candidate)
	response, err := a.client.Complete(ctx, adjudicatorSystemPrompt, prompt, adjudicatorMaxTokens)
	if err != nil {
		a.logger.Warn().
			Str("field", field).
			Err(err).
			Msg("Merge adjudication failed, keeping existing value")
		return false, existing
	}

	var decision mergeDecision
	if status := llm.DecodeObject(response, &decision); status == llm.ParseEmpty {
		a.logger.Warn().
			Str("field", field).
			Int("response_len", len(response)).
			Msg("Merge adjudication response is not JSON, keeping existing value")
		return false, existing
	}

	if !decision.IsUpdate {
		return false, existing
	}
	if strings.TrimSpace(decision.MergedText) == "" {
		// An update with no merged text is a contradiction; keep what we have.
		return false, existing
	}

	a.logger.Debug().
		Str("field", field).
		Int("merged_len", len(decision.MergedText)).
		Msg("Field merge adjudicated as update")
	return true, decision.MergedText
}
