package interfaces

import "context"

// LLMClient is the process-wide, stateless chat-completions client.
type LLMClient interface {
	// Complete sends one prompt pair and returns the assistant text.
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}
