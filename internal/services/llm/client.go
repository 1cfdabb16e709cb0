package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/hotelbrief/hotelbrief/internal/common"
	"github.com/hotelbrief/hotelbrief/internal/interfaces"
)

// PerplexityClient implements interfaces.LLMClient against the
// OpenAI-compatible chat-completions endpoint at api.perplexity.ai.
type PerplexityClient struct {
	apiKey     string
	baseURL    string
	model      string
	maxRetries int
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     arbor.ILogger

	requests int64
	failures int64
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewPerplexityClient creates the process-wide chat-completions client
func NewPerplexityClient(config *common.LLMConfig, logger arbor.ILogger) (interfaces.LLMClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("perplexity api key not configured")
	}

	perSecond := config.RatePerSecond
	if perSecond <= 0 {
		perSecond = 2
	}

	return &PerplexityClient{
		apiKey:     config.APIKey,
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		model:      config.Model,
		maxRetries: config.MaxRetries,
		httpClient: &http.Client{Timeout: config.RequestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(perSecond), 1),
		logger:     logger,
	}, nil
}

// Complete sends one prompt pair and returns the assistant text.
// Transient failures (connection errors, 429, 5xx) are retried with
// exponential backoff. The configured request timeout bounds each attempt
// individually; the caller's context bounds the whole call, backoff included.
func (c *PerplexityClient) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})

	body, err := json.Marshal(chatRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				atomic.AddInt64(&c.failures, 1)
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			atomic.AddInt64(&c.failures, 1)
			return "", err
		}

		atomic.AddInt64(&c.requests, 1)

		text, retryable, err := c.doRequest(ctx, body)
		if err == nil {
			c.logger.Debug().
				Str("model", c.model).
				Int("prompt_len", len(userPrompt)).
				Int("response_len", len(text)).
				Dur("elapsed", time.Since(start)).
				Msg("LLM completion finished")
			return text, nil
		}

		lastErr = err
		if !retryable {
			atomic.AddInt64(&c.failures, 1)
			return "", err
		}

		c.logger.Debug().
			Int("attempt", attempt+1).
			Err(err).
			Msg("Retrying LLM request after backoff")
	}

	atomic.AddInt64(&c.failures, 1)
	c.logger.Warn().
		Int("max_retries", c.maxRetries).
		Err(lastErr).
		Msg("LLM retry attempts exhausted")
	return "", fmt.Errorf("llm request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// doRequest performs one HTTP round trip. The bool result reports whether
// the failure is retryable.
func (c *PerplexityClient) doRequest(ctx context.Context, body []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("api returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("api returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", false, fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", false, fmt.Errorf("api error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", false, fmt.Errorf("no completion returned")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), true, nil
}

// Stats returns the request and failure counters for run summaries
func (c *PerplexityClient) Stats() (requests, failures int64) {
	return atomic.LoadInt64(&c.requests), atomic.LoadInt64(&c.failures)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
