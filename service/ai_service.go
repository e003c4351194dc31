package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/trandvq/docsense/config"
	"github.com/trandvq/docsense/types"
)

// Generator produces answers from a grounded prompt and prior conversation
// turns. Implementations wrap a specific model provider.
type Generator interface {
	Chat(ctx context.Context, prompt string, messages []types.Message) (string, error)
	Model() string
	Health(ctx context.Context) bool
}

const generateBackoffBaseWait = 500 * time.Millisecond

// generateWithRetry runs fn with bounded retries and doubling backoff.
// The chat engine calls this around every provider request so transient
// provider hiccups do not surface as user-visible errors.
func generateWithRetry(ctx context.Context, maxRetries int, fn func() (string, error)) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			wait := generateBackoffBaseWait << (attempt - 1)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}

		answer, err := fn()
		if err == nil {
			return answer, nil
		}
		lastErr = err
	}

	return "", fmt.Errorf("generation failed after %d attempts: %w", maxRetries+1, lastErr)
}

// NewGenerator builds the configured provider. Unknown providers are an
// error at startup rather than a silent default.
func NewGenerator(cfg config.GenerationConfig) (Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "local":
		return NewOpenAIService(cfg.Endpoint, cfg.OpenAIAPIKey, cfg.Model, cfg.MaxTokens, cfg.Temperature, cfg.Timeout), nil
	case "gemini":
		return NewGeminiService(cfg.GeminiAPIKeys, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}
