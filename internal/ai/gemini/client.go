package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/talentscout/talentscout/internal/ai"
	"github.com/talentscout/talentscout/internal/textutil"
	"github.com/talentscout/talentscout/internal/utils"
)

const (
	defaultModel      = "gemini-2.5-flash"
	defaultMaxRetries = 3
	defaultBackoff    = time.Second
	defaultTimeout    = 60 * time.Second
	defaultMaxLogLen  = 200
)

// contentCaller is the slice of the genai SDK the client depends on.
// Narrowed to an interface so tests can swap in a fake backend.
type contentCaller interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client wraps the Google GenAI SDK with bounded retry, exponential backoff
// and response normalization. It is the only component that talks to the
// generation backend.
type Client struct {
	models     contentCaller
	model      string
	maxRetries int
	backoff    time.Duration
	timeout    time.Duration
	maxLogLen  int
	logger     *zap.Logger
}

// Config holds the settings for the Gemini backend.
type Config struct {
	APIKey     string
	Model      string
	MaxRetries int
	Backoff    time.Duration
	Timeout    time.Duration
	MaxLogLen  int
}

// New creates a Client configured for the Gemini API backend.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	maxLogLen := cfg.MaxLogLen
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLen
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		models:     client.Models,
		model:      model,
		maxRetries: maxRetries,
		backoff:    backoff,
		timeout:    timeout,
		maxLogLen:  maxLogLen,
		logger:     logger,
	}, nil
}

// WithRetries returns a copy of the client with a different attempt budget.
// Scoring and summary flows run with a smaller budget than question
// generation while sharing the underlying backend connection.
func (c *Client) WithRetries(n int) *Client {
	if n <= 0 {
		return c
	}
	clone := *c
	clone.maxRetries = n
	return &clone
}

// Model returns the configured model name.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// GenerateContent sends the prompt to Gemini and returns the normalized text
// of the response. Each attempt runs under its own deadline; transient
// failures are retried with exponential backoff, and an *ai.GenerationError
// is returned once the attempt budget is exhausted or the caller's context
// is done.
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if c == nil || c.models == nil {
		return "", errors.New("gemini client is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	c.logger.Debug("gemini generate content request",
		zap.String("model", c.model),
		zap.Int("prompt_length", len(prompt)),
		zap.String("prompt_preview", textutil.TruncateForLog(prompt, c.maxLogLen)),
	)

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff * (1 << (attempt - 1))
			c.logger.Debug("retrying gemini request",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
			)
			if err := utils.WaitFor(ctx, delay); err != nil {
				return "", &ai.GenerationError{Attempts: attempt, Err: err}
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.models.GenerateContent(attemptCtx, c.model, genai.Text(prompt), nil)
		cancel()
		if err != nil {
			lastErr = err
			c.logger.Warn("gemini request failed",
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			if ctx.Err() != nil {
				return "", &ai.GenerationError{Attempts: attempt + 1, Err: lastErr}
			}
			continue
		}

		output := flattenResponse(resp)
		if output == "" {
			lastErr = errors.New("gemini api returned empty response")
			continue
		}

		c.logger.Debug("gemini generate content response",
			zap.Int("response_length", len(output)),
			zap.String("response_preview", textutil.TruncateForLog(output, c.maxLogLen)),
		)

		return output, nil
	}

	return "", &ai.GenerationError{Attempts: c.maxRetries, Err: lastErr}
}

// flattenResponse joins all non-empty text parts across candidates into one
// trimmed string, isolating callers from the SDK response shape.
func flattenResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}
