package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/database"
)

// APIError represents a non-success response from the inference API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("inference API error: status %d: %s", e.StatusCode, e.Body)
}

// generateRequest is the request body for the Hugging Face inference endpoint.
type generateRequest struct {
	Inputs string `json:"inputs"`
}

// generation is one candidate completion in a successful response payload.
type generation struct {
	GeneratedText string `json:"generated_text"`
}

// huggingFaceClient calls the Hugging Face Inference API over plain HTTP.
type huggingFaceClient struct {
	httpClient     *http.Client
	baseURL        string
	model          string
	token          string
	fallbackAnswer string
	maxRetries     int
	retryDelay     time.Duration
	log            *slog.Logger
}

func newHuggingFaceClient(cfg config.AIConfig, log *slog.Logger) (Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("inference API token is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("inference model name is required")
	}

	return &huggingFaceClient{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		model:          cfg.Model,
		token:          cfg.Token,
		fallbackAnswer: cfg.FallbackAnswer,
		maxRetries:     cfg.MaxRetries,
		retryDelay:     time.Second,
		log:            log.With("component", "huggingface_client"),
	}, nil
}

// Generate sends the assembled prompt to the model endpoint and returns the
// generated text. Non-success statuses surface as *APIError; a successful
// response whose payload doesn't match the expected shape degrades to the
// configured fallback answer.
func (c *huggingFaceClient) Generate(ctx context.Context, history []database.Conversation, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	body, err := json.Marshal(generateRequest{Inputs: buildPrompt(history, prompt)})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	resp, err := c.doWithRetries(ctx, body)
	if err != nil {
		return "", err
	}

	var candidates []generation
	if err := json.Unmarshal(resp, &candidates); err != nil || len(candidates) == 0 || candidates[0].GeneratedText == "" {
		c.log.WarnContext(ctx, "Unexpected response shape from inference API, using fallback answer",
			"error", err, "payload_preview", truncate(string(resp), 200))
		return c.fallbackAnswer, nil
	}

	return candidates[0].GeneratedText, nil
}

// doWithRetries performs the HTTP request, retrying only on 5xx statuses up
// to the configured attempt budget. The default budget is zero retries.
func (c *huggingFaceClient) doWithRetries(ctx context.Context, body []byte) ([]byte, error) {
	url := c.baseURL + "/models/" + c.model

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.log.InfoContext(ctx, "Retrying inference request", "attempt", attempt+1, "delay", c.retryDelay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("inference request failed: %w", err)
		}

		data, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.log.WarnContext(ctx, "Failed to close response body", "error", closeErr)
		}
		if readErr != nil {
			return nil, fmt.Errorf("failed to read response body: %w", readErr)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return data, nil
		}

		apiErr := &APIError{StatusCode: resp.StatusCode, Body: truncate(string(data), 200)}
		if resp.StatusCode >= 500 && attempt < c.maxRetries {
			c.log.WarnContext(ctx, "Inference API returned server error, will retry",
				"status", resp.StatusCode, "attempt", attempt+1)
			lastErr = apiErr
			continue
		}

		c.log.ErrorContext(ctx, "Inference API request failed", "status", resp.StatusCode, "body", apiErr.Body)
		return nil, apiErr
	}

	return nil, lastErr
}

// buildPrompt prepends the visible prior turns to the latest message so the
// model sees the accumulated conversation, oldest first.
func buildPrompt(history []database.Conversation, prompt string) string {
	if len(history) == 0 {
		return prompt
	}

	var sb strings.Builder
	for _, turn := range history {
		sb.WriteString(turn.Question)
		sb.WriteString("\n")
		if turn.Answer != "" {
			sb.WriteString(turn.Answer)
			sb.WriteString("\n")
		}
	}
	sb.WriteString(prompt)
	return sb.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
