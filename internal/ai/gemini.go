package ai

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/database"
)

// geminiClient implements Client on top of the Gemini SDK. Prior turns are
// mapped to user/model contents instead of being flattened into one string.
type geminiClient struct {
	genaiClient    *genai.Client
	model          string
	fallbackAnswer string
	log            *slog.Logger
}

func newGeminiClient(ctx context.Context, cfg config.AIConfig, log *slog.Logger) (Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Token,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &geminiClient{
		genaiClient:    gi,
		model:          cfg.Model,
		fallbackAnswer: cfg.FallbackAnswer,
		log:            log.With("component", "gemini_client"),
	}, nil
}

func (c *geminiClient) Generate(ctx context.Context, history []database.Conversation, prompt string) (string, error) {
	var contents []*genai.Content
	for _, turn := range history {
		contents = append(contents, genai.NewContentFromText(turn.Question, genai.RoleUser))
		if turn.Answer != "" {
			contents = append(contents, genai.NewContentFromText(turn.Answer, genai.RoleModel))
		}
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	resp, err := c.genaiClient.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		c.log.ErrorContext(ctx, "Gemini API call failed", "error", err)
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		c.log.WarnContext(ctx, "Gemini response missing candidates or content, using fallback answer")
		return c.fallbackAnswer, nil
	}

	text := resp.Text()
	if text == "" {
		c.log.WarnContext(ctx, "Gemini response text is empty, using fallback answer")
		return c.fallbackAnswer, nil
	}

	return text, nil
}
