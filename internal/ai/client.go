// Package ai provides interfaces and implementations for interacting with
// remote text-generation backends.
package ai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/database"
)

// Client defines the interface for generating a reply to the latest user
// message. The visible conversation turns are supplied so the backend can
// assemble context for the generation request.
type Client interface {
	Generate(ctx context.Context, history []database.Conversation, prompt string) (string, error)
}

// NewClient creates and returns a Client based on the configured backend.
// It acts as a factory, selecting either the Hugging Face or Gemini implementation.
func NewClient(ctx context.Context, cfg config.AIConfig, log *slog.Logger) (Client, error) {
	if log == nil {
		log = slog.Default()
	}
	log.Info("Initializing AI client", "backend", cfg.Backend, "model", cfg.Model)

	switch cfg.Backend {
	case "huggingface":
		return newHuggingFaceClient(cfg, log)
	case "gemini":
		return newGeminiClient(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown AI backend specified: %s", cfg.Backend)
	}
}
