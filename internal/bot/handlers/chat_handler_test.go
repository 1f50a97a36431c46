package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/database"
)

// fakeAIClient returns a canned answer or error for every Generate call.
type fakeAIClient struct {
	answer  string
	err     error
	history []database.Conversation
	prompt  string
}

func (f *fakeAIClient) Generate(_ context.Context, history []database.Conversation, prompt string) (string, error) {
	f.history = history
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func newTestDeps(t *testing.T, aiClient *fakeAIClient) HandlerDeps {
	t.Helper()

	db, err := sqlx.Connect("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	// One connection only: each in-memory SQLite connection is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if err := database.ApplyMigrations(db.DB, ":memory:"); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return HandlerDeps{
		Logger: log,
		Config: &config.Config{
			AI: config.AIConfig{Timeout: 5 * time.Second},
			Telegram: config.TelegramConfig{
				Messages: config.MessagesConfig{
					Welcome:        "welcome",
					ContextDeleted: "context deleted",
					GeneralError:   "general error",
				},
			},
		},
		Store:    database.NewStore(db, log),
		AIClient: aiClient,
	}
}

func TestChatRespond(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("success persists turn and sends answer verbatim", func(t *testing.T) {
		t.Parallel()

		aiClient := &fakeAIClient{answer: "Hi there"}
		deps := newTestDeps(t, aiClient)
		if err := deps.Store.UpsertUser(ctx, 42, "alice", "Alice"); err != nil {
			t.Fatalf("UpsertUser failed: %v", err)
		}

		var sent []string
		chatHandler{deps}.respond(ctx, 42, "Hello", func(_ context.Context, text string) {
			sent = append(sent, text)
		})

		if len(sent) != 1 || sent[0] != "Hi there" {
			t.Errorf("sent = %v, want [Hi there]", sent)
		}
		if aiClient.prompt != "Hello" {
			t.Errorf("prompt = %q, want %q", aiClient.prompt, "Hello")
		}

		turns, err := deps.Store.GetVisibleConversations(ctx, 42)
		if err != nil {
			t.Fatalf("GetVisibleConversations failed: %v", err)
		}
		if len(turns) != 1 {
			t.Fatalf("len(turns) = %d, want 1", len(turns))
		}
		if turns[0].Question != "Hello" || turns[0].Answer != "Hi there" {
			t.Errorf("turn = %q/%q, want Hello/Hi there", turns[0].Question, turns[0].Answer)
		}
		if turns[0].CreatedAt == 0 {
			t.Error("expected turn timestamp to be set")
		}
	})

	t.Run("generation failure sends error text and persists nothing", func(t *testing.T) {
		t.Parallel()

		aiClient := &fakeAIClient{err: errors.New("api unreachable")}
		deps := newTestDeps(t, aiClient)
		if err := deps.Store.UpsertUser(ctx, 42, "alice", "Alice"); err != nil {
			t.Fatalf("UpsertUser failed: %v", err)
		}

		var sent []string
		chatHandler{deps}.respond(ctx, 42, "Bye", func(_ context.Context, text string) {
			sent = append(sent, text)
		})

		if len(sent) != 1 || sent[0] != "general error" {
			t.Errorf("sent = %v, want [general error]", sent)
		}

		turns, err := deps.Store.GetVisibleConversations(ctx, 42)
		if err != nil {
			t.Fatalf("GetVisibleConversations failed: %v", err)
		}
		if len(turns) != 0 {
			t.Errorf("len(turns) = %d, want 0", len(turns))
		}
	})

	t.Run("visible history is forwarded to the generation call", func(t *testing.T) {
		t.Parallel()

		aiClient := &fakeAIClient{answer: "next"}
		deps := newTestDeps(t, aiClient)
		if err := deps.Store.UpsertUser(ctx, 42, "alice", "Alice"); err != nil {
			t.Fatalf("UpsertUser failed: %v", err)
		}
		if err := deps.Store.SaveConversation(ctx, &database.Conversation{
			UserID: 42, Question: "earlier", Answer: "answer", CreatedAt: 1,
		}); err != nil {
			t.Fatalf("SaveConversation failed: %v", err)
		}

		chatHandler{deps}.respond(ctx, 42, "now", func(context.Context, string) {})

		if len(aiClient.history) != 1 || aiClient.history[0].Question != "earlier" {
			t.Errorf("history = %+v, want the earlier turn", aiClient.history)
		}
	})

	t.Run("hidden history is not forwarded", func(t *testing.T) {
		t.Parallel()

		aiClient := &fakeAIClient{answer: "next"}
		deps := newTestDeps(t, aiClient)
		if err := deps.Store.UpsertUser(ctx, 42, "alice", "Alice"); err != nil {
			t.Fatalf("UpsertUser failed: %v", err)
		}
		if err := deps.Store.SaveConversation(ctx, &database.Conversation{
			UserID: 42, Question: "earlier", Answer: "answer", CreatedAt: 1,
		}); err != nil {
			t.Fatalf("SaveConversation failed: %v", err)
		}
		if err := deps.Store.HideUserConversations(ctx, 42); err != nil {
			t.Fatalf("HideUserConversations failed: %v", err)
		}

		chatHandler{deps}.respond(ctx, 42, "now", func(context.Context, string) {})

		if len(aiClient.history) != 0 {
			t.Errorf("history = %+v, want empty after context deletion", aiClient.history)
		}
	})
}
