// Package handlers contains Telegram bot command and message handlers,
// along with their registration logic.
package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/database"
)

const (
	dbOperationTimeout = 5 * time.Second
	sendMessageTimeout = 10 * time.Second
)

// upsertSender reconciles the sending user's stored name and username with
// what Telegram reports on this update. Failures are logged but do not stop
// message processing.
func upsertSender(ctx context.Context, deps HandlerDeps, from *models.User) {
	if from == nil {
		return
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	if err := deps.Store.UpsertUser(dbCtx, from.ID, from.Username, from.FirstName); err != nil {
		deps.Logger.WarnContext(ctx, "Failed to upsert sender", "user_id", from.ID, "error", err)
	}
}

// sendText sends a plain text message with a bounded timeout.
func sendText(ctx context.Context, deps HandlerDeps, b *bot.Bot, chatID int64, text string) {
	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()

	if _, err := b.SendMessage(sendCtx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		deps.Logger.ErrorContext(ctx, "Failed to send message", "error", err, "chat_id", chatID)
	}
}

// saveConversationWithRetry attempts to persist a turn, retrying transient
// store failures a few times before giving up with a logged error.
func saveConversationWithRetry(ctx context.Context, deps HandlerDeps, conv *database.Conversation) {
	const maxRetries = 3
	var err error

	for i := range [maxRetries]struct{}{} {
		if ctx.Err() != nil {
			deps.Logger.WarnContext(ctx, "Context cancelled, aborting conversation save attempts",
				"error", ctx.Err(), "user_id", conv.UserID, "attempt", i+1)
			return
		}

		dbCtx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
		err = deps.Store.SaveConversation(dbCtx, conv)
		cancel()

		if err == nil {
			deps.Logger.DebugContext(ctx, "Conversation saved", "conversation_id", conv.ID, "user_id", conv.UserID)
			return
		}

		deps.Logger.ErrorContext(ctx, "Failed to save conversation, retrying",
			"error", err, "user_id", conv.UserID, "attempt", i+1)
		time.Sleep(time.Duration(500*(i+1)) * time.Millisecond)
	}

	deps.Logger.ErrorContext(ctx, "Failed to save conversation after retries",
		"error", err, "user_id", conv.UserID, "retries", maxRetries)
}
