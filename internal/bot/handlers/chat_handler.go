package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/relaybot/internal/database"
)

// NewChatHandler returns the default handler for plain text messages.
// It relays the message to the generation API, persists the exchange,
// and replies with the generated text.
func NewChatHandler(deps HandlerDeps) bot.HandlerFunc {
	h := chatHandler{deps}
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		log := deps.Logger.With("handler", "chat")

		msg := update.Message
		if msg == nil || msg.From == nil || strings.TrimSpace(msg.Text) == "" {
			log.DebugContext(ctx, "Ignoring update with nil message, empty text, or nil sender", "update_id", update.ID)
			return
		}

		log.InfoContext(ctx, "Handling text message", "chat_id", msg.Chat.ID, "user_id", msg.From.ID)

		upsertSender(ctx, deps, msg.From)

		chatID := msg.Chat.ID
		h.respond(ctx, msg.From.ID, msg.Text, func(sendCtx context.Context, text string) {
			sendText(sendCtx, deps, b, chatID, text)
		})
	}
}

// chatHandler holds the relay flow independent of the Telegram transport so
// it can be exercised without a live bot connection.
type chatHandler struct {
	deps HandlerDeps
}

// respond fetches the sender's visible turns, calls the generation API with a
// bounded timeout, persists the exchange on success, and delivers the answer
// through send. On a transport failure nothing is persisted and the fixed
// error text is sent instead.
func (h chatHandler) respond(ctx context.Context, userID int64, text string, send func(context.Context, string)) {
	deps := h.deps
	log := deps.Logger.With("handler", "chat")

	dbCtx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	history, err := deps.Store.GetVisibleConversations(dbCtx, userID)
	cancel()
	if err != nil {
		log.ErrorContext(ctx, "Failed to retrieve conversation history", "error", err, "user_id", userID)
		history = nil
	}

	aiCtx, cancel := context.WithTimeout(ctx, deps.Config.AI.Timeout)
	answer, err := deps.AIClient.Generate(aiCtx, history, text)
	cancel()
	if err != nil {
		log.ErrorContext(ctx, "Generation request failed", "error", err, "user_id", userID)
		send(ctx, deps.Config.Telegram.Messages.GeneralError)
		return
	}

	conv := &database.Conversation{
		UserID:    userID,
		Question:  text,
		Answer:    answer,
		CreatedAt: time.Now().Unix(),
	}
	saveConversationWithRetry(ctx, deps, conv)

	send(ctx, answer)
}
