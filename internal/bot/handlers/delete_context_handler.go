package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewDeleteContextHandler returns a handler for the /deletecontext command.
// It hides the sender's conversation turns so they no longer count toward
// context retrieval; nothing is physically deleted.
func NewDeleteContextHandler(deps HandlerDeps) bot.HandlerFunc {
	return deleteContextHandler{deps}.Handle
}

type deleteContextHandler struct {
	deps HandlerDeps
}

func (h deleteContextHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "delete_context")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Delete context handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID
	log.InfoContext(ctx, "Handling /deletecontext command", "chat_id", chatID, "user_id", userID)

	upsertSender(ctx, h.deps, update.Message.From)

	dbCtx, cancel := context.WithTimeout(ctx, dbOperationTimeout)
	defer cancel()

	if err := h.deps.Store.HideUserConversations(dbCtx, userID); err != nil {
		log.ErrorContext(ctx, "Failed to hide conversations", "error", err, "user_id", userID)
		sendText(ctx, h.deps, b, chatID, h.deps.Config.Telegram.Messages.GeneralError)
		return
	}

	sendText(ctx, h.deps, b, chatID, h.deps.Config.Telegram.Messages.ContextDeleted)
}
