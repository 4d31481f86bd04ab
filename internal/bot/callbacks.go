package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	cmdGames = "games"
	cmdCodes = "codes"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	action, arg, ok := strings.Cut(cb.Data, ":")
	if !ok {
		return
	}

	var userID int64
	if cb.From != nil {
		userID = cb.From.ID
	}
	b.log.Info("callback", "action", action, "arg", arg, "chat_id", chatID, "user_id", userID)

	switch action {
	case cmdCodes:
		b.handleCodes(ctx, chatID, arg)
	case cmdGames:
		b.handleGames(chatID)
	}
}
