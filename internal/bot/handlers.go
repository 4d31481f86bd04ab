package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to Code Tracker!

I watch official Weibo accounts for new redemption codes and post them here as soon as they appear.

Quick start:
1. /games — see which games are tracked
2. /codes <game> — latest codes for a game

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Lookups:
/games — list tracked games
/codes <game> [n] — show the latest n codes (default 10, max 50)

Maintenance:
/scan — run a discovery pass now (allowed users only)

Games are addressed by their short name, e.g. /codes deepspace`)
}

func (b *Bot) handleGames(chatID int64) {
	games := b.games.Games()
	msg := tgbotapi.NewMessage(chatID, FormatGameList(games))
	if len(games) > 0 {
		var rows [][]tgbotapi.InlineKeyboardButton
		for _, g := range games {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(g.Name, cmdCodes+":"+g.Slug),
			))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send game list", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleCodes(ctx context.Context, chatID int64, args string) {
	slug, limit, err := ParseCodesArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	game, ok := b.games.BySlug(slug)
	if !ok {
		b.reply(chatID, fmt.Sprintf("Unknown game %q. Use /games to see the list.", slug))
		return
	}

	codes, err := b.codes.ListCodes(ctx, game.ID)
	if err != nil {
		b.log.Error("list codes", "game", game.ID, "error", err)
		b.reply(chatID, "Could not load codes, please try again later.")
		return
	}
	b.reply(chatID, FormatCodeList(game, codes, limit))
}

func (b *Bot) handleScan(ctx context.Context, chatID int64) {
	b.reply(chatID, "Scanning...")
	results := b.scanner.RunAll(ctx)
	b.reply(chatID, FormatScanResults(results))
}
