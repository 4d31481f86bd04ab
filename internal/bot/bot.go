package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"code_tracker/internal/config"
	"code_tracker/internal/model"
	"code_tracker/internal/notify"
	"code_tracker/internal/pipeline"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// GameIndex resolves games by ID and public slug.
type GameIndex interface {
	Games() []model.GameConfig
	Game(id string) (model.GameConfig, bool)
	BySlug(slug string) (model.GameConfig, bool)
}

// CodeLister reads stored codes of one game.
type CodeLister interface {
	ListCodes(ctx context.Context, game string) ([]model.CodeRecord, error)
}

// Scanner runs a discovery pass on demand.
type Scanner interface {
	RunAll(ctx context.Context) []pipeline.Result
}

// Bot answers code lookups and forwards discoveries to configured chats.
type Bot struct {
	api     telegramAPI
	games   GameIndex
	codes   CodeLister
	scanner Scanner
	cfg     *config.Config
	log     *slog.Logger
	pace    time.Duration
}

// New creates a Bot with the given Telegram token.
func New(token string, games GameIndex, codes CodeLister, scanner Scanner, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:     api,
		games:   games,
		codes:   codes,
		scanner: scanner,
		cfg:     cfg,
		log:     log,
		pace:    50 * time.Millisecond,
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// Forward sends every event from sub to the configured chats until ctx is
// cancelled or the subscription ends.
func (b *Bot) Forward(ctx context.Context, sub *notify.Subscription) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			b.announce(ctx, ev)
		}
	}
}

func (b *Bot) announce(ctx context.Context, ev model.Event) {
	if len(b.cfg.TelegramChatIDs) == 0 {
		return
	}
	game, ok := b.games.Game(ev.Game)
	if !ok {
		game = model.GameConfig{ID: ev.Game, Slug: ev.Slug, Name: ev.Game}
	}

	rec := model.CodeRecord{Key: ev.Key}
	if codes, err := b.codes.ListCodes(ctx, ev.Game); err != nil {
		b.log.Warn("look up announced code", "game", ev.Game, "key", ev.Key, "error", err)
	} else {
		for _, c := range codes {
			if c.Key == ev.Key {
				rec = c
				break
			}
		}
	}

	text := FormatDiscovery(game, rec)
	for i, chatID := range b.cfg.TelegramChatIDs {
		if i > 0 && b.pace > 0 {
			// Telegram allows roughly 20 messages per second per bot.
			time.Sleep(b.pace)
		}
		b.SendMessage(chatID, text)
	}
	b.log.Info("announced code", "game", ev.Game, "key", ev.Key, "chats", len(b.cfg.TelegramChatIDs))
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case cmdGames:
		b.handleGames(chatID)
	case cmdCodes:
		b.handleCodes(ctx, chatID, args)
	case "scan":
		var userID int64
		if msg.From != nil {
			userID = msg.From.ID
		}
		if !b.cfg.IsUserAllowed(userID) {
			b.reply(chatID, "Access denied.")
			return
		}
		b.handleScan(ctx, chatID)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
