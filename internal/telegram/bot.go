package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/sashakosti/Go_Bot_Roulette/internal/config"
	"github.com/sashakosti/Go_Bot_Roulette/internal/logger"
	"github.com/sashakosti/Go_Bot_Roulette/internal/service"
)

type Bot struct {
	bot     *tgbotapi.BotAPI
	handler *Handler

	updateTimeout int
	maxConcurrent int
}

func NewBot(cfg config.Config, svc service.GameServiceInterface) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, err
	}

	handler := NewHandler(botAPI, svc,
		WithAdmins(cfg.AdminIDs),
		WithRequestTimeout(cfg.RequestTimeout),
	)

	return &Bot{
		bot:           botAPI,
		handler:       handler,
		updateTimeout: cfg.UpdateTimeout,
		maxConcurrent: cfg.MaxConcurrentUpdates,
	}, nil
}

// Start читает апдейты, пока не отменён ctx. Каждый апдейт обрабатывается
// в своей горутине, одновременно не больше maxConcurrent.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.updateTimeout
	updates := b.bot.GetUpdatesChan(u)

	logger.Log.Infow("Bot started!", "username", b.bot.Self.UserName)

	var g errgroup.Group
	g.SetLimit(b.maxConcurrent)

	for {
		select {
		case <-ctx.Done():
			b.bot.StopReceivingUpdates()
			return g.Wait()
		case update, ok := <-updates:
			if !ok {
				return g.Wait()
			}
			g.Go(func() error {
				b.handler.Dispatch(ctx, update)
				return nil
			})
		}
	}
}

// Dispatch раскладывает апдейт по хендлерам.
func (h *Handler) Dispatch(ctx context.Context, update tgbotapi.Update) {
	if update.Message != nil { // If we got a message
		msg := update.Message
		if msg.From == nil || msg.Chat == nil {
			return
		}
		chatID := msg.Chat.ID
		switch msg.Command() {
		case "start", "help":
			h.HandleHelp(chatID)
		case "roll", "shoot":
			h.HandleRoll(ctx, chatID, msg.MessageID, msg.From)
		case "top", "leaderboard":
			h.HandleLeaderboard(ctx, chatID)
		case "me", "stats":
			h.HandleMyStats(ctx, chatID, msg.From)
		case "forgetme":
			h.HandleForgetMe(ctx, chatID, msg.From)
		case "wipe":
			h.HandleWipe(ctx, chatID, msg.From)
		}
	} else if update.CallbackQuery != nil {
		callback := update.CallbackQuery
		if callback.Message == nil || callback.Message.Chat == nil || callback.From == nil {
			return
		}

		// Answer callback query so the loading icon on the button disappears
		if _, err := h.Bot.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
			logger.Log.Warnw("failed to answer callback", "error", err)
		}

		chatID := callback.Message.Chat.ID
		switch callback.Data {
		case "help":
			h.HandleHelp(chatID)
		case "roll":
			h.HandleRoll(ctx, chatID, 0, callback.From)
		case "top":
			h.HandleLeaderboard(ctx, chatID)
		case "me":
			h.HandleMyStats(ctx, chatID, callback.From)
		}
	}
}
