package telegram

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sashakosti/Go_Bot_Roulette/internal/leaderboard"
	"github.com/sashakosti/Go_Bot_Roulette/internal/logger"
	"github.com/sashakosti/Go_Bot_Roulette/internal/service"
	"github.com/sashakosti/Go_Bot_Roulette/internal/storage"
)

const defaultRequestTimeout = 10 * time.Second

// MessageSender определяет интерфейс для отправки сообщений.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Handler struct {
	Bot     MessageSender
	Service service.GameServiceInterface

	admins  []int64
	timeout time.Duration
	now     func() time.Time
}

type HandlerOption func(*Handler)

// WithAdmins - кто может делать /wipe.
func WithAdmins(ids []int64) HandlerOption {
	return func(h *Handler) {
		h.admins = ids
	}
}

// WithRequestTimeout ограничивает время обработки одного апдейта.
func WithRequestTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		h.timeout = d
	}
}

// WithClock подменяет часы, от которых считается конец мута.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.now = now
	}
}

func NewHandler(bot MessageSender, service service.GameServiceInterface, opts ...HandlerOption) *Handler {
	h := &Handler{
		Bot:     bot,
		Service: service,
		timeout: defaultRequestTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleRoll - /roll, выстрел
func (h *Handler) HandleRoll(ctx context.Context, chatID int64, messageID int, user *tgbotapi.User) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	out, err := h.Service.Fire(ctx, chatID, playerFromUser(user))
	statsLost := errors.Is(err, service.ErrStatsNotRecorded)
	if err != nil && !statsLost {
		logger.Log.Errorw("[Roll] fire failed", "chat_id", chatID, "player_id", user.ID, "error", err)
		sendMessage(h.Bot, tgbotapi.NewMessage(chatID, "Револьвер заклинило 😅 Попробуй ещё раз."))
		return
	}

	if out.Reloaded && !out.Died {
		sendMessage(h.Bot, tgbotapi.NewMessage(chatID, "перезаряжаю 🔫"))
	}

	name := displayName(user)
	var text string
	if out.Died {
		text = fmt.Sprintf("💥 БАХ! %s ловит пулю 😵 [мут на %s]", name, formatPenalty(out.Penalty()))
	} else {
		text = fmt.Sprintf("🔫 Осечка! 😎 %s живёт дальше. В барабане %d %s.",
			name, out.RemainingBefore, Pluralize(out.RemainingBefore, [3]string{"камора", "каморы", "камор"}))
	}
	reply := tgbotapi.NewMessage(chatID, text)
	reply.ReplyToMessageID = messageID
	sendMessage(h.Bot, reply)

	if out.Died {
		h.mute(chatID, user, out.Penalty())
		sendMessage(h.Bot, tgbotapi.NewMessage(chatID, "перезаряжаю 🔫"))
	}

	if statsLost {
		sendMessage(h.Bot, tgbotapi.NewMessage(chatID, "⚠️ Выстрел был, но статистика не записалась."))
	}
}

// mute запрещает игроку писать в чат до конца наказания.
func (h *Handler) mute(chatID int64, user *tgbotapi.User, penalty time.Duration) {
	until := h.now().Add(penalty)
	restrict := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: chatID,
			UserID: user.ID,
		},
		UntilDate:   until.Unix(),
		Permissions: &tgbotapi.ChatPermissions{},
	}
	if _, err := h.Bot.Request(restrict); err != nil {
		logger.Log.Warnw("[Roll] mute failed", "chat_id", chatID, "player_id", user.ID, "error", err)
		sendMessage(h.Bot, tgbotapi.NewMessage(chatID, fmt.Sprintf("😿 не вышло, потому что: %v", err)))
	}
}

// HandleLeaderboard - Обработка команды /top, таблица уходит файлом
func (h *Handler) HandleLeaderboard(ctx context.Context, chatID int64) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	records, err := h.Service.GetLeaderboard(ctx)
	if err != nil {
		logger.Log.Errorw("[Top] failed", "chat_id", chatID, "error", err)
		sendMessage(h.Bot, tgbotapi.NewMessage(chatID, "Не удалось получить рейтинг 😅"))
		return
	}

	if len(records) == 0 {
		sendMessage(h.Bot, tgbotapi.NewMessage(chatID, "Пока никто не стрелял. Начни с /roll."))
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  "leaderboard.txt",
		Bytes: []byte(leaderboard.Render(records)),
	})
	doc.Caption = "🏆 Рейтинг по времени в муте"
	sendMessage(h.Bot, doc)
}

// HandleMyStats - /me, личная статистика
func (h *Handler) HandleMyStats(ctx context.Context, chatID int64, user *tgbotapi.User) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	p, err := h.Service.GetPlayerStats(ctx, user.ID)
	if errors.Is(err, storage.ErrNotFound) {
		sendMessage(h.Bot, tgbotapi.NewMessage(chatID, fmt.Sprintf("%s, ты ещё не стрелял. Попробуй /roll.", displayName(user))))
		return
	}
	if err != nil {
		logger.Log.Errorw("[Me] failed", "player_id", user.ID, "error", err)
		sendMessage(h.Bot, tgbotapi.NewMessage(chatID, "Не удалось получить статистику 😅"))
		return
	}

	text := fmt.Sprintf("%s: выстрелов %d, осечек %d, смертей %d, в муте %s",
		displayName(user), p.ShotCounter, p.MissCounter, p.DeadCounter, leaderboard.FormatDuration(p.TotalPenalty()))
	sendMessage(h.Bot, tgbotapi.NewMessage(chatID, text))
}

// HandleForgetMe - /forgetme, игрок удаляет свою статистику
func (h *Handler) HandleForgetMe(ctx context.Context, chatID int64, user *tgbotapi.User) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := h.Service.ForgetPlayer(ctx, user.ID); err != nil {
		logger.Log.Errorw("[ForgetMe] failed", "player_id", user.ID, "error", err)
		sendMessage(h.Bot, tgbotapi.NewMessage(chatID, "Не получилось тебя забыть 😅"))
		return
	}
	sendMessage(h.Bot, tgbotapi.NewMessage(chatID, fmt.Sprintf("🧹 %s, я тебя забыл.", displayName(user))))
}

// HandleWipe - /wipe, только для админов из ADMIN_IDS
func (h *Handler) HandleWipe(ctx context.Context, chatID int64, user *tgbotapi.User) {
	if !slices.Contains(h.admins, user.ID) {
		logger.Log.Warnw("[Wipe] denied", "player_id", user.ID)
		sendMessage(h.Bot, tgbotapi.NewMessage(chatID, "⛔ Только для админов."))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := h.Service.WipeAll(ctx); err != nil {
		logger.Log.Errorw("[Wipe] failed", "player_id", user.ID, "error", err)
		sendMessage(h.Bot, tgbotapi.NewMessage(chatID, "Не удалось стереть статистику 😅"))
		return
	}
	sendMessage(h.Bot, tgbotapi.NewMessage(chatID, "🧨 Вся статистика обнулена."))
}

var commandsKeyboard = tgbotapi.NewInlineKeyboardMarkup(
	tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔫 Выстрелить", "roll"),
		tgbotapi.NewInlineKeyboardButtonData("Рейтинг", "top"),
		tgbotapi.NewInlineKeyboardButtonData("Моя статистика", "me"),
	),
)

// HandleHelp - /help
func (h *Handler) HandleHelp(chatID int64) {
	text := "Русская рулетка! В барабане одна пуля, каждый выстрел приближает её.\n" +
		"Поймал пулю - уходишь в мут, и чем глубже в барабане, тем дольше.\n\n" +
		"/roll - выстрелить\n" +
		"/top - рейтинг по времени в муте\n" +
		"/me - моя статистика\n" +
		"/forgetme - удалить мою статистику\n" +
		"/help - показать это сообщение"

	reply := tgbotapi.NewMessage(chatID, text)
	reply.ReplyMarkup = commandsKeyboard
	sendMessage(h.Bot, reply)
}
