package telegram

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sashakosti/Go_Bot_Roulette/internal/leaderboard"
	"github.com/sashakosti/Go_Bot_Roulette/internal/logger"
	"github.com/sashakosti/Go_Bot_Roulette/internal/service"
	"github.com/sashakosti/Go_Bot_Roulette/internal/storage"
)

func sendMessage(bot MessageSender, msg tgbotapi.Chattable) {
	if _, err := bot.Send(msg); err != nil {
		logger.Log.Errorw("failed to send message", "error", err)
	}
}

// Pluralize возвращает правильную форму слова в зависимости от числа.
func Pluralize(count int, forms [3]string) string {
	if count%10 == 1 && count%100 != 11 {
		return forms[0]
	}
	if count%10 >= 2 && count%10 <= 4 && (count%100 < 10 || count%100 >= 20) {
		return forms[1]
	}
	return forms[2]
}

// playerFromUser снимает профиль игрока из Telegram.
func playerFromUser(user *tgbotapi.User) service.Player {
	profile := storage.Profile{"is_bot": user.IsBot}
	set := func(key, value string) {
		if value != "" {
			profile[key] = value
		}
	}
	set(storage.ProfileUsername, user.UserName)
	set(storage.ProfileFirstName, user.FirstName)
	set(storage.ProfileLastName, user.LastName)
	set(storage.ProfileFullName, strings.TrimSpace(user.FirstName+" "+user.LastName))
	set("language_code", user.LanguageCode)

	return service.Player{ID: user.ID, Profile: profile}
}

func displayName(user *tgbotapi.User) string {
	return leaderboard.DisplayName(playerFromUser(user).Profile)
}

// formatPenalty - "16 часов", "1 день 8 часов", "90 минут".
func formatPenalty(d time.Duration) string {
	minutes := int(d / time.Minute)
	if minutes%60 != 0 {
		return fmt.Sprintf("%d %s", minutes, Pluralize(minutes, [3]string{"минута", "минуты", "минут"}))
	}

	hours := minutes / 60
	days, rest := hours/24, hours%24
	switch {
	case days == 0:
		return fmt.Sprintf("%d %s", hours, Pluralize(hours, [3]string{"час", "часа", "часов"}))
	case rest == 0:
		return fmt.Sprintf("%d %s", days, Pluralize(days, [3]string{"день", "дня", "дней"}))
	default:
		return fmt.Sprintf("%d %s %d %s",
			days, Pluralize(days, [3]string{"день", "дня", "дней"}),
			rest, Pluralize(rest, [3]string{"час", "часа", "часов"}))
	}
}
