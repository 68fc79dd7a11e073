// Package leaderboard рисует рейтинг игроков моноширинной таблицей.
package leaderboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/sashakosti/Go_Bot_Roulette/internal/storage"
)

// Unknown - имя игрока без ника и имени в профиле.
const Unknown = "unknown"

const rowFormat = "%-12s %6s %6s  %s\n"

// Render строит таблицу: время в муте, выстрелы, смерти, имя.
// Порядок строк совпадает с порядком records.
func Render(records []storage.PlayerRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, rowFormat, "MUTED", "SHOTS", "DEATHS", "PLAYER")
	fmt.Fprintf(&b, rowFormat, strings.Repeat("-", 12), strings.Repeat("-", 6), strings.Repeat("-", 6), strings.Repeat("-", 6))
	for _, r := range records {
		fmt.Fprintf(&b, rowFormat,
			FormatDuration(r.TotalPenalty()),
			fmt.Sprint(r.ShotCounter),
			fmt.Sprint(r.DeadCounter),
			DisplayName(r.Profile),
		)
	}
	return b.String()
}

// DisplayName: ник, иначе полное имя, иначе Unknown.
func DisplayName(p storage.Profile) string {
	if u := strings.TrimSpace(p.String(storage.ProfileUsername)); u != "" {
		return "@" + u
	}
	if full := strings.TrimSpace(p.String(storage.ProfileFullName)); full != "" {
		return full
	}
	full := strings.TrimSpace(p.String(storage.ProfileFirstName) + " " + p.String(storage.ProfileLastName))
	if full != "" {
		return full
	}
	return Unknown
}

// FormatDuration печатает длительность как "1d 16h 00m".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Minute)
	days := total / (24 * 60)
	hours := total / 60 % 24
	minutes := total % 60
	return fmt.Sprintf("%dd %02dh %02dm", days, hours, minutes)
}
