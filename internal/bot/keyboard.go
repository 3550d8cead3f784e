package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/monitorat/internal/domain"
)

// Telegram rejects callback data longer than 64 bytes.
const maxCallbackData = 64

// remindersKeyboard has a touch button per reminder, two per row.
func remindersKeyboard(statuses []domain.ReminderStatus) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton

	for _, st := range statuses {
		data := "touch:" + st.ID
		if len(data) > maxCallbackData {
			continue
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("✅ "+truncate(st.Name, 20), data))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔄 Refresh", "refresh:list"),
		tgbotapi.NewInlineKeyboardButtonData("🔔 Test", "test:normal"),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
