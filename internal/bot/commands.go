package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/monitorat/internal/domain"
	"github.com/tazhate/monitorat/internal/notify"
	"github.com/tazhate/monitorat/internal/service"
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		b.cmdHelp(chatID)
	case "reminders", "list":
		b.cmdReminders(chatID)
	case "touch":
		b.cmdTouch(chatID, args)
	case "test":
		b.cmdTest(ctx, chatID, args)
	default:
		b.SendMessage(chatID, "Unknown command. /help for the list of commands")
	}
}

func (b *Bot) cmdHelp(chatID int64) {
	text := `<b>Commands:</b>

/reminders - status of every reminder
/touch ID - mark a reminder as done
/test [low|normal|high] - send a test notification
/help - this help`

	b.SendMessage(chatID, text)
}

func (b *Bot) cmdReminders(chatID int64) {
	text, kb, err := b.remindersView()
	if err != nil {
		b.SendMessage(chatID, "❌ Failed to load reminders")
		return
	}
	b.SendMessageWithKeyboard(chatID, text, kb)
}

func (b *Bot) cmdTouch(chatID int64, id string) {
	if id == "" {
		b.SendMessage(chatID, "Which one? /touch github")
		return
	}
	b.SendMessage(chatID, b.touch(id))
}

func (b *Bot) cmdTest(ctx context.Context, chatID int64, args string) {
	p, err := domain.ParsePriority(args)
	if err != nil {
		b.SendMessage(chatID, "Priority must be low, normal or high")
		return
	}
	b.SendMessage(chatID, testSummary(b.reminders.SendTestNotification(ctx, p)))
}

// touch records a touch and returns the reply text.
func (b *Bot) touch(id string) string {
	def, err := b.reminders.Touch(id)
	switch {
	case errors.Is(err, service.ErrNotFound):
		return fmt.Sprintf("❌ No reminder <code>%s</code>", html.EscapeString(id))
	case err != nil:
		log.Printf("[bot] touch %s: %v", id, err)
		return "❌ Failed to record touch"
	}
	return fmt.Sprintf("✅ <b>%s</b> touched, next expiry in %d days", html.EscapeString(def.Name), def.ExpiryDays)
}

func testSummary(res notify.Result) string {
	if !res.Sent() {
		return "⚠️ No notification targets accepted the message"
	}
	if res.Failed > 0 {
		return fmt.Sprintf("🔔 Sent to %d target(s), %d failed", res.Attempted, res.Failed)
	}
	return fmt.Sprintf("🔔 Sent to %d target(s)", res.Attempted)
}

func (b *Bot) remindersView() (string, tgbotapi.InlineKeyboardMarkup, error) {
	statuses, err := b.reminders.ListStatus()
	if err != nil {
		log.Printf("[bot] list reminders: %v", err)
		return "", tgbotapi.InlineKeyboardMarkup{}, err
	}

	var sb strings.Builder
	sb.WriteString("<b>Reminders</b>\n")
	if len(statuses) == 0 {
		sb.WriteString("\nNothing configured.")
	}
	for _, st := range statuses {
		sb.WriteString("\n")
		sb.WriteString(formatStatus(st))
	}
	return sb.String(), remindersKeyboard(statuses), nil
}

func formatStatus(st domain.ReminderStatus) string {
	name := html.EscapeString(st.Name)
	if st.DaysRemaining == nil {
		return fmt.Sprintf("%s <b>%s</b>: never touched", st.StatusEmoji(), name)
	}

	left := *st.DaysRemaining
	switch {
	case left < 0:
		return fmt.Sprintf("%s <b>%s</b>: expired %d days ago", st.StatusEmoji(), name, -left)
	case left == 0:
		return fmt.Sprintf("%s <b>%s</b>: expires today", st.StatusEmoji(), name)
	case left == 1:
		return fmt.Sprintf("%s <b>%s</b>: 1 day left", st.StatusEmoji(), name)
	default:
		return fmt.Sprintf("%s <b>%s</b>: %d days left", st.StatusEmoji(), name, left)
	}
}
