package bot

import (
	"context"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/monitorat/internal/domain"
)

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message != nil {
		b.handleMessage(ctx, update.Message)
	} else if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) allowed(user *tgbotapi.User) bool {
	return user != nil && b.config.Snapshot().Bot.IsAllowedUser(user.ID)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if !b.allowed(msg.From) {
		if msg.From != nil {
			log.Printf("[bot] rejected message from user %d", msg.From.ID)
		}
		b.SendMessage(chatID, "⛔ Access denied")
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	if strings.TrimSpace(msg.Text) != "" {
		b.SendMessage(chatID, "/help for the list of commands")
	}
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if !b.allowed(callback.From) {
		b.api.Request(tgbotapi.NewCallback(callback.ID, "⛔ Access denied"))
		return
	}
	if callback.Message == nil {
		b.api.Request(tgbotapi.NewCallback(callback.ID, ""))
		return
	}

	chatID := callback.Message.Chat.ID
	msgID := callback.Message.MessageID
	action, arg, _ := strings.Cut(callback.Data, ":")

	switch action {
	case "touch":
		b.api.Request(tgbotapi.NewCallback(callback.ID, stripTags(b.touch(arg))))
		b.refreshReminders(chatID, msgID)

	case "refresh":
		b.api.Request(tgbotapi.NewCallback(callback.ID, "🔄"))
		b.refreshReminders(chatID, msgID)

	case "test":
		p, err := domain.ParsePriority(arg)
		if err != nil {
			p = domain.PriorityNormal
		}
		res := b.reminders.SendTestNotification(ctx, p)
		b.api.Request(tgbotapi.NewCallback(callback.ID, testSummary(res)))

	default:
		b.api.Request(tgbotapi.NewCallback(callback.ID, ""))
	}
}

// refreshReminders redraws the status list in place.
func (b *Bot) refreshReminders(chatID int64, msgID int) {
	text, kb, err := b.remindersView()
	if err != nil {
		return
	}
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, text, kb)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("[bot] refresh reminders: %v", err)
	}
}

// stripTags turns an HTML reply into plain text for callback alerts.
func stripTags(s string) string {
	r := strings.NewReplacer("<b>", "", "</b>", "", "<code>", "", "</code>", "", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&#34;", `"`, "&#39;", "'")
	return r.Replace(s)
}
