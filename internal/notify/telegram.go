package notify

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/monitorat/internal/domain"
)

// telegram sends through the Bot API. The token contains ':' so the URL is
// split by hand: tgram://<token>/<chat>[/<chat>...].
type telegram struct {
	token    string
	chats    []string
	endpoint string
	opts     Options
}

func newTelegram(rest string, opts Options) (*telegram, error) {
	rest, _, _ = strings.Cut(rest, "?")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) < 2 || parts[0] == "" {
		return nil, fmt.Errorf("tgram url needs a bot token and at least one chat id")
	}

	t := &telegram{
		token:    parts[0],
		endpoint: opts.TelegramEndpoint,
		opts:     opts,
	}
	if t.endpoint == "" {
		t.endpoint = tgbotapi.APIEndpoint
	}
	for _, c := range parts[1:] {
		if c != "" {
			t.chats = append(t.chats, c)
		}
	}
	if len(t.chats) == 0 {
		return nil, fmt.Errorf("tgram url needs at least one chat id")
	}
	return t, nil
}

func (t *telegram) String() string {
	return fmt.Sprintf("tgram (%d chats)", len(t.chats))
}

func (t *telegram) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	api, err := tgbotapi.NewBotAPIWithClient(t.token, t.endpoint, t.opts.Client)
	if err != nil {
		return fmt.Errorf("connect bot: %w", err)
	}

	text := fmt.Sprintf("<b>%s</b>\n\n%s", html.EscapeString(msg.Title), html.EscapeString(msg.Body))

	var errs []string
	for _, chat := range t.chats {
		var m tgbotapi.MessageConfig
		if strings.HasPrefix(chat, "@") {
			m = tgbotapi.NewMessageToChannel(chat, text)
		} else {
			id, err := strconv.ParseInt(chat, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Sprintf("chat %q: not a numeric id or @channel", chat))
				continue
			}
			m = tgbotapi.NewMessage(id, text)
		}
		m.ParseMode = "HTML"
		m.DisableNotification = msg.Priority == domain.PriorityLow

		if _, err := api.Send(m); err != nil {
			errs = append(errs, fmt.Sprintf("chat %s: %v", chat, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("send telegram: %s", strings.Join(errs, "; "))
	}
	return nil
}
