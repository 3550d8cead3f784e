// Package notify delivers reminder alerts to Apprise-style target URLs.
package notify

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tazhate/monitorat/internal/domain"
)

// Message is a single notification, independent of transport.
type Message struct {
	Title    string
	Body     string
	Priority domain.Priority
}

// Sender delivers a message to one target.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	// String describes the target without credentials, for logs.
	String() string
}

// Result counts the targets a broadcast reached. Delivery is best effort,
// so a result with failures still counts as sent.
type Result struct {
	Attempted int
	Failed    int
}

func (r Result) Sent() bool { return r.Attempted > 0 }

const defaultSendTimeout = 60 * time.Second

// Options configures transports. Zero values use the public services.
type Options struct {
	Client           *http.Client
	TelegramEndpoint string
	SendMail         MailFunc
	// SendTimeout bounds a whole broadcast. Targets still pending when it
	// expires count as failed.
	SendTimeout time.Duration
}

type Dispatcher struct {
	opts Options
}

func NewDispatcher(opts Options) *Dispatcher {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	return &Dispatcher{opts: opts}
}

// Compose builds the alert for a reminder and reports whether its days
// remaining land exactly on a configured nudge or urgent day. Reminders
// that were never touched produce no message.
func Compose(status domain.ReminderStatus, policy domain.Policy, baseURL string) (Message, bool) {
	if status.DaysRemaining == nil {
		return Message{}, false
	}
	days := *status.DaysRemaining
	fires := policy.IsNudge(days) || policy.IsUrgent(days)

	var msg Message
	switch {
	case days <= 0:
		msg = Message{
			Title:    fmt.Sprintf("%s - EXPIRED", status.Name),
			Body:     fmt.Sprintf("Your reminder expired %d days ago", -days),
			Priority: domain.PriorityHigh,
		}
	case policy.IsUrgent(days):
		msg = Message{
			Title:    fmt.Sprintf("%s - %d days left", status.Name, days),
			Body:     fmt.Sprintf("Login expires in %d days", days),
			Priority: domain.PriorityHigh,
		}
	default:
		msg = Message{
			Title:    fmt.Sprintf("%s - %d days remaining", status.Name, days),
			Body:     fmt.Sprintf("Friendly reminder: reminder expires in %d days", days),
			Priority: domain.PriorityNormal,
		}
	}

	msg.Body += "\n\nTouch to refresh: " + TouchURL(baseURL, status.ID)
	return msg, fires
}

// TouchURL is the link that records a touch for id.
func TouchURL(baseURL, id string) string {
	return strings.TrimRight(baseURL, "/") + "/api/reminders/" + url.PathEscape(id) + "/touch"
}

// TestMessage is sent by the manual test-notification action.
func TestMessage(siteName string, p domain.Priority) Message {
	return Message{
		Title:    fmt.Sprintf("%s reminder Test (%s Priority)", siteName, p),
		Body:     fmt.Sprintf("Bzzz.. Test notification from %s with %s priority level", siteName, strings.ToLower(p.String())),
		Priority: p,
	}
}

// Notify sends the alert for status only when the exact-match rule fires.
func (d *Dispatcher) Notify(ctx context.Context, status domain.ReminderStatus, policy domain.Policy, baseURL string) Result {
	if len(policy.Targets) == 0 {
		return Result{}
	}
	msg, fires := Compose(status, policy, baseURL)
	if !fires {
		return Result{}
	}

	log.Printf("[notify] %s: %d days remaining (priority %d)", status.ID, *status.DaysRemaining, msg.Priority)
	return d.Broadcast(ctx, policy.Targets, msg)
}

// Broadcast delivers msg to every target concurrently. A failing target
// never blocks the others. Targets with an unknown scheme are skipped.
// Broadcast returns once every target finished, ctx is done or the send
// timeout expires, whichever comes first.
func (d *Dispatcher) Broadcast(ctx context.Context, targets []string, msg Message) Result {
	var senders []Sender
	var res Result

	for _, raw := range targets {
		s, err := ParseTarget(WithPriority(raw, msg.Priority), d.opts)
		if err != nil {
			if IsUnsupported(err) {
				log.Printf("[notify] skipping target: %v", err)
				continue
			}
			log.Printf("[notify] bad target: %v", err)
			res.Attempted++
			res.Failed++
			continue
		}
		senders = append(senders, s)
	}

	if len(senders) == 0 {
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
	defer cancel()

	errs := make(chan error, len(senders))
	for _, s := range senders {
		go func(s Sender) {
			err := s.Send(ctx, msg)
			if err != nil {
				log.Printf("[notify] %s: %v", s, err)
			}
			errs <- err
		}(s)
	}

	res.Attempted += len(senders)
	for pending := len(senders); pending > 0; pending-- {
		select {
		case err := <-errs:
			if err != nil {
				res.Failed++
			}
		case <-ctx.Done():
			log.Printf("[notify] giving up on %d target(s): %v", pending, ctx.Err())
			res.Failed += pending
			return res
		}
	}
	return res
}

// priorityQuery lists the schemes whose protocol carries a priority.
var priorityQuery = map[string]bool{
	"pover": true,
	"ntfy":  true,
	"ntfys": true,
}

// WithPriority adds priority=<-1|0|1> to rawURL when its scheme supports a
// priority, replacing any existing value. Other URLs are returned as is.
func WithPriority(rawURL string, p domain.Priority) string {
	scheme, _, ok := strings.Cut(rawURL, "://")
	if !ok || !priorityQuery[strings.ToLower(scheme)] {
		return rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("priority", strconv.Itoa(int(p)))
	u.RawQuery = q.Encode()
	return u.String()
}

// urlPriority reads a priority set by WithPriority, falling back to def.
func urlPriority(q url.Values, def domain.Priority) domain.Priority {
	if v := q.Get("priority"); v != "" {
		if p, err := domain.ParsePriority(v); err == nil {
			return p
		}
	}
	return def
}
