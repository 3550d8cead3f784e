package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gregdel/pushover"
)

// Pushover limits, enforced by the client library.
const (
	pushoverMaxTitle   = 250
	pushoverMaxMessage = 1024
)

// pushover: pover://<user_key>@<app_token>[/<device>...]
type pushoverTarget struct {
	app       *pushover.Pushover
	recipient *pushover.Recipient
	devices   []string
	query     url.Values
}

func newPushover(u *url.URL, opts Options) (*pushoverTarget, error) {
	if u.User == nil || u.User.Username() == "" || u.Host == "" {
		return nil, fmt.Errorf("pover url needs user_key@app_token")
	}

	p := &pushoverTarget{
		app:       pushover.New(u.Host),
		recipient: pushover.NewRecipient(u.User.Username()),
		query:     u.Query(),
	}
	for _, d := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		if d != "" {
			p.devices = append(p.devices, d)
		}
	}
	return p, nil
}

func (p *pushoverTarget) String() string { return "pover" }

func (p *pushoverTarget) Send(ctx context.Context, msg Message) error {
	m := pushover.NewMessageWithTitle(clip(msg.Body, pushoverMaxMessage), clip(msg.Title, pushoverMaxTitle))
	m.Priority = int(urlPriority(p.query, msg.Priority))
	if len(p.devices) > 0 {
		m.DeviceName = strings.Join(p.devices, ",")
	}

	// the client has no context support
	errCh := make(chan error, 1)
	go func() {
		_, err := p.app.SendMessage(m, p.recipient)
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("send pushover: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// doRequest executes req and treats any non-2xx status as an error.
func doRequest(client *http.Client, req *http.Request) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
