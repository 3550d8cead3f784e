package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// webhook posts Apprise's JSON payload: json://host[:port]/path, jsons://
// for https.
type webhook struct {
	endpoint string
	client   *http.Client
}

type webhookPayload struct {
	Version string `json:"version"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func newWebhook(u *url.URL, opts Options) (*webhook, error) {
	if u.Host == "" {
		return nil, fmt.Errorf("json url needs a host")
	}
	target := *u
	target.Scheme = "http"
	if u.Scheme == "jsons" {
		target.Scheme = "https"
	}
	return &webhook{endpoint: target.String(), client: opts.Client}, nil
}

func (w *webhook) String() string { return "json" }

func (w *webhook) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(webhookPayload{
		Version: "1.0",
		Title:   msg.Title,
		Message: msg.Body,
		Type:    "info",
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return doRequest(w.client, req)
}
