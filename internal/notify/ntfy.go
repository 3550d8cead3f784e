package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tazhate/monitorat/internal/domain"
)

const ntfyDefaultHost = "ntfy.sh"

// ntfy: ntfy://[user:pass@]host/topic, ntfys:// for https. A bare
// ntfy://topic publishes to ntfy.sh.
type ntfy struct {
	endpoint string
	user     *url.Userinfo
	query    url.Values
	client   *http.Client
}

func newNtfy(u *url.URL, opts Options) (*ntfy, error) {
	scheme := "http"
	if u.Scheme == "ntfys" {
		scheme = "https"
	}

	host, topic := u.Host, strings.Trim(u.Path, "/")
	if topic == "" {
		host, topic = ntfyDefaultHost, u.Host
		scheme = "https"
	}
	if topic == "" {
		return nil, fmt.Errorf("ntfy url needs a topic")
	}

	return &ntfy{
		endpoint: fmt.Sprintf("%s://%s/%s", scheme, host, topic),
		user:     u.User,
		query:    u.Query(),
		client:   opts.Client,
	}, nil
}

func (n *ntfy) String() string { return "ntfy" }

// ntfy priorities run 1..5; low, default and high map to 2, 3 and 4.
func ntfyPriority(p domain.Priority) string {
	switch p {
	case domain.PriorityLow:
		return "2"
	case domain.PriorityHigh:
		return "4"
	default:
		return "3"
	}
}

func (n *ntfy) Send(ctx context.Context, msg Message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.Body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Title", msg.Title)
	req.Header.Set("X-Priority", ntfyPriority(urlPriority(n.query, msg.Priority)))
	if n.user != nil {
		pass, _ := n.user.Password()
		req.SetBasicAuth(n.user.Username(), pass)
	}

	return doRequest(n.client, req)
}
