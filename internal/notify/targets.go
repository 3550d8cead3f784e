package notify

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var errUnsupported = errors.New("unsupported notification scheme")

// IsUnsupported reports whether err came from a target with an unknown scheme.
func IsUnsupported(err error) bool { return errors.Is(err, errUnsupported) }

// ParseTarget builds a Sender for an Apprise-style URL.
func ParseTarget(raw string, opts Options) (Sender, error) {
	scheme, rest, ok := strings.Cut(strings.TrimSpace(raw), "://")
	if !ok {
		return nil, fmt.Errorf("%w: %q has no scheme", errUnsupported, redact(raw))
	}
	scheme = strings.ToLower(scheme)

	switch scheme {
	case "tgram":
		return newTelegram(rest, opts)
	case "pover":
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse pover url: %w", err)
		}
		return newPushover(u, opts)
	case "ntfy", "ntfys":
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse ntfy url: %w", err)
		}
		return newNtfy(u, opts)
	case "json", "jsons":
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse json url: %w", err)
		}
		return newWebhook(u, opts)
	case "mailto", "mailtos":
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse mailto url: %w", err)
		}
		return newEmail(u, opts)
	}
	return nil, fmt.Errorf("%w: %s", errUnsupported, scheme)
}

// redact keeps only the scheme of a target URL.
func redact(raw string) string {
	scheme, _, ok := strings.Cut(raw, "://")
	if !ok {
		return "***"
	}
	return scheme + "://***"
}
