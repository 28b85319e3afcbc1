package transport

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Target is a parsed notification destination. Credentials are separate
// fields; nothing downstream re-splits the raw string.
type Target struct {
	Kind Kind
	Raw  string

	// Discord
	APIBase      string // scheme://host/api[/vN]
	WebhookID    string
	WebhookToken string

	// Telegram
	ChatID   int64
	ThreadID int
}

// String never includes the webhook token.
func (t Target) String() string {
	switch t.Kind {
	case KindDiscord:
		return fmt.Sprintf("discord:%s", t.WebhookID)
	case KindTelegram:
		if t.ThreadID != 0 {
			return fmt.Sprintf("telegram:%d/%d", t.ChatID, t.ThreadID)
		}
		return fmt.Sprintf("telegram:%d", t.ChatID)
	default:
		return "unknown"
	}
}

// ParseTarget accepts:
//
//	https://discord.com/api/webhooks/{id}/{token}
//	https://discord.com/api/v10/webhooks/{id}/{token}
//	telegram://{chatID}[/{threadID}]
func ParseTarget(raw string) (Target, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Target{}, fmt.Errorf("%w: empty", ErrInvalidTarget)
	}
	u, err := url.Parse(s)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return parseDiscord(s, u)
	case "telegram", "tg":
		return parseTelegram(s, u)
	default:
		return Target{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidTarget, u.Scheme)
	}
}

func parseDiscord(raw string, u *url.URL) (Target, error) {
	if u.Host == "" {
		return Target{}, fmt.Errorf("%w: missing host", ErrInvalidTarget)
	}
	segs := splitPath(u.Path)
	// Find ".../webhooks/{id}/{token}" anywhere in the path so versioned
	// and proxied prefixes work.
	for i, seg := range segs {
		if seg != "webhooks" {
			continue
		}
		if i+2 >= len(segs) {
			break
		}
		id, token := segs[i+1], segs[i+2]
		if _, err := strconv.ParseUint(id, 10, 64); err != nil {
			return Target{}, fmt.Errorf("%w: webhook id %q is not numeric", ErrInvalidTarget, id)
		}
		base := url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/" + strings.Join(segs[:i], "/")}
		return Target{
			Kind:         KindDiscord,
			Raw:          raw,
			APIBase:      strings.TrimSuffix(base.String(), "/"),
			WebhookID:    id,
			WebhookToken: token,
		}, nil
	}
	return Target{}, fmt.Errorf("%w: expected .../webhooks/{id}/{token}", ErrInvalidTarget)
}

func parseTelegram(raw string, u *url.URL) (Target, error) {
	// telegram://-100123/7 puts the chat id in Host; telegram:-100123 in Opaque.
	parts := make([]string, 0, 2)
	if u.Opaque != "" {
		parts = append(parts, splitPath(u.Opaque)...)
	} else {
		if u.Host != "" {
			parts = append(parts, u.Host)
		}
		parts = append(parts, splitPath(u.Path)...)
	}
	if len(parts) == 0 || len(parts) > 2 {
		return Target{}, fmt.Errorf("%w: expected telegram://{chat}[/{thread}]", ErrInvalidTarget)
	}
	chatID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || chatID == 0 {
		return Target{}, fmt.Errorf("%w: chat id %q", ErrInvalidTarget, parts[0])
	}
	t := Target{Kind: KindTelegram, Raw: raw, ChatID: chatID}
	if len(parts) == 2 {
		thread, err := strconv.Atoi(parts[1])
		if err != nil || thread < 0 {
			return Target{}, fmt.Errorf("%w: thread id %q", ErrInvalidTarget, parts[1])
		}
		t.ThreadID = thread
	}
	return t, nil
}

func splitPath(p string) []string {
	raw := strings.Split(p, "/")
	out := raw[:0]
	for _, s := range raw {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
