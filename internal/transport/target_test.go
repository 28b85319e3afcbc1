package transport

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestParseTargetDiscord(t *testing.T) {
	tests := []struct {
		raw  string
		base string
	}{
		{"https://discord.com/api/webhooks/123456/tok-EN_x", "https://discord.com/api"},
		{"https://canary.discord.com/api/v10/webhooks/123456/tok-EN_x/", "https://canary.discord.com/api/v10"},
		{"http://127.0.0.1:9999/webhooks/123456/tok-EN_x", "http://127.0.0.1:9999"},
	}
	for _, tt := range tests {
		got, err := ParseTarget(tt.raw)
		if err != nil {
			t.Fatalf("ParseTarget(%q): %v", tt.raw, err)
		}
		if got.Kind != KindDiscord || got.WebhookID != "123456" || got.WebhookToken != "tok-EN_x" {
			t.Fatalf("ParseTarget(%q) = %+v", tt.raw, got)
		}
		if got.APIBase != tt.base {
			t.Fatalf("APIBase = %q, want %q", got.APIBase, tt.base)
		}
		if strings.Contains(got.String(), "tok") {
			t.Fatalf("String() leaks token: %s", got)
		}
	}
}

func TestParseTargetTelegram(t *testing.T) {
	got, err := ParseTarget("telegram://-1001234567890/42")
	if err != nil {
		t.Fatalf("ParseTarget: %v", err)
	}
	if got.Kind != KindTelegram || got.ChatID != -1001234567890 || got.ThreadID != 42 {
		t.Fatalf("unexpected target %+v", got)
	}
	got, err = ParseTarget("tg:555")
	if err != nil || got.ChatID != 555 || got.ThreadID != 0 {
		t.Fatalf("opaque form: %+v, %v", got, err)
	}
}

func TestParseTargetInvalid(t *testing.T) {
	for _, raw := range []string{
		"",
		"ftp://discord.com/api/webhooks/1/x",
		"https://discord.com/api/webhooks/1",
		"https://discord.com/api/webhooks/abc/token",
		"https://discord.com/api/channels/1/x",
		"telegram://notanumber",
		"telegram://1/2/3",
		"telegram://1/-2",
	} {
		if _, err := ParseTarget(raw); !errors.Is(err, ErrInvalidTarget) {
			t.Errorf("ParseTarget(%q) err = %v, want ErrInvalidTarget", raw, err)
		}
	}
}

type recordingPublisher struct{ posts, deletes int }

func (p *recordingPublisher) Post(ctx context.Context, to Target, n Notification) (string, error) {
	p.posts++
	return "m1", nil
}

func (p *recordingPublisher) Delete(ctx context.Context, to Target, id string) error {
	p.deletes++
	return nil
}

func TestRouterDispatchesByKind(t *testing.T) {
	r := NewRouter()
	d := &recordingPublisher{}
	r.Register(KindDiscord, d)

	if _, err := r.Post(context.Background(), Target{Kind: KindDiscord}, Notification{}); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if err := r.Delete(context.Background(), Target{Kind: KindDiscord}, "m1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if d.posts != 1 || d.deletes != 1 {
		t.Fatalf("posts=%d deletes=%d", d.posts, d.deletes)
	}
	if _, err := r.Post(context.Background(), Target{Kind: KindTelegram}, Notification{}); !errors.Is(err, ErrNoPublisher) {
		t.Fatalf("expected ErrNoPublisher, got %v", err)
	}
	r.Register(KindDiscord, nil)
	if err := r.Delete(context.Background(), Target{Kind: KindDiscord}, "m1"); !errors.Is(err, ErrNoPublisher) {
		t.Fatalf("expected ErrNoPublisher after unregister, got %v", err)
	}
}
