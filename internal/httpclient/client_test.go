package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	logx "memberwatch/pkg/logx"
)

func TestClientSetsUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	c := New(Config{UserAgent: "memberwatch/test"}, logx.Nop())
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	_ = resp.Body.Close()
	if got != "memberwatch/test" {
		t.Fatalf("User-Agent = %q", got)
	}
}

func TestClientRateLimitHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := New(Config{RatePerSec: 1}, logx.Nop())
	// First request consumes the single burst token.
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("first Get: %v", err)
	}
	_ = resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, http.NoBody)
	if resp, err := c.Do(req); err == nil {
		_ = resp.Body.Close()
		t.Fatal("expected limiter wait to fail before the next token")
	}
}
