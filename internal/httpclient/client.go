// Package httpclient builds the outbound HTTP client shared by the counter
// source and the webhook publishers.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/time/rate"

	logx "memberwatch/pkg/logx"
)

type Config struct {
	// Timeout bounds a whole request. 0 means 15s.
	Timeout time.Duration
	// RatePerSec limits requests per host. 0 disables limiting.
	RatePerSec int
	UserAgent  string
}

// New returns a client with HTTP/2 enabled on a tuned transport and, when
// configured, a per-host token bucket in front of it.
func New(cfg Config, log logx.Logger) *http.Client {
	if log.IsZero() {
		log = logx.Nop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	if err := http2.ConfigureTransport(tr); err != nil {
		log.Warn("http2 unavailable; using http/1.1", logx.Err(err))
	}

	var rt http.RoundTripper = tr
	if cfg.RatePerSec > 0 || strings.TrimSpace(cfg.UserAgent) != "" {
		rt = &limitedTransport{
			next:  tr,
			rps:   cfg.RatePerSec,
			ua:    strings.TrimSpace(cfg.UserAgent),
			hosts: map[string]*rate.Limiter{},
		}
	}
	return &http.Client{Transport: rt, Timeout: timeout}
}

// limitedTransport waits on a per-host limiter before each request.
type limitedTransport struct {
	next http.RoundTripper
	rps  int
	ua   string

	mu    sync.Mutex
	hosts map[string]*rate.Limiter
}

func (t *limitedTransport) limiter(host string) *rate.Limiter {
	if t.rps <= 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	lim, ok := t.hosts[host]
	if !ok {
		// burst = rate so short spikes don't block.
		lim = rate.NewLimiter(rate.Limit(t.rps), t.rps)
		t.hosts[host] = lim
	}
	return lim
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if lim := t.limiter(req.URL.Host); lim != nil {
		ctx := req.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := lim.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if t.ua != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.ua)
	}
	return t.next.RoundTrip(req)
}
