// Package health serves the liveness endpoint used by external uptime checks.
package health

import (
	"context"
	"errors"
	"net"
	"net/http"
	hpprof "net/http/pprof"
	"strings"
	"sync"
	"time"

	rtsup "memberwatch/internal/runtime/supervisor"
	logx "memberwatch/pkg/logx"
)

const OnlineBody = "Online."

type Config struct {
	// Addr is the listen address. "off" disables the server.
	Addr string
	// Pprof mounts net/http/pprof under /debug/pprof/.
	Pprof bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func (c Config) Enabled() bool {
	a := strings.TrimSpace(c.Addr)
	return a != "" && !strings.EqualFold(a, "off")
}

type Server struct {
	mu  sync.Mutex
	log logx.Logger
	cfg Config

	srv   *http.Server
	addr  string
	sup   *rtsup.Supervisor
	ready chan struct{}
}

func New(cfg Config, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 5 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	return &Server{cfg: cfg, log: log, ready: make(chan struct{})}
}

// Handler returns the liveness routes.
func Handler() http.Handler { return routes(false) }

func routes(withPprof bool) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(OnlineBody))
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if withPprof {
		mux.HandleFunc("/debug/pprof/", hpprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", hpprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", hpprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", hpprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", hpprof.Trace)
	}
	return mux
}

// Start runs the server under a restart loop. It is a no-op when disabled or
// already running.
func (s *Server) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sup != nil || !s.cfg.Enabled() {
		return
	}
	s.sup = rtsup.New(ctx,
		rtsup.WithLogger(s.log),
		rtsup.WithCancelOnError(false),
	)
	s.sup.GoRestart("health.serve", s.serveOnce,
		rtsup.WithPublishFirstError(true),
		rtsup.WithRestartBackoff(500*time.Millisecond, 10*time.Second),
	)
}

// Addr returns the bound address once listening, or "".
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Ready is closed after the first successful listen.
func (s *Server) Ready() <-chan struct{} { return s.ready }

func (s *Server) serveOnce(ctx context.Context) error {
	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	ln, err := net.Listen("tcp", strings.TrimSpace(cfg.Addr))
	if err != nil {
		s.log.Error("health listen failed", logx.String("addr", cfg.Addr), logx.Err(err))
		return err
	}
	srv := &http.Server{
		Handler:      routes(cfg.Pprof),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	s.mu.Lock()
	s.srv = srv
	s.addr = ln.Addr().String()
	select {
	case <-s.ready:
	default:
		close(s.ready)
	}
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	})
	defer stop()

	s.log.Info("health server listening", logx.String("addr", ln.Addr().String()))
	err = srv.Serve(ln)

	s.mu.Lock()
	if s.srv == srv {
		s.srv = nil
		s.addr = ""
	}
	s.mu.Unlock()

	if ctx.Err() != nil {
		return context.Canceled
	}
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return errors.New("health server exited unexpectedly")
	}
	return err
}

// Stop shuts the server down gracefully, bounded by ctx.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	sup := s.sup
	s.sup = nil
	s.mu.Unlock()

	if sup == nil {
		return nil
	}
	// Cancel first so serveOnce sees shutdown and the restart loop exits.
	sup.Cancel()
	if srv != nil {
		_ = srv.Shutdown(ctx)
	}
	if err := sup.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	s.log.Info("health server stopped")
	return nil
}
