package app

import (
	"fmt"
	"strings"
	"time"

	"memberwatch/internal/config"
	"memberwatch/internal/counter"
	"memberwatch/internal/health"
	"memberwatch/internal/httpclient"
	"memberwatch/internal/storage"
	"memberwatch/internal/tracker"
	"memberwatch/internal/transport"
	logx "memberwatch/pkg/logx"
)

const (
	defaultFetchTimeout  = 10 * time.Second
	defaultNotifyTimeout = 10 * time.Second
	defaultUserAgent     = "memberwatch/1.0"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{Driver: "memory"}, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	path := strings.TrimSpace(sc.Path)
	switch driver {
	case "", "memory", "none":
		return storage.Config{Driver: "memory"}, nil
	case "file":
		if path == "" {
			return storage.Config{}, fmt.Errorf("storage.path is required when storage.driver=file")
		}
		return storage.Config{Driver: "file", Path: path}, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, err
		}
		return storage.Config{Driver: "sqlite", Path: path, BusyTimeout: busy}, nil
	case "redis":
		if strings.TrimSpace(sc.Addr) == "" {
			return storage.Config{}, fmt.Errorf("storage.addr is required when storage.driver=redis")
		}
		if sc.DB < 0 {
			return storage.Config{}, fmt.Errorf("storage.db must be >= 0")
		}
		return storage.Config{Driver: "redis", Addr: sc.Addr, Password: sc.Password, DB: sc.DB, KeyPrefix: sc.KeyPrefix}, nil
	default:
		return storage.Config{}, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapCounterClient(cfg *config.Config) (httpclient.Config, error) {
	timeout, err := config.ParseDurationOrDefault("counter.timeout", cfg.Counter.Timeout, defaultFetchTimeout)
	if err != nil {
		return httpclient.Config{}, err
	}
	ua := strings.TrimSpace(cfg.Counter.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	return httpclient.Config{Timeout: timeout, UserAgent: ua}, nil
}

func mapNotifyClient(cfg *config.Config) (httpclient.Config, error) {
	timeout, err := config.ParseDurationOrDefault("notifications.timeout", cfg.Notifications.Timeout, defaultNotifyTimeout)
	if err != nil {
		return httpclient.Config{}, err
	}
	if cfg.Notifications.RatePerSec < 0 {
		return httpclient.Config{}, fmt.Errorf("notifications.rate_per_sec must be >= 0")
	}
	return httpclient.Config{Timeout: timeout, RatePerSec: cfg.Notifications.RatePerSec, UserAgent: defaultUserAgent}, nil
}

func mapCounterConfig(cfg *config.Config) counter.Config {
	return counter.Config{BaseURL: cfg.Counter.BaseURL, CountField: cfg.Counter.CountField}
}

func mapTrackerSettings(cfg *config.Config) tracker.Settings {
	return tracker.Settings{
		Step:      cfg.MilestoneStep,
		Title:     cfg.Notifications.Title,
		Color:     cfg.Notifications.Color,
		FieldName: cfg.Notifications.FieldName,
	}
}

func mapHealthConfig(cfg *config.Config) health.Config {
	return health.Config{Addr: cfg.HTTP.Addr, Pprof: cfg.HTTP.Pprof}
}

func mapSweepTimeout(cfg *config.Config) (time.Duration, error) {
	return config.ParseDurationField("sweep_timeout", cfg.SweepTimeout)
}

// mapEntities parses every entity target. Telegram targets need a bot token.
func mapEntities(cfg *config.Config) ([]tracker.Entity, error) {
	out := make([]tracker.Entity, 0, len(cfg.Entities))
	hasToken := strings.TrimSpace(cfg.Telegram.Token) != ""
	for i, e := range cfg.Entities {
		to, err := transport.ParseTarget(e.Target)
		if err != nil {
			return nil, fmt.Errorf("entities[%d].target: %w", i, err)
		}
		if to.Kind == transport.KindTelegram && !hasToken {
			return nil, fmt.Errorf("entities[%d].target: telegram target requires telegram.token", i)
		}
		out = append(out, tracker.Entity{ID: strings.TrimSpace(e.ID), Name: e.Name, Target: to})
	}
	return out, nil
}
