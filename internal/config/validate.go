package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	logx "memberwatch/pkg/logx"
)

var ErrNoEntities = errors.New("no entities configured")

// Validate checks structural invariants that don't need other packages.
// Target and schedule syntax are checked by the app layer validator.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if cfg.MilestoneStep < 0 {
		return fmt.Errorf("milestone_step must be > 0")
	}
	if len(cfg.Entities) == 0 {
		return ErrNoEntities
	}
	seen := make(map[string]int, len(cfg.Entities))
	for i, e := range cfg.Entities {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			return fmt.Errorf("entities[%d].id is required", i)
		}
		if strings.TrimSpace(e.Target) == "" {
			return fmt.Errorf("entities[%d].target is required", i)
		}
		if j, dup := seen[id]; dup {
			return fmt.Errorf("entities[%d].id %q duplicates entities[%d]", i, id, j)
		}
		seen[id] = i
	}
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("timezone: invalid %q: %w", tz, err)
		}
	}
	if _, err := ParseDurationField("sweep_timeout", cfg.SweepTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("counter.timeout", cfg.Counter.Timeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("notifications.timeout", cfg.Notifications.Timeout); err != nil {
		return err
	}
	if lvl := strings.TrimSpace(cfg.Logging.Level); lvl != "" {
		if _, ok := logx.ParseLevel(lvl); !ok {
			return fmt.Errorf("logging.level: unknown level %q", lvl)
		}
	}
	if cfg.Notifications.RatePerSec < 0 {
		return fmt.Errorf("notifications.rate_per_sec must be >= 0")
	}
	if cfg.Storage != nil {
		if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
			return err
		}
	}
	return nil
}
