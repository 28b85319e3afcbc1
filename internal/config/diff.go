package config

import (
	"reflect"
	"strings"

	logx "memberwatch/pkg/logx"
)

// SummarizeChange returns the changed top-level sections and safe log fields.
// Targets and tokens are never logged; only counts and flags are.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.MilestoneStep != newCfg.MilestoneStep {
		changed = append(changed, "milestone_step")
		attrs = append(attrs, logx.Int64("milestone_step", newCfg.MilestoneStep))
	}
	if strings.TrimSpace(oldCfg.Schedule) != strings.TrimSpace(newCfg.Schedule) ||
		strings.TrimSpace(oldCfg.Timezone) != strings.TrimSpace(newCfg.Timezone) ||
		oldCfg.SweepTimeout != newCfg.SweepTimeout {
		changed = append(changed, "schedule")
		attrs = append(attrs,
			logx.String("schedule", newCfg.Schedule),
			logx.String("timezone", newCfg.Timezone),
		)
	}
	if !reflect.DeepEqual(oldCfg.Entities, newCfg.Entities) {
		changed = append(changed, "entities")
		attrs = append(attrs, logx.Int("entities", len(newCfg.Entities)))
	}
	if oldCfg.Counter != newCfg.Counter {
		changed = append(changed, "counter")
		attrs = append(attrs, logx.String("counter.base_url", newCfg.Counter.BaseURL))
	}
	if oldCfg.Notifications != newCfg.Notifications {
		changed = append(changed, "notifications")
		attrs = append(attrs, logx.Int("notifications.rate_per_sec", newCfg.Notifications.RatePerSec))
	}
	if oldCfg.Telegram != newCfg.Telegram {
		changed = append(changed, "telegram")
		attrs = append(attrs, logx.Bool("telegram.token_set", strings.TrimSpace(newCfg.Telegram.Token) != ""))
	}
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}
	if oldCfg.HTTP != newCfg.HTTP {
		changed = append(changed, "http")
	}
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
	}
	return changed, attrs
}

// RequiresRestart reports sections that can't be applied live.
func RequiresRestart(sections []string) []string {
	var out []string
	for _, s := range sections {
		switch s {
		case "storage", "http", "telegram":
			out = append(out, s)
		}
	}
	return out
}
