package scheduler

import (
	"testing"
	"time"
)

func TestParseScheduleVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		raw      string
		kind     SpecKind
		source   string
		duration time.Duration
		cronSpec string
	}{
		{name: "cron", raw: "*/5 * * * *", kind: SpecCron, source: "cron", cronSpec: "*/5 * * * *"},
		{name: "cron with seconds", raw: "0 */5 * * * *", kind: SpecCron, source: "cron", cronSpec: "0 */5 * * * *"},
		{name: "descriptor", raw: "@every 5m", kind: SpecCron, source: "cron", cronSpec: "@every 5m"},
		{name: "prefixed cron", raw: "cron:0 0 * * *", kind: SpecCron, source: "cron", cronSpec: "0 0 * * *"},
		{name: "duration", raw: "5m", kind: SpecInterval, source: "duration", duration: 5 * time.Minute, cronSpec: "@every 5m0s"},
		{name: "prefixed interval", raw: "interval:45s", kind: SpecInterval, source: "duration", duration: 45 * time.Second},
		{name: "every prefix hhmm", raw: "every:00:05", kind: SpecInterval, source: "hhmm", duration: 5 * time.Minute},
		{name: "hhmm", raw: "01:30", kind: SpecInterval, source: "hhmm", duration: 90 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSchedule(tt.raw)
			if err != nil {
				t.Fatalf("ParseSchedule(%q) error: %v", tt.raw, err)
			}
			if got.Kind != tt.kind {
				t.Fatalf("Kind = %v, want %v", got.Kind, tt.kind)
			}
			if got.Source != tt.source {
				t.Fatalf("Source = %s, want %s", got.Source, tt.source)
			}
			if tt.kind == SpecInterval && got.Every != tt.duration {
				t.Fatalf("Every = %v, want %v", got.Every, tt.duration)
			}
			if tt.cronSpec != "" && got.CronSpec() != tt.cronSpec {
				t.Fatalf("CronSpec = %q, want %q", got.CronSpec(), tt.cronSpec)
			}
		})
	}
}

func TestParseScheduleInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "not-a-schedule", "61 * * * *", "cron:", "interval:-5m", "00:00", "01:75", "0s"} {
		if _, err := ParseSchedule(raw); err == nil {
			t.Fatalf("ParseSchedule(%q): expected error", raw)
		}
	}
}
