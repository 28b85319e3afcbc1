package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
milestone_step: 250
schedule: "@every 1m"
entities:
  - id: "1234"
    target: "https://discord.com/api/webhooks/1/abc"
  - id: "5678"
    name: "second"
    target: "telegram://-100123/7"
logging:
  level: debug
  console: true
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func noEnv(string) string { return "" }

func TestParseYAMLAppliesDefaults(t *testing.T) {
	m := NewManager(writeFile(t, "mw.yaml", sampleYAML))
	m.SetEnv(noEnv)

	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MilestoneStep != 250 {
		t.Fatalf("MilestoneStep = %d, want 250", cfg.MilestoneStep)
	}
	if len(cfg.Entities) != 2 || cfg.Entities[1].Name != "second" {
		t.Fatalf("unexpected entities: %+v", cfg.Entities)
	}
	if cfg.Counter.CountField != DefaultCountField || cfg.Counter.BaseURL != DefaultCounterBase {
		t.Fatalf("counter defaults not applied: %+v", cfg.Counter)
	}
	if cfg.Notifications.Color != DefaultColor || cfg.Notifications.Title != DefaultTitle {
		t.Fatalf("notification defaults not applied: %+v", cfg.Notifications)
	}
	if !cfg.ShouldRunOnStart() {
		t.Fatal("run_on_start should default to true")
	}
	if cfg.HTTP.Addr != DefaultHTTPAddr {
		t.Fatalf("HTTP.Addr = %q", cfg.HTTP.Addr)
	}
	if m.Get() != cfg {
		t.Fatal("Load should commit the parsed config")
	}
}

func TestParseJSONRejectsUnknownFields(t *testing.T) {
	m := NewManager(writeFile(t, "mw.json", `{"entities":[{"id":"1","target":"x"}],"groups":[]}`))
	m.SetEnv(noEnv)
	if _, err := m.Parse(); err == nil || !strings.Contains(err.Error(), "unknown field") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	_, err := Decode("mw.json", []byte(`{"entities":[]} {}`))
	if err == nil {
		t.Fatal("expected trailing data error")
	}
}

func TestApplyEnvOverridesAndLegacyPairs(t *testing.T) {
	env := map[string]string{
		"MILESTONE_STEP": "50",
		"PORT":           "8080",
		"GROUP1_ID":      "111",
		"WEBHOOK1_URL":   "https://discord.com/api/webhooks/9/tok",
		"GROUP3_ID":      "333",
		"WEBHOOK3_URL":   "https://discord.com/api/webhooks/8/tok",
	}
	cfg := &Config{Entities: []EntityConfig{{ID: "333", Target: "telegram://1"}}}
	if err := ApplyEnv(cfg, func(k string) string { return env[k] }); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.MilestoneStep != 50 {
		t.Fatalf("MilestoneStep = %d", cfg.MilestoneStep)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("HTTP.Addr = %q", cfg.HTTP.Addr)
	}
	if len(cfg.Entities) != 2 {
		t.Fatalf("expected configured entity plus GROUP1, got %+v", cfg.Entities)
	}
	if cfg.Entities[0].Target != "telegram://1" {
		t.Fatal("file entity must win over legacy env pair with the same id")
	}
	if cfg.Entities[1].ID != "111" {
		t.Fatalf("legacy pair not appended: %+v", cfg.Entities[1])
	}
}

func TestApplyEnvRejectsHalfPair(t *testing.T) {
	env := map[string]string{"GROUP2_ID": "1"}
	if err := ApplyEnv(&Config{}, func(k string) string { return env[k] }); err == nil {
		t.Fatal("expected error for GROUP2_ID without WEBHOOK2_URL")
	}
	bad := map[string]string{"MILESTONE_STEP": "0"}
	if err := ApplyEnv(&Config{}, func(k string) string { return bad[k] }); err == nil {
		t.Fatal("expected error for non-positive step")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{Entities: []EntityConfig{{ID: "1", Target: "t1"}, {ID: "2", Target: "t2"}}}
	}
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{name: "ok", mutate: func(c *Config) {}},
		{name: "no entities", mutate: func(c *Config) { c.Entities = nil }, want: "no entities"},
		{name: "empty id", mutate: func(c *Config) { c.Entities[0].ID = " " }, want: "entities[0].id"},
		{name: "empty target", mutate: func(c *Config) { c.Entities[1].Target = "" }, want: "entities[1].target"},
		{name: "duplicate", mutate: func(c *Config) { c.Entities[1].ID = "1" }, want: "duplicates"},
		{name: "negative step", mutate: func(c *Config) { c.MilestoneStep = -1 }, want: "milestone_step"},
		{name: "bad tz", mutate: func(c *Config) { c.Timezone = "Mars/Olympus" }, want: "timezone"},
		{name: "bad timeout", mutate: func(c *Config) { c.Counter.Timeout = "soon" }, want: "counter.timeout"},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, want: "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := Validate(c)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
	if err := Validate(&Config{}); !errors.Is(err, ErrNoEntities) {
		t.Fatalf("expected ErrNoEntities, got %v", err)
	}
}

func TestReloadPublishesOnlyOnChange(t *testing.T) {
	path := writeFile(t, "mw.yaml", sampleYAML)
	m := NewManager(path)
	m.SetEnv(noEnv)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)

	changed, err := m.Reload(context.Background())
	if err != nil || changed {
		t.Fatalf("unchanged file should not publish: changed=%v err=%v", changed, err)
	}

	updated := strings.Replace(sampleYAML, "milestone_step: 250", "milestone_step: 500", 1)
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatal(err)
	}
	changed, err = m.Reload(context.Background())
	if err != nil || !changed {
		t.Fatalf("expected publish: changed=%v err=%v", changed, err)
	}
	got := <-sub
	if got.MilestoneStep != 500 {
		t.Fatalf("published step = %d", got.MilestoneStep)
	}
}

func TestReloadHonorsValidator(t *testing.T) {
	path := writeFile(t, "mw.yaml", sampleYAML)
	m := NewManager(path)
	m.SetEnv(noEnv)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	m.SetValidator(func(ctx context.Context, cfg *Config) error { return errors.New("nope") })

	if err := os.WriteFile(path, []byte(strings.Replace(sampleYAML, "250", "300", 1)), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Reload(context.Background()); err == nil {
		t.Fatal("expected validator rejection")
	}
	if m.Get().MilestoneStep != 250 {
		t.Fatal("rejected config must not be committed")
	}
}

func TestSummarizeChange(t *testing.T) {
	a := &Config{MilestoneStep: 100, Entities: []EntityConfig{{ID: "1", Target: "x"}}}
	b := &Config{MilestoneStep: 100, Entities: []EntityConfig{{ID: "1", Target: "y"}}, Storage: &StorageConfig{Driver: "file"}}
	sections, _ := SummarizeChange(a, b)
	if strings.Join(sections, ",") != "entities,storage" {
		t.Fatalf("sections = %v", sections)
	}
	if got := RequiresRestart(sections); len(got) != 1 || got[0] != "storage" {
		t.Fatalf("RequiresRestart = %v", got)
	}
}

func TestParseDurationField(t *testing.T) {
	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{raw: "", want: 0},
		{raw: "10s", want: 10 * time.Second},
		{raw: " 45 ", want: 45 * time.Second},
		{raw: "1m30s", want: 90 * time.Second},
		{raw: "-5s", wantErr: true},
		{raw: "soon", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDurationField("x", tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tt.raw)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("%q: got %v, %v; want %v", tt.raw, got, err, tt.want)
		}
	}
	if d, _ := ParseDurationOrDefault("x", "", time.Minute); d != time.Minute {
		t.Fatalf("default not applied: %v", d)
	}
}
