package config

// Config is the on-disk configuration (JSON or YAML).
type Config struct {
	// MilestoneStep is the spacing between milestones. Defaults to 100.
	MilestoneStep int64 `json:"milestone_step,omitempty"`

	// Schedule accepts cron ("*/5 * * * *", "@every 5m"), a Go duration ("5m")
	// or HH:MM ("00:05"). Defaults to every five minutes.
	Schedule string `json:"schedule,omitempty"`
	// Timezone is an IANA zone used for cron triggers.
	Timezone string `json:"timezone,omitempty"`
	// RunOnStart triggers one sweep immediately at startup. Pointer so an
	// omitted value defaults to true.
	RunOnStart *bool `json:"run_on_start,omitempty"`
	// SweepTimeout bounds a whole sweep (Go duration). Empty disables it.
	SweepTimeout string `json:"sweep_timeout,omitempty"`

	Counter       CounterConfig      `json:"counter"`
	Notifications NotificationConfig `json:"notifications"`
	Telegram      TelegramConfig     `json:"telegram"`
	Entities      []EntityConfig     `json:"entities"`

	Storage *StorageConfig `json:"storage,omitempty"`
	HTTP    HTTPConfig     `json:"http"`
	Logging LoggingConfig  `json:"logging"`
}

// EntityConfig pairs a tracked group with its notification target.
//
// Target examples:
//
//	"https://discord.com/api/webhooks/<id>/<token>"
//	"telegram://-1001234567890/42"
type EntityConfig struct {
	ID     string `json:"id"`
	Target string `json:"target"`
	// Name is an optional label used in logs and CLI output.
	Name string `json:"name,omitempty"`
}

// CounterConfig controls the member-count source.
type CounterConfig struct {
	// BaseURL is joined with the escaped entity id.
	BaseURL    string `json:"base_url,omitempty"`
	CountField string `json:"count_field,omitempty"`
	Timeout    string `json:"timeout,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
}

// NotificationConfig controls how notifications are rendered and sent.
type NotificationConfig struct {
	Title      string `json:"title,omitempty"`
	Color      int    `json:"color,omitempty"`
	FieldName  string `json:"field_name,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
	Timeout    string `json:"timeout,omitempty"`
	// DiscordAPI overrides the Discord API base URL (tests, proxies).
	DiscordAPI string `json:"discord_api,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token,omitempty"`
	// APIURL overrides the Bot API endpoint.
	APIURL string `json:"api_url,omitempty"`
}

// StorageConfig controls where entity state lives.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./memberwatch.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite

	Addr      string `json:"addr,omitempty"` // redis
	Password  string `json:"password,omitempty"`
	DB        int    `json:"db,omitempty"`
	KeyPrefix string `json:"key_prefix,omitempty"`
}

type HTTPConfig struct {
	// Addr for the liveness endpoint. Empty uses DefaultHTTPAddr; "off" disables it.
	Addr string `json:"addr,omitempty"`
	// Pprof exposes /debug/pprof/ on the same listener. Keep Addr on loopback when set.
	Pprof bool `json:"pprof,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

const (
	DefaultMilestoneStep int64 = 100
	DefaultSchedule            = "*/5 * * * *"
	DefaultCounterBase         = "https://groups.roblox.com/v1/groups/"
	DefaultCountField          = "memberCount"
	DefaultTitle               = "Roblox Group Member Count"
	DefaultColor               = 5814783
	DefaultFieldName           = "Current Members"
	DefaultHTTPAddr            = ":3000"
)

// WithDefaults returns a copy with zero values replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.MilestoneStep == 0 {
		c.MilestoneStep = DefaultMilestoneStep
	}
	if c.Schedule == "" {
		c.Schedule = DefaultSchedule
	}
	if c.RunOnStart == nil {
		t := true
		c.RunOnStart = &t
	}
	if c.Counter.BaseURL == "" {
		c.Counter.BaseURL = DefaultCounterBase
	}
	if c.Counter.CountField == "" {
		c.Counter.CountField = DefaultCountField
	}
	if c.Notifications.Title == "" {
		c.Notifications.Title = DefaultTitle
	}
	if c.Notifications.Color == 0 {
		c.Notifications.Color = DefaultColor
	}
	if c.Notifications.FieldName == "" {
		c.Notifications.FieldName = DefaultFieldName
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultHTTPAddr
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	return c
}

// ShouldRunOnStart reports the effective run_on_start flag.
func (c Config) ShouldRunOnStart() bool {
	return c.RunOnStart == nil || *c.RunOnStart
}
