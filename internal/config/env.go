package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// legacyEntitySlots is how many GROUPn_ID/WEBHOOKn_URL pairs are read from the environment.
const legacyEntitySlots = 5

// ApplyEnv overlays environment overrides onto cfg. getenv defaults to os.Getenv.
//
// Recognized variables:
//   - MEMBERWATCH_MILESTONE_STEP, MILESTONE_STEP
//   - MEMBERWATCH_HTTP_ADDR, PORT
//   - MEMBERWATCH_LOG_LEVEL
//   - MEMBERWATCH_TELEGRAM_TOKEN
//   - GROUP1_ID..GROUP5_ID with WEBHOOK1_URL..WEBHOOK5_URL (appended to entities)
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if cfg == nil {
		return nil
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	env := func(keys ...string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(getenv(k)); v != "" {
				return v
			}
		}
		return ""
	}

	if v := env("MEMBERWATCH_MILESTONE_STEP", "MILESTONE_STEP"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("milestone step from env: invalid %q", v)
		}
		cfg.MilestoneStep = n
	}
	if v := env("MEMBERWATCH_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	} else if v := env("PORT"); v != "" {
		cfg.HTTP.Addr = ":" + v
	}
	if v := env("MEMBERWATCH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := env("MEMBERWATCH_TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}

	seen := make(map[string]bool, len(cfg.Entities))
	for _, e := range cfg.Entities {
		seen[e.ID] = true
	}
	for i := 1; i <= legacyEntitySlots; i++ {
		id := env(fmt.Sprintf("GROUP%d_ID", i))
		target := env(fmt.Sprintf("WEBHOOK%d_URL", i))
		if id == "" && target == "" {
			continue
		}
		if id == "" || target == "" {
			return fmt.Errorf("GROUP%d_ID and WEBHOOK%d_URL must be set together", i, i)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		cfg.Entities = append(cfg.Entities, EntityConfig{ID: id, Target: target})
	}
	return nil
}
