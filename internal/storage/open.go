package storage

import (
	"context"
	"fmt"
	"strings"

	logx "memberwatch/pkg/logx"
)

// Store is the persistence API used by the tracker.
type Store interface {
	// LoadStates returns every persisted entity state keyed by entity id.
	LoadStates(ctx context.Context) (map[string]EntityState, error)
	SaveState(ctx context.Context, entityID string, st EntityState) error
	AppendAudit(ctx context.Context, e AuditEntry) error
	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "", "memory", "none":
		return NewMemory(), nil
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "redis":
		return openRedis(cfg, log)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownDriver, driver)
	}
}
