package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	logx "memberwatch/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// auditRetention bounds the audit table; rows older than this are pruned.
const auditRetention = 30 * 24 * time.Hour

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger

	opCount    atomic.Uint64
	pruneEvery uint64
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage: sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log, pruneEvery: 500}

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) LoadStates(ctx context.Context) (map[string]EntityState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entity_id, last_count, last_notification_id, updated_at FROM entity_state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]EntityState{}
	for rows.Next() {
		var (
			id      string
			count   sql.NullInt64
			msgID   sql.NullString
			updated string
		)
		if err := rows.Scan(&id, &count, &msgID, &updated); err != nil {
			return nil, err
		}
		st := EntityState{LastNotificationID: msgID.String}
		if count.Valid {
			v := count.Int64
			st.LastCount = &v
		}
		if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
			st.UpdatedAt = t
		}
		out[id] = st
	}
	return out, rows.Err()
}

func (s *sqliteStore) SaveState(ctx context.Context, entityID string, st EntityState) error {
	if entityID == "" {
		return nil
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now()
	}
	var count any
	if st.LastCount != nil {
		count = *st.LastCount
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entity_state(entity_id, last_count, last_notification_id, updated_at) VALUES(?,?,?,?)
		 ON CONFLICT(entity_id) DO UPDATE SET
		   last_count=excluded.last_count,
		   last_notification_id=excluded.last_notification_id,
		   updated_at=excluded.updated_at`,
		entityID, count, nullStr(st.LastNotificationID), st.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit(at, entity_id, target, outcome, count, milestone, message_id, err, took_ms)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		e.At.UTC().Format(time.RFC3339Nano), e.EntityID, e.Target, e.Outcome, e.Count, e.Milestone,
		nullStr(e.MessageID), nullStr(e.Error), e.TookMS,
	)
	if err == nil && s.opCount.Add(1)%s.pruneEvery == 0 {
		pctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		if perr := s.pruneAudit(pctx); perr != nil {
			s.log.Debug("audit prune failed", logx.Err(perr))
		}
		cancel()
	}
	return err
}

func (s *sqliteStore) pruneAudit(ctx context.Context) error {
	cutoff := time.Now().Add(-auditRetention).UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `DELETE FROM audit WHERE at < ?`, cutoff)
	return err
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
