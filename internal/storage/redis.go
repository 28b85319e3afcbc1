package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	logx "memberwatch/pkg/logx"
)

const (
	defaultRedisPrefix = "memberwatch:"
	redisAuditCap      = 1000
)

// redisStore keeps states in one hash (field = entity id, value = JSON) and
// the audit trail in a list capped at redisAuditCap entries, newest first.
type redisStore struct {
	client   *redis.Client
	stateKey string
	auditKey string
	log      logx.Logger
}

func openRedis(cfg Config, log logx.Logger) (Store, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("storage: redis addr is required")
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("storage: redis ping %s: %w", addr, err)
	}
	return newRedisStore(rdb, prefix, log), nil
}

func newRedisStore(rdb *redis.Client, prefix string, log logx.Logger) *redisStore {
	return &redisStore{
		client:   rdb,
		stateKey: prefix + "state",
		auditKey: prefix + "audit",
		log:      log,
	}
}

func (s *redisStore) LoadStates(ctx context.Context) (map[string]EntityState, error) {
	raw, err := s.client.HGetAll(ctx, s.stateKey).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]EntityState, len(raw))
	for id, v := range raw {
		var st EntityState
		if err := json.Unmarshal([]byte(v), &st); err != nil {
			s.log.Warn("skipping unreadable state", logx.String("entity", id), logx.Err(err))
			continue
		}
		out[id] = st
	}
	return out, nil
}

func (s *redisStore) SaveState(ctx context.Context, entityID string, st EntityState) error {
	if entityID == "" {
		return nil
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now()
	}
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.stateKey, entityID, data).Err()
}

func (s *redisStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.auditKey, data)
	pipe.LTrim(ctx, s.auditKey, 0, redisAuditCap-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
