package storage

import (
	"errors"
	"time"
)

var (
	ErrClosed        = errors.New("storage: closed")
	ErrUnknownDriver = errors.New("storage: unknown driver")
)

// Config configures storage. Empty Driver selects the memory driver.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default

	Addr      string // redis
	Password  string
	DB        int
	KeyPrefix string
}

// EntityState is what the tracker remembers between sweeps.
type EntityState struct {
	// LastCount is nil until the first successful fetch.
	LastCount          *int64    `json:"last_count,omitempty"`
	LastNotificationID string    `json:"last_notification_id,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Count returns the last count and whether one has been observed.
func (s EntityState) Count() (int64, bool) {
	if s.LastCount == nil {
		return 0, false
	}
	return *s.LastCount, true
}

// AuditEntry records one tracker update that did something observable.
type AuditEntry struct {
	At        time.Time `json:"at"`
	EntityID  string    `json:"entity_id"`
	Target    string    `json:"target"`
	Outcome   string    `json:"outcome"`
	Count     int64     `json:"count"`
	Milestone int64     `json:"milestone"`
	MessageID string    `json:"message_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	TookMS    int64     `json:"took_ms"`
}

func cloneState(s EntityState) EntityState {
	if s.LastCount != nil {
		v := *s.LastCount
		s.LastCount = &v
	}
	return s
}
