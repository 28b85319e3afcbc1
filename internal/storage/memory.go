package storage

import (
	"context"
	"sync"
)

const memoryAuditCap = 256

// Memory keeps state in process. It is also the test double for Store.
type Memory struct {
	mu     sync.Mutex
	states map[string]EntityState
	audit  []AuditEntry
	closed bool
}

func NewMemory() *Memory {
	return &Memory{states: map[string]EntityState{}}
}

func (m *Memory) LoadStates(ctx context.Context) (map[string]EntityState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make(map[string]EntityState, len(m.states))
	for k, v := range m.states {
		out[k] = cloneState(v)
	}
	return out, nil
}

func (m *Memory) SaveState(ctx context.Context, entityID string, st EntityState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.states[entityID] = cloneState(st)
	return nil
}

func (m *Memory) AppendAudit(ctx context.Context, e AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.audit = append(m.audit, e)
	if over := len(m.audit) - memoryAuditCap; over > 0 {
		m.audit = append(m.audit[:0], m.audit[over:]...)
	}
	return nil
}

// Audit returns a copy of the retained audit entries, oldest first.
func (m *Memory) Audit() []AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AuditEntry(nil), m.audit...)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
