package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "memberwatch/pkg/logx"
)

// fileStore keeps entity state in a snapshot plus journal.
//
// Files:
//   - <prefix>.audit.jsonl          (append-only JSON Lines)
//   - <prefix>.state.snapshot.json  (compacted state)
//   - <prefix>.state.journal.jsonl  (append-only state records)
//
// The journal is compacted into the snapshot every compactEvery writes and on Close.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	auditFile *os.File

	snapshotPath string
	journalFile  *os.File
	states       map[string]EntityState

	writes int
}

type stateRecord struct {
	ID    string      `json:"id"`
	State EntityState `json:"state"`
}

const compactEvery = 200

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage: path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	af, err := os.OpenFile(prefix+".audit.jsonl", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	snapPath := prefix + ".state.snapshot.json"
	journalPath := prefix + ".state.journal.jsonl"

	states := map[string]EntityState{}
	if err := loadSnapshot(snapPath, states); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("state snapshot unreadable", logx.String("path", snapPath), logx.Err(err))
	}
	if err := replayJournal(journalPath, states); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("state journal unreadable", logx.String("path", journalPath), logx.Err(err))
	}

	jf, err := os.OpenFile(journalPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		_ = af.Close()
		return nil, err
	}

	return &fileStore{
		log:          log,
		auditFile:    af,
		snapshotPath: snapPath,
		journalFile:  jf,
		states:       states,
	}, nil
}

func (s *fileStore) LoadStates(ctx context.Context) (map[string]EntityState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journalFile == nil {
		return nil, ErrClosed
	}
	out := make(map[string]EntityState, len(s.states))
	for k, v := range s.states {
		out[k] = cloneState(v)
	}
	return out, nil
}

func (s *fileStore) SaveState(ctx context.Context, entityID string, st EntityState) error {
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return nil
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journalFile == nil {
		return ErrClosed
	}
	s.states[entityID] = cloneState(st)

	if err := json.NewEncoder(s.journalFile).Encode(stateRecord{ID: entityID, State: st}); err != nil {
		return err
	}
	s.writes++
	if s.writes%compactEvery == 0 {
		if err := s.compactLocked(); err != nil {
			s.log.Debug("state compact failed", logx.Err(err))
		}
	}
	return nil
}

func (s *fileStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return ErrClosed
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	return json.NewEncoder(s.auditFile).Encode(e)
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	if s.journalFile != nil {
		if err := s.compactLocked(); err != nil {
			errs = append(errs, err)
		}
		errs = append(errs, s.journalFile.Close())
		s.journalFile = nil
	}
	if s.auditFile != nil {
		errs = append(errs, s.auditFile.Close())
		s.auditFile = nil
	}
	return errors.Join(errs...)
}

func (s *fileStore) compactLocked() error {
	tmp := s.snapshotPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(s.states); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		return err
	}
	if err := s.journalFile.Truncate(0); err != nil {
		return err
	}
	_, err = s.journalFile.Seek(0, io.SeekEnd)
	return err
}

func loadSnapshot(path string, out map[string]EntityState) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var m map[string]EntityState
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return err
	}
	for k, v := range m {
		out[k] = v
	}
	return nil
}

func replayJournal(path string, out map[string]EntityState) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r stateRecord
		// A torn last line after a crash is skipped.
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil || r.ID == "" {
			continue
		}
		out[r.ID] = r.State
	}
	return sc.Err()
}
