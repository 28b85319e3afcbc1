// Package tracker runs the per-entity update cycle: fetch the current count,
// compare it with the last one seen, and replace the entity's notification
// when it changed.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"memberwatch/internal/milestone"
	"memberwatch/internal/storage"
	"memberwatch/internal/transport"
	logx "memberwatch/pkg/logx"
)

// Fetcher returns the current count for an entity.
type Fetcher interface {
	Fetch(ctx context.Context, entityID string) (int64, error)
}

// Entity is a tracked group paired with its parsed destination.
type Entity struct {
	ID     string
	Name   string
	Target transport.Target
}

func (e Entity) label() string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}

// Settings are the live-reloadable knobs of the cycle.
type Settings struct {
	Step      int64
	Title     string
	Color     int
	FieldName string
}

type Tracker struct {
	fetcher Fetcher
	pub     transport.Publisher
	store   storage.Store
	log     logx.Logger
	now     func() time.Time

	mu       sync.Mutex
	settings Settings
	states   map[string]storage.EntityState
}

func New(fetcher Fetcher, pub transport.Publisher, store storage.Store, settings Settings, log logx.Logger) *Tracker {
	if store == nil {
		store = storage.NewMemory()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Tracker{
		fetcher:  fetcher,
		pub:      pub,
		store:    store,
		log:      log,
		now:      time.Now,
		settings: normalize(settings),
		states:   map[string]storage.EntityState{},
	}
}

func normalize(s Settings) Settings {
	if s.Step <= 0 {
		s.Step = milestone.DefaultStep
	}
	return s
}

// Load replaces the in-memory states with what the store holds.
func (t *Tracker) Load(ctx context.Context) error {
	states, err := t.store.LoadStates(ctx)
	if err != nil {
		return fmt.Errorf("tracker: load states: %w", err)
	}
	t.mu.Lock()
	t.states = states
	if t.states == nil {
		t.states = map[string]storage.EntityState{}
	}
	t.mu.Unlock()
	t.log.Debug("states loaded", logx.Int("entities", len(states)))
	return nil
}

func (t *Tracker) SetSettings(s Settings) {
	t.mu.Lock()
	t.settings = normalize(s)
	t.mu.Unlock()
}

func (t *Tracker) Settings() Settings {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settings
}

// State returns the current state for an entity.
func (t *Tracker) State(entityID string) (storage.EntityState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[entityID]
	return st, ok
}

func (t *Tracker) setState(entityID string, st storage.EntityState) {
	t.mu.Lock()
	t.states[entityID] = st
	t.mu.Unlock()
}

// Update runs one cycle for e. It never returns an error: every failure is
// logged and recorded on the Result, and the state is only touched after a
// successful fetch.
func (t *Tracker) Update(ctx context.Context, e Entity) Result {
	start := t.now()
	res := Result{EntityID: e.ID, Target: e.Target.String()}
	log := t.log.With(logx.String("entity", e.label()), logx.String("target", res.Target))

	count, err := t.fetcher.Fetch(ctx, e.ID)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.fail(FailureFetch, err)
		log.Warn("fetch failed", logx.Err(err))
		return res
	}
	res.Count = count

	st, _ := t.State(e.ID)
	if prev, ok := st.Count(); ok {
		res.Previous = &prev
		if prev == count {
			res.Outcome = OutcomeUnchanged
			log.Debug("count unchanged", logx.Int64("count", count))
			return res
		}
	}
	res.Outcome = OutcomeChanged

	settings := t.Settings()
	res.Message = milestone.Compose(count, settings.Step)
	_, res.Milestone, _ = milestone.Progress(count, settings.Step)

	if old := st.LastNotificationID; old != "" {
		err := t.pub.Delete(ctx, e.Target, old)
		switch {
		case err == nil:
			res.Deleted = true
			st.LastNotificationID = ""
		case errors.Is(err, transport.ErrNotFound):
			st.LastNotificationID = ""
			log.Debug("previous notification already gone", logx.String("message_id", old))
		default:
			res.fail(FailureDelete, err)
			log.Warn("delete previous notification failed", logx.String("message_id", old), logx.Err(err))
		}
	}

	n := t.notification(settings, count, res.Message)
	if id, err := t.pub.Post(ctx, e.Target, n); err != nil {
		res.fail(FailurePost, err)
		log.Warn("post notification failed", logx.Int64("count", count), logx.Err(err))
	} else {
		res.NotificationID = id
		st.LastNotificationID = id
	}

	st.LastCount = &count
	st.UpdatedAt = t.now()
	t.setState(e.ID, st)
	if err := t.store.SaveState(ctx, e.ID, st); err != nil {
		res.fail(FailureStore, err)
		log.Warn("persist state failed", logx.Err(err))
	}
	res.Took = t.now().Sub(start)

	t.audit(ctx, e, res, log)
	if res.NotificationID != "" {
		log.Info("notification replaced",
			logx.Int64("count", count),
			logx.Int64("next_milestone", res.Milestone),
			logx.String("message_id", res.NotificationID),
			logx.Bool("deleted_previous", res.Deleted),
		)
	}
	return res
}

// Preview fetches and composes without publishing or touching state.
func (t *Tracker) Preview(ctx context.Context, e Entity) Result {
	res := Result{EntityID: e.ID, Target: e.Target.String()}
	count, err := t.fetcher.Fetch(ctx, e.ID)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.fail(FailureFetch, err)
		return res
	}
	res.Count = count
	st, _ := t.State(e.ID)
	if prev, ok := st.Count(); ok {
		res.Previous = &prev
		if prev == count {
			res.Outcome = OutcomeUnchanged
			return res
		}
	}
	res.Outcome = OutcomeChanged
	step := t.Settings().Step
	res.Message = milestone.Compose(count, step)
	_, res.Milestone, _ = milestone.Progress(count, step)
	return res
}

// Sweep updates entities in order and stops early when ctx is done.
func (t *Tracker) Sweep(ctx context.Context, entities []Entity) []Result {
	start := t.now()
	out := make([]Result, 0, len(entities))
	var changed, failed int
	for _, e := range entities {
		if ctx.Err() != nil {
			t.log.Warn("sweep interrupted", logx.Int("done", len(out)), logx.Int("total", len(entities)), logx.Err(ctx.Err()))
			break
		}
		r := t.Update(ctx, e)
		switch {
		case r.Outcome == OutcomeFailed:
			failed++
		case r.Outcome == OutcomeChanged:
			changed++
		}
		out = append(out, r)
	}
	t.log.Info("sweep finished",
		logx.Int("entities", len(out)),
		logx.Int("changed", changed),
		logx.Int("failed", failed),
		logx.Duration("took", t.now().Sub(start)),
	)
	return out
}

func (t *Tracker) notification(s Settings, count int64, msg string) transport.Notification {
	return transport.Notification{
		Title:       s.Title,
		Description: msg,
		Color:       s.Color,
		Fields: []transport.Field{
			{Name: s.FieldName, Value: strconv.FormatInt(count, 10), Inline: true},
		},
		Timestamp: t.now(),
	}
}

func (t *Tracker) audit(ctx context.Context, e Entity, res Result, log logx.Logger) {
	entry := storage.AuditEntry{
		At:        t.now(),
		EntityID:  e.ID,
		Target:    res.Target,
		Outcome:   res.Outcome.String(),
		Count:     res.Count,
		Milestone: res.Milestone,
		MessageID: res.NotificationID,
		TookMS:    res.Took.Milliseconds(),
	}
	if len(res.Failures) > 0 {
		msgs := make([]string, 0, len(res.Failures))
		for _, f := range res.Failures {
			msgs = append(msgs, f.Error())
		}
		entry.Error = strings.Join(msgs, "; ")
	}
	if err := t.store.AppendAudit(ctx, entry); err != nil {
		log.Debug("audit append failed", logx.Err(err))
	}
}
