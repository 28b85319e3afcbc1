package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "memberwatch/pkg/logx"
)

var (
	ErrUnknownSchedule = errors.New("scheduler: unknown schedule")
	ErrAlreadyRunning  = errors.New("scheduler: previous run still in flight")
)

type Config struct {
	Timezone string // IANA TZ; empty uses the local zone
}

// Job is the unit of work a schedule triggers.
type Job func(ctx context.Context) error

// runState guards a schedule against overlapping runs.
type runState struct {
	mu      sync.Mutex
	running bool
}

func (s *runState) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *runState) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

type scheduleDef struct {
	name    string
	spec    string
	timeout time.Duration
	job     Job
	entryID cron.EntryID
	state   *runState
}

type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config
	loc *time.Location

	c    *cron.Cron
	defs map[string]*scheduleDef

	// base is cancelled by Stop so in-flight jobs see shutdown.
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type ScheduleInfo struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Next    time.Time
	Prev    time.Time
	Running bool
}

func New(cfg Config, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, log: log, defs: map[string]*scheduleDef{}}
}

// AddSchedule upserts a schedule by name. Definitions added before Start are
// registered when Start runs.
func (s *Service) AddSchedule(name, schedule string, timeout time.Duration, job Job) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("scheduler: name required")
	}
	if job == nil {
		return errors.New("scheduler: job required")
	}
	ps, err := ParseSchedule(schedule)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := &runState{}
	if old, ok := s.defs[name]; ok {
		// Keep the guard so a run in flight still blocks the replacement.
		state = old.state
		if s.c != nil {
			s.c.Remove(old.entryID)
		}
	}
	d := &scheduleDef{name: name, spec: ps.CronSpec(), timeout: timeout, job: job, state: state}
	s.defs[name] = d

	if s.c == nil {
		return nil
	}
	if err := s.addCronLocked(d); err != nil {
		s.log.Error("schedule register failed", logx.String("name", name), logx.String("spec", d.spec), logx.Err(err))
		return err
	}
	s.log.Debug("schedule registered",
		logx.String("name", name),
		logx.String("spec", d.spec),
		logx.Duration("timeout", timeout),
		logx.Time("next", s.c.Entry(d.entryID).Next),
	)
	return nil
}

// Remove unschedules name and reports whether it existed.
func (s *Service) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.defs[name]
	if !ok {
		return false
	}
	if s.c != nil {
		s.c.Remove(d.entryID)
	}
	delete(s.defs, name)
	return true
}

// RunNow runs the named job synchronously through the overlap guard.
func (s *Service) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	d, ok := s.defs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSchedule, name)
	}
	return s.run(ctx, d, "manual")
}

func (s *Service) addCronLocked(d *scheduleDef) error {
	id, err := s.c.AddFunc(d.spec, func() {
		_ = s.run(s.base, d, "cron")
	})
	if err != nil {
		return err
	}
	d.entryID = id
	return nil
}

func (s *Service) run(parent context.Context, d *scheduleDef, trigger string) (err error) {
	if parent == nil {
		parent = context.Background()
	}
	if !d.state.tryAcquire() {
		s.log.Warn("run skipped: previous run still in flight", logx.String("name", d.name), logx.String("trigger", trigger))
		return ErrAlreadyRunning
	}
	s.wg.Add(1)
	defer s.wg.Done()
	defer d.state.release()

	ctx := parent
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, d.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduler: job %s panicked: %v", d.name, r)
			s.log.Error("job panic", logx.String("name", d.name), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()

	err = d.job(ctx)
	took := time.Since(start)
	if err != nil {
		s.log.Warn("job failed", logx.String("name", d.name), logx.String("trigger", trigger), logx.Duration("took", took), logx.Err(err))
		return err
	}
	s.log.Debug("job done", logx.String("name", d.name), logx.String("trigger", trigger), logx.Duration("took", took))
	return nil
}

// Apply updates the config and restarts cron when the timezone changed.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	oldTZ := strings.TrimSpace(s.cfg.Timezone)
	s.cfg = cfg
	if s.c == nil || oldTZ == strings.TrimSpace(cfg.Timezone) {
		return
	}
	old := s.c
	s.startLocked()
	go old.Stop()
	s.log.Info("timezone changed; schedules re-registered", logx.String("tz", s.loc.String()))
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	s.base, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.startLocked()
	s.log.Info("service started", logx.String("tz", s.loc.String()), logx.Int("schedules", len(s.defs)))
}

func (s *Service) startLocked() {
	s.loc = s.loadLocationLocked()
	s.c = cron.New(cron.WithParser(cronParser), cron.WithLocation(s.loc))
	for _, d := range s.defs {
		if err := s.addCronLocked(d); err != nil {
			s.log.Error("schedule register failed", logx.String("name", d.name), logx.String("spec", d.spec), logx.Err(err))
		}
	}
	s.c.Start()
}

// Stop stops triggering, cancels in-flight jobs and waits for them until ctx is done.
func (s *Service) Stop(ctx context.Context) {
	start := time.Now()
	s.mu.Lock()
	c := s.c
	cancel := s.cancel
	s.c = nil
	s.cancel = nil
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	if cancel != nil {
		cancel()
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("stop timed out waiting for jobs")
	}
	s.log.Info("service stopped", logx.Duration("took", time.Since(start)))
}

func (s *Service) Schedules() []ScheduleInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScheduleInfo, 0, len(s.defs))
	for _, d := range s.defs {
		info := ScheduleInfo{Name: d.name, Spec: d.spec, Timeout: d.timeout}
		if s.c != nil && d.entryID != 0 {
			e := s.c.Entry(d.entryID)
			info.Next, info.Prev = e.Next, e.Prev
		}
		d.state.mu.Lock()
		info.Running = d.state.running
		d.state.mu.Unlock()
		out = append(out, info)
	}
	return out
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone, using local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
