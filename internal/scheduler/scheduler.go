package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"CatalogSync/internal/logger"
	"CatalogSync/internal/model"
	"CatalogSync/internal/recorder"

	"github.com/robfig/cron/v3"
)

// ErrRunInProgress is returned by RunNow while another run is executing.
var ErrRunInProgress = errors.New("a sync run is already in progress")

// DefaultEvery is the interval used when no schedule is configured.
const DefaultEvery = 60 * time.Minute

// Runner executes one sync.
type Runner interface {
	RunOnce(ctx context.Context) (*model.RunResult, error)
}

// Schedule is either a standard 5-field cron expression or a fixed interval.
// Cron wins when both are set.
type Schedule struct {
	Cron  string
	Every time.Duration
}

// Spec returns the expression handed to the cron parser.
func (s Schedule) Spec() string {
	if s.Cron != "" {
		return s.Cron
	}
	every := s.Every
	if every <= 0 {
		every = DefaultEvery
	}
	return "@every " + every.String()
}

// Scheduler owns the cron handle that triggers sync runs and guarantees at
// most one run is in flight.
type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	recorder recorder.Recorder
	ctx      context.Context
	log      *logger.Logger
	now      func() time.Time

	running sync.Mutex

	mu      sync.RWMutex
	entry   cron.EntryID
	spec    string
	started bool
	busy    bool
	last    *model.RunResult
}

// New creates a Scheduler. Scheduled runs use ctx, so cancelling it aborts
// an in-flight scheduled run.
func New(ctx context.Context, runner Runner, rec recorder.Recorder, log *logger.Logger) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	cl := log.Cron()
	return &Scheduler{
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		runner:   runner,
		recorder: rec,
		ctx:      ctx,
		log:      log.With("scheduler"),
		now:      time.Now,
	}
}

// Register installs the recurring sync job, replacing any previous one.
func (s *Scheduler) Register(sched Schedule) error {
	spec := sched.Spec()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry != 0 {
		s.cron.Remove(s.entry)
		s.entry = 0
	}
	id, err := s.cron.AddFunc(spec, s.tick)
	if err != nil {
		return fmt.Errorf("%w: register schedule %q: %v", model.ErrConfiguration, spec, err)
	}
	s.entry = id
	s.spec = spec
	s.log.Info().Str("schedule", spec).Msg("sync job registered")
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops scheduling and waits for a running job to finish or ctx to
// expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.started = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info().Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running job: %w", ctx.Err())
	}
}

// RunNow executes a run immediately on the caller's goroutine.
func (s *Scheduler) RunNow(ctx context.Context) (*model.RunResult, error) {
	if !s.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.running.Unlock()
	return s.execute(ctx, "manual")
}

func (s *Scheduler) tick() {
	if !s.running.TryLock() {
		s.log.Warn().Msg("previous run still in progress, skipping scheduled run")
		return
	}
	defer s.running.Unlock()
	_, _ = s.execute(s.ctx, "scheduled")
}

func (s *Scheduler) execute(ctx context.Context, trigger string) (*model.RunResult, error) {
	s.setBusy(true)
	defer s.setBusy(false)

	s.log.Info().Str("trigger", trigger).Msg("starting sync run")
	res, err := s.runner.RunOnce(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("trigger", trigger).Msg("sync run aborted")
	}
	if res != nil {
		if recErr := s.recorder.RecordRun(res); recErr != nil {
			s.log.Error().Err(recErr).Str("run_id", res.RunID).Msg("record run")
		}
		s.mu.Lock()
		s.last = res
		s.mu.Unlock()
	}
	return res, err
}

func (s *Scheduler) setBusy(v bool) {
	s.mu.Lock()
	s.busy = v
	s.mu.Unlock()
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Scheduled        bool             `json:"scheduler_running"`
	Running          bool             `json:"run_in_progress"`
	Schedule         string           `json:"schedule,omitempty"`
	NextRun          *time.Time       `json:"next_run"`
	SecondsUntilNext *float64         `json:"seconds_until_next_run"`
	MinutesUntilNext *float64         `json:"minutes_until_next_run"`
	TimeUntilNext    string           `json:"time_until_next_run,omitempty"`
	LastRun          *model.RunResult `json:"last_run"`
}

// Status reports whether the job is scheduled, when it fires next and the
// last recorded run.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	st := Status{
		Scheduled: s.started && s.entry != 0,
		Running:   s.busy,
		Schedule:  s.spec,
		LastRun:   s.last,
	}
	entry := s.entry
	s.mu.RUnlock()

	if st.LastRun == nil {
		last, err := s.recorder.LastRun()
		if err != nil {
			s.log.Warn().Err(err).Msg("load last run")
		}
		st.LastRun = last
	}

	if !st.Scheduled {
		return st
	}
	next := s.cron.Entry(entry).Next
	if next.IsZero() {
		return st
	}
	until := next.Sub(s.now())
	if until < 0 {
		until = 0
	}
	secs := until.Seconds()
	mins := secs / 60
	st.NextRun = &next
	st.SecondsUntilNext = &secs
	st.MinutesUntilNext = &mins
	st.TimeUntilNext = FormatClock(until)
	return st
}

// FormatClock renders d as HH:MM:SS; hours may exceed 24.
func FormatClock(d time.Duration) string {
	total := int64(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
