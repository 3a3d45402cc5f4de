package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/estivenmendezr98/TAREAS/internal/cache"
	"github.com/estivenmendezr98/TAREAS/internal/config"
	"github.com/estivenmendezr98/TAREAS/internal/lifecycle"
	"github.com/estivenmendezr98/TAREAS/internal/logger"
	"github.com/estivenmendezr98/TAREAS/internal/monitoring"
)

const lockKey = "tareas:lock:sweeper"

// Purger removes items whose soft delete is older than cutoff.
type Purger interface {
	PurgeExpired(ctx context.Context, t lifecycle.EntityType, cutoff time.Time) (lifecycle.PurgeStats, error)
}

// Locker keeps replicas from sweeping at the same time.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

type Reporter interface {
	RecordSweep(report monitoring.SweepReport)
}

type Config struct {
	Retention  time.Duration
	Interval   time.Duration
	LockTTL    time.Duration
	RunOnStart bool
}

func DefaultConfig() Config {
	return Config{
		Retention:  30 * 24 * time.Hour,
		Interval:   24 * time.Hour,
		LockTTL:    10 * time.Minute,
		RunOnStart: true,
	}
}

func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Retention:  cfg.Lifecycle.Retention,
		Interval:   cfg.Lifecycle.SweepInterval,
		LockTTL:    cfg.Lifecycle.SweepLockTTL,
		RunOnStart: cfg.Lifecycle.SweepOnStart,
	}
}

type Result struct {
	StartedAt time.Time
	Cutoff    time.Time
	Duration  time.Duration
	Projects  lifecycle.PurgeStats
	Tasks     lifecycle.PurgeStats
	// Skipped is set when another replica held the sweep lock.
	Skipped bool
	Err     error
}

func (r Result) report() monitoring.SweepReport {
	report := monitoring.SweepReport{
		StartedAt:      r.StartedAt,
		DurationMs:     r.Duration.Milliseconds(),
		ProjectsPurged: r.Projects.Purged,
		TasksPurged:    r.Tasks.Purged,
		FilesRemoved:   r.Projects.Files + r.Tasks.Files,
		Skipped:        r.Skipped,
	}
	if r.Err != nil {
		report.Error = r.Err.Error()
	}
	return report
}

// Sweeper periodically purges expired recycle-bin items. Runs never overlap
// and a running sweep is allowed to finish when the sweeper is stopped.
type Sweeper struct {
	purger   Purger
	cfg      Config
	locker   Locker
	reporter Reporter
	now      func() time.Time
	log      *logger.Logger

	runMu   sync.Mutex
	stateMu sync.Mutex
	stopCh  chan struct{}
	done    chan struct{}
}

type Option func(*Sweeper)

func WithLocker(l Locker) Option {
	return func(s *Sweeper) { s.locker = l }
}

func WithReporter(r Reporter) Option {
	return func(s *Sweeper) { s.reporter = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Sweeper) { s.log = l }
}

func New(purger Purger, cfg Config, opts ...Option) *Sweeper {
	defaults := DefaultConfig()
	if cfg.Retention <= 0 {
		cfg.Retention = defaults.Retention
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaults.LockTTL
	}

	s := &Sweeper{
		purger: purger,
		cfg:    cfg,
		now:    time.Now,
		log:    logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.F("component", "sweeper"))
	return s
}

// Start launches the background loop. Calling Start twice is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.stopCh != nil {
		return
	}
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})

	s.log.Info("sweeper started",
		logger.F("retention", s.cfg.Retention.String()),
		logger.F("interval", s.cfg.Interval.String()),
	)
	go s.loop(ctx, s.stopCh, s.done)
}

// Stop ends the loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.stateMu.Lock()
	stopCh, done := s.stopCh, s.done
	s.stopCh, s.done = nil, nil
	s.stateMu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done
	s.log.Info("sweeper stopped")
}

func (s *Sweeper) loop(ctx context.Context, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	// Sweeps are not cancelled mid-run; shutdown only stops new ones.
	runCtx := context.WithoutCancel(ctx)

	if s.cfg.RunOnStart {
		s.RunOnce(runCtx)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(runCtx)
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce performs one sweep: expired projects first, then expired tasks.
// It never panics; failures are logged and returned in the Result.
func (s *Sweeper) RunOnce(ctx context.Context) (result Result) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	begin := time.Now()
	result.StartedAt = s.now().UTC()
	result.Cutoff = result.StartedAt.Add(-s.cfg.Retention)

	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("sweep panicked: %v", r)
		}
		result.Duration = time.Since(begin)
		s.finish(result)
	}()

	release, ok := s.lock(ctx)
	if !ok {
		result.Skipped = true
		return result
	}
	defer release()

	var errs []error
	var err error
	result.Projects, err = s.purger.PurgeExpired(ctx, lifecycle.TypeProject, result.Cutoff)
	if err != nil {
		errs = append(errs, fmt.Errorf("projects: %w", err))
	}
	result.Tasks, err = s.purger.PurgeExpired(ctx, lifecycle.TypeTask, result.Cutoff)
	if err != nil {
		errs = append(errs, fmt.Errorf("tasks: %w", err))
	}
	result.Err = errors.Join(errs...)
	return result
}

// lock takes the cross-replica lock when one is configured. Lock service
// failures fail open so a Redis outage never stops purging.
func (s *Sweeper) lock(ctx context.Context) (func(), bool) {
	noop := func() {}
	if s.locker == nil {
		return noop, true
	}

	token, err := s.locker.AcquireLock(ctx, lockKey, s.cfg.LockTTL)
	switch {
	case errors.Is(err, cache.ErrLockHeld):
		s.log.Info("sweep skipped, lock held by another instance")
		return noop, false
	case err != nil:
		s.log.Warn("sweep lock unavailable, sweeping without it", logger.Err(err))
		return noop, true
	}

	return func() {
		if err := s.locker.ReleaseLock(ctx, lockKey, token); err != nil {
			s.log.Warn("failed to release sweep lock", logger.Err(err))
		}
	}, true
}

func (s *Sweeper) finish(result Result) {
	if s.reporter != nil {
		s.reporter.RecordSweep(result.report())
	}
	if result.Skipped {
		return
	}

	fields := []logger.Field{
		logger.F("projects_purged", result.Projects.Purged),
		logger.F("tasks_purged", result.Tasks.Purged),
		logger.F("files", result.Projects.Files+result.Tasks.Files),
		logger.F("duration_ms", result.Duration.Milliseconds()),
	}
	if result.Err != nil {
		s.log.Error("sweep finished with errors", append(fields, logger.Err(result.Err))...)
		return
	}
	if result.Projects.Purged+result.Tasks.Purged > 0 {
		s.log.Info("sweep purged expired items", fields...)
		return
	}
	s.log.Debug("sweep found nothing to purge", fields...)
}
