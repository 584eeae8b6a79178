// Package scheduler drives discovery strategies in a polling loop.
//
// One goroutine runs the loop and issues every request. Progress leaves the
// loop as Reports on a buffered channel that a display sink drains. Between
// rounds the loop sleeps a jittered interval in one-tick slices so Stop and
// context cancellation take effect within a tick.
package scheduler

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"hermes/pkg/backoff"
	"hermes/pkg/discovery"
	"hermes/pkg/errors"
	"hermes/pkg/gateway"
	"hermes/pkg/logger"
	"hermes/pkg/models"
	"hermes/pkg/storage"
)

// ErrAlreadyRunning is returned when Run is called on a running scheduler
var ErrAlreadyRunning = stderrors.New("scheduler is already running")

const reportBuffer = 256

// StatsSource exposes the gateway's monotonic counters
type StatsSource interface {
	Stats() gateway.Stats
}

// Options tunes the loop timing
type Options struct {
	// Interval is the nominal pause between rounds
	Interval time.Duration
	// JitterFactor spreads Interval to [Interval·(1-f), Interval·(1+f)]
	JitterFactor float64
	// Tick bounds how long a stop request can go unnoticed while sleeping
	Tick time.Duration

	KeywordPauseMin time.Duration
	KeywordPauseMax time.Duration
}

// DefaultOptions returns a one minute interval with ±20% jitter, a one second
// tick and a 5-10s pause between keywords
func DefaultOptions() Options {
	return Options{
		Interval:        60 * time.Second,
		JitterFactor:    0.2,
		Tick:            time.Second,
		KeywordPauseMin: 5 * time.Second,
		KeywordPauseMax: 10 * time.Second,
	}
}

// RoundFunc executes one round. It hands every strategy result to collect.
type RoundFunc func(ctx context.Context, collect func(source string, r discovery.Round)) error

// Scheduler runs rounds until stopped
type Scheduler struct {
	gateway StatsSource
	store   *discovery.Store
	backend storage.Backend
	opts    Options
	logger  logger.Logger

	reports   chan Report
	closeOnce sync.Once

	running atomic.Bool

	mu       sync.Mutex
	stats    models.RunStatistics
	baseline gateway.Stats
	now      func() time.Time
}

// New creates a scheduler. backend may be nil, in which case nothing is persisted.
func New(gw StatsSource, store *discovery.Store, backend storage.Backend, opts Options, log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.WithComponent("scheduler")
	}
	defaults := DefaultOptions()
	if opts.Interval <= 0 {
		opts.Interval = defaults.Interval
	}
	if opts.JitterFactor < 0 || opts.JitterFactor >= 1 {
		opts.JitterFactor = defaults.JitterFactor
	}
	if opts.Tick <= 0 {
		opts.Tick = defaults.Tick
	}
	if opts.KeywordPauseMax < opts.KeywordPauseMin {
		opts.KeywordPauseMax = opts.KeywordPauseMin
	}

	return &Scheduler{
		gateway: gw,
		store:   store,
		backend: backend,
		opts:    opts,
		logger:  log,
		reports: make(chan Report, reportBuffer),
		now:     time.Now,
	}
}

// Reports returns the channel the display sink reads from
func (s *Scheduler) Reports() <-chan Report {
	return s.reports
}

// Close closes the reports channel. Call it once no run is active.
func (s *Scheduler) Close() {
	s.closeOnce.Do(func() { close(s.reports) })
}

// Running reports whether a run is in progress
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Stop asks the active run to finish. The loop notices within one tick.
func (s *Scheduler) Stop() {
	s.running.Store(false)
}

// Stats returns the counters of the current or last run
func (s *Scheduler) Stats() models.RunStatistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked()
}

// Run drives round until ctx is done, Stop is called, or the round fails.
// It flushes the store once on the way out and returns the final counters.
func (s *Scheduler) Run(ctx context.Context, name string, round RoundFunc) (models.RunStatistics, error) {
	if !s.running.CompareAndSwap(false, true) {
		return models.RunStatistics{}, ErrAlreadyRunning
	}
	defer s.running.Store(false)

	s.startRun(name)
	log := s.logger.WithField("run_id", s.Stats().RunID)
	logger.LogComponentStart("scheduler", map[string]interface{}{
		"strategy": name,
		"interval": s.opts.Interval.String(),
	})

	reason := "stopped"
	defer func() {
		s.finishRun(ctx)
		logger.LogComponentStop("scheduler", reason)
	}()

	jitter := backoff.Jittered{Interval: s.opts.Interval, Factor: s.opts.JitterFactor}

	for s.running.Load() {
		s.emit(Report{Kind: KindStatus, Source: name, Message: fmt.Sprintf("Checking %s", name)})

		err := s.runRound(ctx, round)
		if ctx.Err() != nil {
			s.logInterrupted(ctx, log)
			reason = "interrupted"
			break
		}
		if err != nil {
			log.WithError(err).Error("Error during monitoring")
			reason = "error"
			break
		}

		stats := s.Stats()
		s.emit(Report{Kind: KindStats, Source: name, Stats: stats})
		logger.LogMetrics(name, map[string]interface{}{
			"candidates_examined": stats.CandidatesExamined,
			"known":               stats.KnownCount,
			"requests_per_minute": fmt.Sprintf("%.1f", stats.RequestsPerMinute(s.now())),
		})

		delay := jitter.NextDelay()
		s.emit(Report{Kind: KindStatus, Source: name, Message: fmt.Sprintf("Waiting %.1f seconds before next check", delay.Seconds()), NextIn: delay})
		if !backoff.WaitInSteps(ctx, delay, s.opts.Tick, s.running.Load) {
			if ctx.Err() != nil {
				s.logInterrupted(ctx, log)
				reason = "interrupted"
			}
			break
		}
	}

	return s.Stats(), nil
}

func (s *Scheduler) logInterrupted(ctx context.Context, log logger.Logger) {
	err := errors.Wrap(errors.ErrorTypeInterrupted, 0, "monitoring cancelled", ctx.Err())
	log.WithError(err).Warn("Monitoring stopped by user")
}

// RunOnce executes a single round with the same reporting and flushing as Run
func (s *Scheduler) RunOnce(ctx context.Context, name string, round RoundFunc) (models.RunStatistics, error) {
	if !s.running.CompareAndSwap(false, true) {
		return models.RunStatistics{}, ErrAlreadyRunning
	}
	defer s.running.Store(false)

	s.startRun(name)
	err := s.runRound(ctx, round)
	if err != nil && ctx.Err() == nil {
		s.logger.WithError(err).Error("Round failed")
	}

	stats := s.Stats()
	s.emit(Report{Kind: KindStats, Source: name, Stats: stats})
	s.finishRun(ctx)
	return s.Stats(), err
}

// StrategyRound adapts a single strategy into a round
func StrategyRound(strategy discovery.Strategy) RoundFunc {
	return func(ctx context.Context, collect func(string, discovery.Round)) error {
		collect(strategy.Name(), strategy.Discover(ctx))
		return nil
	}
}

// KeywordRound runs one search per strategy, pausing between searches. Results
// are collected per keyword so new accounts are reported and flushed right away.
func (s *Scheduler) KeywordRound(strategies []discovery.Strategy) RoundFunc {
	pause := backoff.Uniform{Min: s.opts.KeywordPauseMin, Max: s.opts.KeywordPauseMax}

	return func(ctx context.Context, collect func(string, discovery.Round)) error {
		for i, strategy := range strategies {
			if !s.running.Load() || ctx.Err() != nil {
				return ctx.Err()
			}

			s.emit(Report{Kind: KindStatus, Source: strategy.Name(), Message: fmt.Sprintf("Searching for %s", strategy.Name())})
			collect(strategy.Name(), strategy.Discover(ctx))

			if i < len(strategies)-1 {
				if !backoff.WaitInSteps(ctx, pause.NextDelay(), s.opts.Tick, s.running.Load) {
					return ctx.Err()
				}
			}
		}
		return nil
	}
}

// runRound invokes round, turning a panic into an error
func (s *Scheduler) runRound(ctx context.Context, round RoundFunc) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.New(errors.ErrorTypeUnknown, 0, fmt.Sprintf("round panicked: %v", rec))
		}
	}()
	return round(ctx, func(source string, r discovery.Round) {
		s.collect(ctx, source, r)
	})
}

func (s *Scheduler) collect(ctx context.Context, source string, r discovery.Round) {
	s.mu.Lock()
	s.stats.CandidatesExamined += r.Examined
	s.stats.Found += len(r.Found)
	s.mu.Unlock()

	if len(r.Found) == 0 {
		return
	}

	s.logger.InfoWithFields(fmt.Sprintf("Found %d new target usernames", len(r.Found)), map[string]interface{}{
		"source": source,
	})
	s.emit(Report{Kind: KindFound, Source: source, Accounts: r.Found, Stats: s.Stats()})
	s.flush(ctx)
}

func (s *Scheduler) startRun(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gateway != nil {
		s.baseline = s.gateway.Stats()
	}
	s.stats = models.RunStatistics{
		RunID:     uuid.NewString(),
		Strategy:  name,
		StartedAt: s.now(),
	}
}

// refreshLocked folds the gateway counters into the run stats
func (s *Scheduler) refreshLocked() models.RunStatistics {
	if s.gateway != nil {
		cur := s.gateway.Stats()
		s.stats.RequestsSent = cur.Requests - s.baseline.Requests
		s.stats.RateLimitHits = cur.RateLimitHits - s.baseline.RateLimitHits
	}
	if s.store != nil {
		s.stats.KnownCount = s.store.Len()
	}
	return s.stats
}

func (s *Scheduler) finishRun(ctx context.Context) {
	s.flush(ctx)

	recorder, ok := s.backend.(storage.RunRecorder)
	if !ok {
		return
	}
	if err := recorder.RecordRun(context.WithoutCancel(ctx), s.Stats()); err != nil {
		s.logger.WithError(err).Warn("Failed to record run")
	}
}

// flush writes the store. It runs even after ctx is cancelled.
func (s *Scheduler) flush(ctx context.Context) {
	if s.backend == nil || s.store == nil {
		return
	}
	if err := s.backend.Save(context.WithoutCancel(ctx), s.store.Snapshot()); err != nil {
		s.logger.WithError(err).Error("Failed to save results")
	}
}

func (s *Scheduler) emit(r Report) {
	if r.Time.IsZero() {
		r.Time = s.now()
	}
	select {
	case s.reports <- r:
	default:
		s.logger.Debug("Report queue full, dropping report")
	}
}
