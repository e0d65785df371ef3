package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Purger deletes session rows that expired or were revoked before cutoff.
type Purger interface {
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

type Config struct {
	Interval  time.Duration
	Retention time.Duration
	// MaxBackoff bounds the wait after consecutive failed sweeps.
	MaxBackoff time.Duration
}

// Sweeper periodically clears dead sessions from a persistent session store.
type Sweeper struct {
	cfg   Config
	repo  Purger
	log   *slog.Logger
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, repo Purger, log *slog.Logger) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{
		cfg:   cfg,
		repo:  repo,
		log:   log,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// SweepOnce runs a single purge and returns the number of rows removed.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := s.now().UTC().Add(-s.cfg.Retention)
	return s.repo.Purge(cctx, cutoff)
}

// Run sweeps until ctx is cancelled. Failed sweeps back off exponentially.
func (s *Sweeper) Run(ctx context.Context) error {
	s.setReady(true)
	defer s.setReady(false)

	failures := 0
	for {
		n, err := s.SweepOnce(ctx)
		wait := s.cfg.Interval

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			wait = ExponentialBackoff(failures, 2*time.Second, s.cfg.MaxBackoff)
			failures++
			s.log.Error("session_sweep_failed", "err", err, "attempt", failures, "retry_in", wait.String())
		} else {
			failures = 0
			if n > 0 {
				s.log.Info("session_sweep", "purged", n)
			}
		}

		if !s.sleep(ctx, wait) {
			s.log.Info("sweeper received shutdown signal")
			return nil
		}
	}
}

func (s *Sweeper) Ready() bool {
	s.readyMu.RLock()
	defer s.readyMu.RUnlock()
	return s.ready
}

func (s *Sweeper) setReady(v bool) {
	s.readyMu.Lock()
	s.ready = v
	s.readyMu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
