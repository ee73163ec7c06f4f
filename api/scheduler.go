/*
scheduler.go - Expired token sweeper

PURPOSE:
  Periodically deletes API tokens past their expiry. Resolve already rejects
  and deletes an expired token when it is presented; the sweeper removes the
  ones nobody presents again.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Sweeps once immediately on Start
  - Stop waits for an in-flight sweep to finish

CONFIGURATION:
  - Interval: How often to sweep (default: 1 hour, config auth.sweep_interval)

USAGE:
  sweeper := NewTokenSweeper(handler.Auth(), logger, time.Hour)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - auth/service.go: PurgeExpiredTokens
  - cmd/server/main.go: lifecycle
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepInterval is used when NewTokenSweeper gets a non-positive interval.
const DefaultSweepInterval = time.Hour

// TokenPurger deletes expired tokens.
type TokenPurger interface {
	PurgeExpiredTokens(ctx context.Context) (int, error)
}

// TokenSweeper purges expired tokens on a ticker.
type TokenSweeper struct {
	Purger   TokenPurger
	Interval time.Duration

	logger *slog.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewTokenSweeper creates a sweeper. Call Start to run it.
func NewTokenSweeper(purger TokenPurger, logger *slog.Logger, interval time.Duration) *TokenSweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &TokenSweeper{
		Purger:   purger,
		Interval: interval,
		logger:   logger,
	}
}

// Start begins sweeping. Calling Start twice is a no-op.
func (s *TokenSweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		return
	}
	s.ticker = time.NewTicker(s.Interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run(s.ticker, s.stop)

	s.logger.Info("token sweeper started", "interval", s.Interval)
}

// Stop stops the sweeper and waits for the current sweep.
func (s *TokenSweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.logger.Info("token sweeper stopped")
}

func (s *TokenSweeper) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-stop:
			return
		}
	}
}

// Sweep runs one purge and returns the number of tokens removed.
func (s *TokenSweeper) Sweep(ctx context.Context) int {
	n, err := s.Purger.PurgeExpiredTokens(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "token sweep failed", "error", err)
		return 0
	}
	return n
}
