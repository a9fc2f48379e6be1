// Package sweeper periodically purges expired refresh tokens.
package sweeper

import (
	"context"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/shelfkeeper/internal/timex"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sweptTokens = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shelfkeeper_refresh_tokens_swept_total",
		Help: "Expired refresh tokens removed by the sweeper",
	})
	sweepFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shelfkeeper_refresh_token_sweep_failures_total",
		Help: "Sweeper passes that failed",
	})
)

type Sweeper struct {
	repo     refreshtokens.Repository
	interval time.Duration
	timeout  time.Duration
	now      timex.Clock
	logger   logging.Logger
}

// New returns a Sweeper firing every interval. timeout bounds a single pass.
func New(repo refreshtokens.Repository, interval, timeout time.Duration, now timex.Clock, logger logging.Logger) *Sweeper {
	if now == nil {
		now = time.Now
	}
	return &Sweeper{
		repo:     repo,
		interval: interval,
		timeout:  timeout,
		now:      now,
		logger:   logger.With("module", "sweeper"),
	}
}

// Sweep deletes every refresh token whose expiry is before now and reports
// how many went. Tokens expiring exactly now are kept for the next pass.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		sweepFailures.Inc()
		return 0, err
	}
	sweptTokens.Add(float64(n))
	return n, nil
}

// Run sweeps once at start and then every interval until ctx is done. A
// failed pass is logged and the next tick tries again.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info(ctx, "sweeper started", "interval", s.interval.String())
	s.pass(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "sweeper stopped")
			return
		case <-ticker.C:
			s.pass(ctx)
		}
	}
}

func (s *Sweeper) pass(ctx context.Context) {
	n, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Error(ctx, "error sweeping expired refresh tokens", "error", err)
		return
	}
	s.logger.Info(ctx, "swept expired refresh tokens", "deleted", n)
}
