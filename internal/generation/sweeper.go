package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"headshotpro/internal/domain"
	"headshotpro/internal/infra"
	"headshotpro/internal/metrics"
)

const defaultSweepSchedule = "0 * * * * *"

// SweeperOptions wires a Sweeper.
type SweeperOptions struct {
	Jobs       domain.GenerationRepository
	Finisher   *Finisher
	StaleAfter time.Duration
	Schedule   string
	Logger     *infra.Logger
	Now        func() time.Time
}

// Sweeper periodically fails jobs stuck in processing past the staleness
// bound and refunds them.
type Sweeper struct {
	jobs       domain.GenerationRepository
	finisher   *Finisher
	staleAfter time.Duration
	log        infra.Logger
	now        func() time.Time
	cron       *cron.Cron
}

func NewSweeper(opts SweeperOptions) (*Sweeper, error) {
	if opts.StaleAfter <= 0 {
		return nil, fmt.Errorf("sweeper: stale-after must be positive")
	}
	schedule := opts.Schedule
	if schedule == "" {
		schedule = defaultSweepSchedule
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &Sweeper{
		jobs:       opts.Jobs,
		finisher:   opts.Finisher,
		staleAfter: opts.StaleAfter,
		log:        infra.LoggerOrDiscard(opts.Logger),
		now:        now,
		cron:       cron.New(cron.WithSeconds()),
	}
	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("sweeper: schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
	s.log.Info().Dur("stale_after", s.staleAfter).Msg("sweeper: started")
}

// Stop halts scheduling and returns a context done when a running sweep ends.
func (s *Sweeper) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Sweeper) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := s.Sweep(ctx); err != nil {
		s.log.Error().Err(err).Msg("sweeper: sweep failed")
	}
}

// Sweep fails every processing job older than the staleness bound and
// refunds it. It returns how many jobs expired.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.staleAfter)
	expired, err := s.jobs.ExpireStale(ctx, cutoff, domain.ExpiredMessage)
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}
	metrics.StaleJobsExpired.Add(float64(len(expired)))
	if s.finisher != nil {
		s.finisher.Expired(ctx, expired)
	}
	s.log.Info().Int("expired", len(expired)).Time("cutoff", cutoff).Msg("sweeper: stale generations expired")
	return len(expired), nil
}
