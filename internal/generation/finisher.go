package generation

import (
	"context"
	"time"

	"headshotpro/internal/domain"
	"headshotpro/internal/infra"
	"headshotpro/internal/metrics"
)

const (
	unexpectedErrorMessage = "unexpected error during generation"
	persistTimeout         = 10 * time.Second
	rehostTimeout          = 30 * time.Second
)

// Ticket identifies the job a detached run reports to.
type Ticket struct {
	JobID    string
	UserID   string
	Provider string
	Mode     domain.GenerationMode
}

// Rehoster copies a provider URL onto storage the service controls.
type Rehoster interface {
	Rehost(ctx context.Context, jobID, srcURL string) (string, error)
}

// Refunder returns credits spent on a job. It reports false when the job was
// already refunded.
type Refunder interface {
	Refund(ctx context.Context, userID, jobID string, amount int64) (bool, error)
}

// FinisherOptions wires a Finisher. Rehost and Refunds are optional.
type FinisherOptions struct {
	Jobs    domain.GenerationRepository
	Rehost  Rehoster
	Refunds Refunder
	Cost    int64
	Logger  *infra.Logger
}

// Finisher performs the single terminal write for a job.
type Finisher struct {
	jobs    domain.GenerationRepository
	rehost  Rehoster
	refunds Refunder
	cost    int64
	log     infra.Logger
}

func NewFinisher(opts FinisherOptions) *Finisher {
	return &Finisher{
		jobs:    opts.Jobs,
		rehost:  opts.Rehost,
		refunds: opts.Refunds,
		cost:    opts.Cost,
		log:     infra.LoggerOrDiscard(opts.Logger),
	}
}

// Succeed re-hosts the provider output and completes the job. A failed
// re-host keeps the provider URL.
func (f *Finisher) Succeed(t Ticket, providerURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout+rehostTimeout)
	defer cancel()
	defer f.recoverInto(t)

	finalURL := providerURL
	if f.rehost != nil {
		rctx, rcancel := context.WithTimeout(ctx, rehostTimeout)
		hosted, err := f.rehost.Rehost(rctx, t.JobID, providerURL)
		rcancel()
		switch {
		case err != nil:
			metrics.RehostOutcomes.WithLabelValues("fallback").Inc()
			f.log.Warn().Err(err).Str("job_id", t.JobID).Msg("generation: rehost failed, keeping provider url")
		case hosted == providerURL:
			metrics.RehostOutcomes.WithLabelValues("skipped").Inc()
		default:
			metrics.RehostOutcomes.WithLabelValues("stored").Inc()
			finalURL = hosted
		}
	}

	ok, err := f.jobs.Complete(ctx, t.JobID, finalURL)
	if err != nil {
		f.log.Error().Err(err).Str("job_id", t.JobID).Msg("generation: persist completion failed")
		return
	}
	if !ok {
		f.log.Info().Str("job_id", t.JobID).Msg("generation: job already terminal, completion ignored")
		return
	}
	metrics.GenerationsFinished.WithLabelValues(t.Provider, string(domain.GenerationCompleted)).Inc()
	f.log.Info().Str("job_id", t.JobID).Str("provider", t.Provider).Str("url", finalURL).Msg("generation: job completed")
}

// Fail marks the job failed and refunds its cost once.
func (f *Finisher) Fail(t Ticket, msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	ok, err := f.jobs.Fail(ctx, t.JobID, msg)
	if err != nil {
		f.log.Error().Err(err).Str("job_id", t.JobID).Msg("generation: persist failure failed")
		return
	}
	if !ok {
		f.log.Info().Str("job_id", t.JobID).Msg("generation: job already terminal, failure ignored")
		return
	}
	metrics.GenerationsFinished.WithLabelValues(t.Provider, string(domain.GenerationFailed)).Inc()
	f.log.Warn().Str("job_id", t.JobID).Str("provider", t.Provider).Str("error", msg).Msg("generation: job failed")
	f.refund(ctx, t.UserID, t.JobID)
}

// Expired refunds jobs the stale sweep has already failed.
func (f *Finisher) Expired(ctx context.Context, gens []domain.Generation) {
	for _, g := range gens {
		metrics.GenerationsFinished.WithLabelValues(g.Provider, string(domain.GenerationFailed)).Inc()
		f.log.Warn().Str("job_id", g.ID).Time("created_at", g.CreatedAt).Msg("generation: job expired")
		f.refund(ctx, g.UserID, g.ID)
	}
}

func (f *Finisher) refund(ctx context.Context, userID, jobID string) {
	if f.refunds == nil || f.cost <= 0 || userID == "" {
		return
	}
	refunded, err := f.refunds.Refund(ctx, userID, jobID, f.cost)
	if err != nil {
		f.log.Error().Err(err).Str("job_id", jobID).Msg("generation: refund failed")
		return
	}
	if refunded {
		f.log.Info().Str("job_id", jobID).Int64("amount", f.cost).Msg("generation: credits refunded")
	}
}

func (f *Finisher) recoverInto(t Ticket) {
	if r := recover(); r != nil {
		f.log.Error().Interface("panic", r).Str("job_id", t.JobID).Msg("generation: panic while finishing")
		f.Fail(t, unexpectedErrorMessage)
	}
}
