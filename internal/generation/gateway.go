package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"headshotpro/internal/domain"
	"headshotpro/internal/infra"
	"headshotpro/internal/metrics"
)

const defaultProviderTimeout = 30 * time.Second

// Creation is returned as soon as a job is accepted.
type Creation struct {
	JobID  string                  `json:"jobId"`
	Status domain.GenerationStatus `json:"status"`
}

// StatusResult is the observable state of a job.
type StatusResult struct {
	JobID    string                  `json:"id"`
	Status   domain.GenerationStatus `json:"status"`
	ImageURL string                  `json:"imageUrl,omitempty"`
	Error    string                  `json:"error,omitempty"`
	Provider string                  `json:"provider,omitempty"`
	UserID   string                  `json:"-"`
}

// GatewayOptions wires a Gateway around one backend.
type GatewayOptions struct {
	Provider   Provider
	Jobs       domain.GenerationRepository
	Finisher   *Finisher
	Timeout    time.Duration
	StaleAfter time.Duration
	Logger     *infra.Logger
	Now        func() time.Time
}

// Gateway adapts a synchronous Provider to the asynchronous job contract:
// creation returns at once and the work runs in a detached goroutine whose
// outcome is written to the job store.
type Gateway struct {
	provider   Provider
	jobs       domain.GenerationRepository
	finisher   *Finisher
	timeout    time.Duration
	staleAfter time.Duration
	log        infra.Logger
	now        func() time.Time

	wg sync.WaitGroup
}

func NewGateway(opts GatewayOptions) *Gateway {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Gateway{
		provider:   opts.Provider,
		jobs:       opts.Jobs,
		finisher:   opts.Finisher,
		timeout:    timeout,
		staleAfter: opts.StaleAfter,
		log:        infra.LoggerOrDiscard(opts.Logger),
		now:        now,
	}
}

func (g *Gateway) ProviderID() string { return g.provider.ID() }

func (g *Gateway) IsConfigured() bool { return g.provider.IsConfigured() }

// NewJobID builds {provider}_{mode}_{unixMillis}_{random}.
func NewJobID(provider string, mode domain.GenerationMode, at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s_%s_%d_%s", provider, mode, at.UnixMilli(), suffix)
}

// CreateGeneration starts a detached run and returns immediately. The job id
// comes from Extras["jobId"] when set. The caller owns the job row.
func (g *Gateway) CreateGeneration(ctx context.Context, in GenerateInput) (Creation, error) {
	if !g.IsConfigured() {
		return Creation{}, domain.ErrProviderNotConfigured
	}
	mode := in.Mode()
	jobID := in.Extra("jobId")
	if jobID == "" {
		jobID = NewJobID(g.provider.ID(), mode, g.now())
	}
	t := Ticket{JobID: jobID, UserID: in.UserID, Provider: g.provider.ID(), Mode: mode}

	g.wg.Add(1)
	go g.run(t, in)

	g.log.Info().Str("job_id", jobID).Str("provider", t.Provider).Str("mode", string(mode)).Msg("generation: job started")
	return Creation{JobID: jobID, Status: domain.GenerationProcessing}, nil
}

func (g *Gateway) run(t Ticket, in GenerateInput) {
	defer g.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			g.log.Error().Interface("panic", r).Str("job_id", t.JobID).Msg("generation: provider panic")
			g.finisher.Fail(t, unexpectedErrorMessage)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	start := time.Now()
	out, err := g.provider.Generate(ctx, in)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.ProviderLatency.WithLabelValues(t.Provider, string(t.Mode), outcome).Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		g.finisher.Fail(t, fmt.Sprintf("%s: generation timed out after %s", t.Provider, g.timeout))
	case err != nil:
		g.finisher.Fail(t, err.Error())
	case strings.TrimSpace(out.ImageURL) == "":
		g.finisher.Fail(t, t.Provider+": no image in response")
	default:
		g.finisher.Succeed(t, out.ImageURL)
	}
}

// Wait blocks until every detached run started by this gateway has finished
// or ctx is done.
func (g *Gateway) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetGenerationStatus reads the job store. It never calls the backend. An id
// the store does not know is reported as pending.
func (g *Gateway) GetGenerationStatus(ctx context.Context, jobID string) (StatusResult, error) {
	gen, err := g.jobs.GetByID(ctx, jobID)
	if errors.Is(err, domain.ErrNotFound) {
		return StatusResult{JobID: jobID, Status: domain.GenerationPending}, nil
	}
	if err != nil {
		return StatusResult{}, err
	}
	return toStatus(gen.Effective(g.now(), g.staleAfter)), nil
}

// CancelGeneration is accepted for every id. Backends offer no cancellation,
// so a running job still reaches its terminal state.
func (g *Gateway) CancelGeneration(ctx context.Context, jobID string) bool {
	g.log.Debug().Str("job_id", jobID).Msg("generation: cancel requested")
	return true
}

func toStatus(gen domain.Generation) StatusResult {
	res := StatusResult{
		JobID:    gen.ID,
		Status:   gen.Status,
		Provider: gen.Provider,
		UserID:   gen.UserID,
	}
	switch gen.Status {
	case domain.GenerationCompleted:
		res.ImageURL = gen.OutputImageURL
	case domain.GenerationFailed:
		res.Error = gen.Error
		if res.Error == "" {
			res.Error = "Generation failed"
		}
	}
	return res
}
