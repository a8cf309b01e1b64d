package generation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"headshotpro/internal/domain"
	"headshotpro/internal/infra"
	"headshotpro/internal/ledger"
	"headshotpro/internal/metrics"
	"headshotpro/internal/styles"
)

// Ledger is the slice of the credits ledger the orchestrator needs.
type Ledger interface {
	Deduct(ctx context.Context, req ledger.DeductRequest) (domain.CreditReceipt, error)
	Refund(ctx context.Context, userID, jobID string, amount int64) (bool, error)
}

// SubmitRequest is a user's request for one headshot.
type SubmitRequest struct {
	UserID        string
	InputImageURL string
	StyleID       string
	Provider      string
	Size          string
}

// Page is one page of a user's generations.
type Page struct {
	Items []StatusResult `json:"items"`
	Total int            `json:"total"`
}

// OrchestratorOptions wires an Orchestrator.
type OrchestratorOptions struct {
	Gateways        map[string]*Gateway
	DefaultProvider string
	Jobs            domain.GenerationRepository
	Ledger          Ledger
	Finisher        *Finisher
	Cost            int64
	StaleAfter      time.Duration
	Logger          *infra.Logger
	Now             func() time.Time
}

// Orchestrator validates submissions, charges credits, persists jobs and
// hands them to the provider gateway.
type Orchestrator struct {
	gateways        map[string]*Gateway
	defaultProvider string
	jobs            domain.GenerationRepository
	ledger          Ledger
	finisher        *Finisher
	cost            int64
	staleAfter      time.Duration
	log             infra.Logger
	now             func() time.Time
}

func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	cost := opts.Cost
	if cost <= 0 {
		cost = 1
	}
	return &Orchestrator{
		gateways:        opts.Gateways,
		defaultProvider: strings.ToLower(opts.DefaultProvider),
		jobs:            opts.Jobs,
		ledger:          opts.Ledger,
		finisher:        opts.Finisher,
		cost:            cost,
		staleAfter:      opts.StaleAfter,
		log:             infra.LoggerOrDiscard(opts.Logger),
		now:             now,
	}
}

// Providers lists the registered provider ids and whether each is configured.
func (o *Orchestrator) Providers() map[string]bool {
	out := make(map[string]bool, len(o.gateways))
	for id, gw := range o.gateways {
		out[id] = gw.IsConfigured()
	}
	return out
}

// Submit charges the user and starts a job. Rejections happen before any job
// row exists.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (Creation, error) {
	if err := validateImageURL(req.InputImageURL); err != nil {
		o.reject("invalid_input")
		return Creation{}, err
	}
	style, ok := styles.Lookup(req.StyleID)
	if !ok {
		o.reject("invalid_style")
		return Creation{}, domain.ErrInvalidStyle
	}
	providerID := strings.ToLower(strings.TrimSpace(req.Provider))
	if providerID == "" {
		providerID = o.defaultProvider
	}
	gw, ok := o.gateways[providerID]
	if !ok {
		o.reject("unknown_provider")
		return Creation{}, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, providerID)
	}
	if !gw.IsConfigured() {
		o.reject("not_configured")
		return Creation{}, domain.ErrProviderNotConfigured
	}

	mode := domain.ModeFor(req.InputImageURL)
	jobID := NewJobID(providerID, mode, o.now())

	if _, err := o.ledger.Deduct(ctx, ledger.DeductRequest{
		UserID:      req.UserID,
		Amount:      o.cost,
		ReferenceID: "generation_" + jobID,
		Description: fmt.Sprintf("Headshot generation (%s)", style.Name),
	}); err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			o.reject("insufficient_credits")
		}
		return Creation{}, err
	}

	gen := &domain.Generation{
		ID:            jobID,
		UserID:        req.UserID,
		Provider:      providerID,
		Status:        domain.GenerationProcessing,
		InputImageURL: req.InputImageURL,
		Prompt:        style.AIPrompt,
		StyleID:       style.ID,
	}
	if err := o.jobs.Create(ctx, gen); err != nil {
		if _, rerr := o.ledger.Refund(ctx, req.UserID, jobID, o.cost); rerr != nil {
			o.log.Error().Err(rerr).Str("job_id", jobID).Msg("generation: refund after create failure failed")
		}
		return Creation{}, err
	}

	extras := map[string]any{"jobId": jobID}
	if req.Size != "" {
		extras["size"] = req.Size
	}
	created, err := gw.CreateGeneration(ctx, GenerateInput{
		InputImageURL: req.InputImageURL,
		Prompt:        style.AIPrompt,
		StyleID:       style.ID,
		UserID:        req.UserID,
		Extras:        extras,
	})
	if err != nil {
		o.finisher.Fail(Ticket{JobID: jobID, UserID: req.UserID, Provider: providerID, Mode: mode}, err.Error())
		return Creation{}, err
	}

	metrics.GenerationsSubmitted.WithLabelValues(providerID, string(mode)).Inc()
	o.log.Info().
		Str("job_id", created.JobID).
		Str("user_id", req.UserID).
		Str("style_id", style.ID).
		Str("provider", providerID).
		Msg("generation: job submitted")
	return created, nil
}

// Status reports a job as seen by userID. Jobs owned by someone else read as
// unknown.
func (o *Orchestrator) Status(ctx context.Context, userID, jobID string) (StatusResult, error) {
	gw := o.anyGateway()
	if gw == nil {
		return StatusResult{}, domain.ErrProviderNotConfigured
	}
	res, err := gw.GetGenerationStatus(ctx, jobID)
	if err != nil {
		return StatusResult{}, err
	}
	if res.UserID != "" && res.UserID != userID {
		return StatusResult{JobID: jobID, Status: domain.GenerationPending}, nil
	}
	return res, nil
}

// Cancel is accepted for any id.
func (o *Orchestrator) Cancel(ctx context.Context, jobID string) bool {
	gw := o.anyGateway()
	if gw == nil {
		return true
	}
	return gw.CancelGeneration(ctx, jobID)
}

// List returns the user's generations newest first with the total count.
func (o *Orchestrator) List(ctx context.Context, userID string, limit, offset int) (Page, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	gens, err := o.jobs.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return Page{}, err
	}
	total, err := o.jobs.CountByUser(ctx, userID)
	if err != nil {
		return Page{}, err
	}
	now := o.now()
	items := make([]StatusResult, 0, len(gens))
	for _, g := range gens {
		items = append(items, toStatus(g.Effective(now, o.staleAfter)))
	}
	return Page{Items: items, Total: total}, nil
}

// Wait blocks until all detached runs have finished or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context) error {
	for _, gw := range o.gateways {
		if err := gw.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) anyGateway() *Gateway {
	if gw, ok := o.gateways[o.defaultProvider]; ok {
		return gw
	}
	ids := make([]string, 0, len(o.gateways))
	for id := range o.gateways {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}
	sort.Strings(ids)
	return o.gateways[ids[0]]
}

func (o *Orchestrator) reject(reason string) {
	metrics.GenerationsRejected.WithLabelValues(reason).Inc()
}

func validateImageURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: inputImageUrl must be an absolute http(s) URL", domain.ErrInvalidInput)
	}
	return nil
}
