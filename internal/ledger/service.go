package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"headshotpro/internal/domain"
	"headshotpro/internal/infra"
	"headshotpro/internal/metrics"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100

	signupDescription = "Welcome bonus for signing up"
)

// GrantRequest adds credits to a user's account.
type GrantRequest struct {
	UserID      string
	Amount      int64
	Type        domain.TransactionType
	ReferenceID string
	Description string
}

// DeductRequest spends credits.
type DeductRequest struct {
	UserID      string
	Amount      int64
	ReferenceID string
	Description string
}

// Balance is the read model for a user's account. Missing accounts read as zero.
type Balance struct {
	Balance     int64 `json:"balance"`
	TotalEarned int64 `json:"totalEarned"`
	TotalSpent  int64 `json:"totalSpent"`
}

// Options configures a Service.
type Options struct {
	Store              domain.CreditRepository
	Logger             *infra.Logger
	SignupBonusCredits int64
}

// Service is the credits ledger.
type Service struct {
	store       domain.CreditRepository
	log         infra.Logger
	signupBonus int64
}

func NewService(opts Options) *Service {
	bonus := opts.SignupBonusCredits
	if bonus <= 0 {
		bonus = 2
	}
	return &Service{
		store:       opts.Store,
		log:         infra.LoggerOrDiscard(opts.Logger),
		signupBonus: bonus,
	}
}

// Grant appends a positive transaction and raises the balance. A reused
// reference id for the same user yields domain.ErrDuplicateReference and no
// change.
func (s *Service) Grant(ctx context.Context, req GrantRequest) (domain.CreditReceipt, error) {
	if req.Amount <= 0 {
		return domain.CreditReceipt{}, domain.ErrInvalidAmount
	}
	if strings.TrimSpace(req.UserID) == "" {
		return domain.CreditReceipt{}, fmt.Errorf("%w: user id required", domain.ErrInvalidInput)
	}
	if req.Type == "" {
		req.Type = domain.TransactionPaymentRefill
	}
	receipt, err := s.store.Grant(ctx, domain.CreditGrant{
		UserID:      req.UserID,
		Amount:      req.Amount,
		Type:        req.Type,
		ReferenceID: req.ReferenceID,
		Description: req.Description,
	})
	if err != nil {
		metrics.LedgerOperations.WithLabelValues("grant", resultLabel(err)).Inc()
		return domain.CreditReceipt{}, err
	}
	metrics.LedgerOperations.WithLabelValues("grant", "ok").Inc()
	s.log.Info().
		Str("user_id", req.UserID).
		Int64("amount", req.Amount).
		Str("type", string(req.Type)).
		Str("reference_id", req.ReferenceID).
		Int64("balance", receipt.Balance).
		Msg("ledger: credits granted")
	return receipt, nil
}

// Deduct spends credits. The balance check and the update happen in one
// atomic store operation.
func (s *Service) Deduct(ctx context.Context, req DeductRequest) (domain.CreditReceipt, error) {
	if req.Amount <= 0 {
		return domain.CreditReceipt{}, domain.ErrInvalidAmount
	}
	receipt, err := s.store.Debit(ctx, domain.CreditDebit{
		UserID:      req.UserID,
		Amount:      req.Amount,
		ReferenceID: req.ReferenceID,
		Description: req.Description,
	})
	if err != nil {
		metrics.LedgerOperations.WithLabelValues("deduct", resultLabel(err)).Inc()
		return domain.CreditReceipt{}, err
	}
	metrics.LedgerOperations.WithLabelValues("deduct", "ok").Inc()
	s.log.Info().
		Str("user_id", req.UserID).
		Int64("amount", req.Amount).
		Str("reference_id", req.ReferenceID).
		Int64("balance", receipt.Balance).
		Msg("ledger: credits deducted")
	return receipt, nil
}

func (s *Service) HasReferenceBeenUsed(ctx context.Context, userID, referenceID string) (bool, error) {
	return s.store.ReferenceExists(ctx, userID, referenceID)
}

// GetBalance returns the user's balance, zeros when no account exists yet.
func (s *Service) GetBalance(ctx context.Context, userID string) (Balance, error) {
	acct, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Balance{}, nil
		}
		return Balance{}, err
	}
	return Balance{Balance: acct.Balance, TotalEarned: acct.TotalEarned, TotalSpent: acct.TotalSpent}, nil
}

// GetHistory returns the newest transactions first.
func (s *Service) GetHistory(ctx context.Context, userID string, limit int) ([]domain.CreditTransaction, error) {
	return s.store.ListTransactions(ctx, userID, clampLimit(limit))
}

// GrantSignupBonus grants the welcome credits once per user. A repeat call
// reports granted=false without error.
func (s *Service) GrantSignupBonus(ctx context.Context, userID string) (bool, error) {
	ref := "signup_" + userID
	used, err := s.store.ReferenceExists(ctx, userID, ref)
	if err != nil {
		return false, err
	}
	if used {
		return false, nil
	}
	_, err = s.Grant(ctx, GrantRequest{
		UserID:      userID,
		Amount:      s.signupBonus,
		Type:        domain.TransactionSignupBonus,
		ReferenceID: ref,
		Description: signupDescription,
	})
	if errors.Is(err, domain.ErrDuplicateReference) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GrantPurchase credits a completed payment for a pricing tier. One-time
// tiers are written under a per-user reference, so the store's
// (user, reference) uniqueness rejects a second purchase even when two
// payments race.
func (s *Service) GrantPurchase(ctx context.Context, userID, tierID, paymentID string) (domain.CreditReceipt, error) {
	tier, ok := LookupTier(tierID)
	if !ok {
		return domain.CreditReceipt{}, domain.ErrUnknownTier
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return domain.CreditReceipt{}, fmt.Errorf("%w: payment id required", domain.ErrInvalidInput)
	}
	req := GrantRequest{
		UserID:      userID,
		Amount:      tier.Credits,
		Type:        domain.TransactionPaymentRefill,
		ReferenceID: "payment_" + paymentID,
		Description: tier.Description(),
	}
	if tier.OneTime {
		req.ReferenceID = tier.Reference(userID)
		req.Description = fmt.Sprintf("%s (payment %s)", tier.Description(), paymentID)
	}
	receipt, err := s.Grant(ctx, req)
	if tier.OneTime && errors.Is(err, domain.ErrDuplicateReference) {
		return domain.CreditReceipt{}, domain.ErrTrialerAlreadyPurchased
	}
	return receipt, err
}

// HasTrialerBeenPurchased reports whether the user already bought the trial pack.
func (s *Service) HasTrialerBeenPurchased(ctx context.Context, userID string) (bool, error) {
	tier, _ := LookupTier(TierTrialer)
	return s.store.ReferenceExists(ctx, userID, tier.Reference(userID))
}

// Refund returns the credits spent on a failed generation. It is safe to call
// more than once per job.
func (s *Service) Refund(ctx context.Context, userID, jobID string, amount int64) (bool, error) {
	_, err := s.Grant(ctx, GrantRequest{
		UserID:      userID,
		Amount:      amount,
		Type:        domain.TransactionGenerationRefund,
		ReferenceID: "refund_" + jobID,
		Description: "Refund for failed generation " + jobID,
	})
	if errors.Is(err, domain.ErrDuplicateReference) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultHistoryLimit
	case limit > maxHistoryLimit:
		return maxHistoryLimit
	default:
		return limit
	}
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientCredits):
		return "insufficient"
	case errors.Is(err, domain.ErrDuplicateReference):
		return "duplicate"
	default:
		return "error"
	}
}
