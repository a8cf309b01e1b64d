package domain

import (
	"context"
	"time"
)

// GenerationRepository persists generation jobs.
type GenerationRepository interface {
	Create(ctx context.Context, gen *Generation) error
	// Complete and Fail only touch rows still in processing. They report
	// whether a row transitioned.
	Complete(ctx context.Context, id, outputImageURL string) (bool, error)
	Fail(ctx context.Context, id, errMsg string) (bool, error)
	GetByID(ctx context.Context, id string) (*Generation, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Generation, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	// ExpireStale fails processing rows created before cutoff and returns them.
	ExpireStale(ctx context.Context, cutoff time.Time, errMsg string) ([]Generation, error)
}

// UserRepository persists identities resolved by the auth collaborator.
type UserRepository interface {
	UpsertByGoogleSub(ctx context.Context, user *User) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}

// CreditRepository is the ledger store. Grant and Debit each append exactly
// one transaction together with the account mutation, or change nothing.
type CreditRepository interface {
	// Grant returns ErrDuplicateReference when the user already has a
	// transaction with the same non-empty reference id.
	Grant(ctx context.Context, grant CreditGrant) (CreditReceipt, error)
	// Debit returns ErrInsufficientCredits when the balance does not cover
	// the amount; the check and the update are a single atomic step.
	Debit(ctx context.Context, debit CreditDebit) (CreditReceipt, error)
	GetAccount(ctx context.Context, userID string) (*CreditAccount, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]CreditTransaction, error)
	ReferenceExists(ctx context.Context, userID, referenceID string) (bool, error)
}
