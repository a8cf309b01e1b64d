package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"headshotpro/internal/domain"
)

// MemoryStore is an in-process domain.CreditRepository. It enforces the same
// guards as the PostgreSQL store: a non-negative balance and one transaction
// per (user, reference id).
type MemoryStore struct {
	mu sync.RWMutex

	accounts     map[string]*domain.CreditAccount
	transactions []domain.CreditTransaction
	references   map[string]struct{}

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:   make(map[string]*domain.CreditAccount),
		references: make(map[string]struct{}),
		now:        time.Now,
	}
}

func referenceKey(userID, referenceID string) string {
	return userID + "\x00" + referenceID
}

func (s *MemoryStore) Grant(_ context.Context, grant domain.CreditGrant) (domain.CreditReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if grant.ReferenceID != "" {
		if _, dup := s.references[referenceKey(grant.UserID, grant.ReferenceID)]; dup {
			return domain.CreditReceipt{}, domain.ErrDuplicateReference
		}
	}
	now := s.now()
	acct, ok := s.accounts[grant.UserID]
	if !ok {
		acct = &domain.CreditAccount{UserID: grant.UserID, CreatedAt: now}
		s.accounts[grant.UserID] = acct
	}
	acct.Balance += grant.Amount
	acct.TotalEarned += grant.Amount
	acct.UpdatedAt = now

	tx := s.appendLocked(grant.UserID, grant.Amount, grant.Type, grant.ReferenceID, grant.Description, now)
	return domain.CreditReceipt{Transaction: tx, Balance: acct.Balance}, nil
}

func (s *MemoryStore) Debit(_ context.Context, debit domain.CreditDebit) (domain.CreditReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[debit.UserID]
	if !ok || acct.Balance < debit.Amount {
		return domain.CreditReceipt{}, domain.ErrInsufficientCredits
	}
	if debit.ReferenceID != "" {
		if _, dup := s.references[referenceKey(debit.UserID, debit.ReferenceID)]; dup {
			return domain.CreditReceipt{}, domain.ErrDuplicateReference
		}
	}
	now := s.now()
	acct.Balance -= debit.Amount
	acct.TotalSpent += debit.Amount
	acct.UpdatedAt = now

	tx := s.appendLocked(debit.UserID, -debit.Amount, domain.TransactionGenerationSpent, debit.ReferenceID, debit.Description, now)
	return domain.CreditReceipt{Transaction: tx, Balance: acct.Balance}, nil
}

func (s *MemoryStore) appendLocked(userID string, amount int64, txType domain.TransactionType, ref, desc string, at time.Time) domain.CreditTransaction {
	tx := domain.CreditTransaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      amount,
		Type:        txType,
		ReferenceID: ref,
		Description: desc,
		CreatedAt:   at,
	}
	s.transactions = append(s.transactions, tx)
	if ref != "" {
		s.references[referenceKey(userID, ref)] = struct{}{}
	}
	return tx
}

func (s *MemoryStore) GetAccount(_ context.Context, userID string) (*domain.CreditAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *acct
	return &cp, nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, userID string, limit int) ([]domain.CreditTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CreditTransaction, 0)
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if s.transactions[i].UserID == userID {
			out = append(out, s.transactions[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ReferenceExists(_ context.Context, userID, referenceID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.references[referenceKey(userID, referenceID)]
	return ok, nil
}

var _ domain.CreditRepository = (*MemoryStore)(nil)
