package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"headshotpro/internal/domain"
	"headshotpro/internal/infra"
	"headshotpro/internal/sqlinline"
)

// CreditRepositoryPG implements domain.CreditRepository on PostgreSQL.
type CreditRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewCreditRepository creates a ledger store backed by PostgreSQL.
func NewCreditRepository(sql infra.SQLExecutor) *CreditRepositoryPG {
	return &CreditRepositoryPG{sql: sql}
}

func (r *CreditRepositoryPG) Grant(ctx context.Context, grant domain.CreditGrant) (domain.CreditReceipt, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QGrantCredits,
		grant.UserID,
		grant.Amount,
		string(grant.Type),
		grant.ReferenceID,
		grant.Description,
	)
	receipt, err := scanReceipt(row)
	if err != nil {
		if infra.IsUniqueViolation(err) {
			return domain.CreditReceipt{}, domain.ErrDuplicateReference
		}
		return domain.CreditReceipt{}, fmt.Errorf("grant credits: %w", err)
	}
	return receipt, nil
}

func (r *CreditRepositoryPG) Debit(ctx context.Context, debit domain.CreditDebit) (domain.CreditReceipt, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QDeductCredits,
		debit.UserID,
		debit.Amount,
		debit.ReferenceID,
		debit.Description,
	)
	receipt, err := scanReceipt(row)
	switch {
	case err == nil:
		return receipt, nil
	case infra.IsNoRows(err):
		return domain.CreditReceipt{}, domain.ErrInsufficientCredits
	case infra.IsUniqueViolation(err):
		return domain.CreditReceipt{}, domain.ErrDuplicateReference
	default:
		return domain.CreditReceipt{}, fmt.Errorf("deduct credits: %w", err)
	}
}

func (r *CreditRepositoryPG) GetAccount(ctx context.Context, userID string) (*domain.CreditAccount, error) {
	var acct domain.CreditAccount
	err := r.sql.QueryRow(ctx, sqlinline.QSelectCreditAccount, userID).Scan(
		&acct.UserID,
		&acct.Balance,
		&acct.TotalEarned,
		&acct.TotalSpent,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get credit account: %w", err)
	}
	return &acct, nil
}

func (r *CreditRepositoryPG) ListTransactions(ctx context.Context, userID string, limit int) ([]domain.CreditTransaction, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListCreditTransactions, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list credit transactions: %w", err)
	}
	defer rows.Close()
	var out []domain.CreditTransaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CreditRepositoryPG) ReferenceExists(ctx context.Context, userID, referenceID string) (bool, error) {
	var exists bool
	if err := r.sql.QueryRow(ctx, sqlinline.QCreditReferenceExists, userID, referenceID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check credit reference: %w", err)
	}
	return exists, nil
}

func scanTransaction(row pgx.Row) (domain.CreditTransaction, error) {
	var tx domain.CreditTransaction
	var txType string
	if err := row.Scan(&tx.ID, &tx.UserID, &tx.Amount, &txType, &tx.ReferenceID, &tx.Description, &tx.CreatedAt); err != nil {
		return domain.CreditTransaction{}, err
	}
	tx.Type = domain.TransactionType(txType)
	return tx, nil
}

func scanReceipt(row pgx.Row) (domain.CreditReceipt, error) {
	var receipt domain.CreditReceipt
	var txType string
	tx := &receipt.Transaction
	if err := row.Scan(&tx.ID, &tx.UserID, &tx.Amount, &txType, &tx.ReferenceID, &tx.Description, &tx.CreatedAt, &receipt.Balance); err != nil {
		return domain.CreditReceipt{}, err
	}
	tx.Type = domain.TransactionType(txType)
	return receipt, nil
}

var _ domain.CreditRepository = (*CreditRepositoryPG)(nil)
