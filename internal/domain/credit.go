package domain

import "time"

// TransactionType classifies ledger movements.
type TransactionType string

const (
	TransactionPaymentRefill    TransactionType = "payment_refill"
	TransactionGenerationSpent  TransactionType = "generation_spent"
	TransactionSignupBonus      TransactionType = "signup_bonus"
	TransactionGenerationRefund TransactionType = "generation_refund"
)

// CreditAccount is the derived balance aggregate for one user.
// Balance always equals TotalEarned - TotalSpent.
type CreditAccount struct {
	UserID      string
	Balance     int64
	TotalEarned int64
	TotalSpent  int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreditTransaction is one append-only ledger row. Amount is positive for
// earnings and negative for spending.
type CreditTransaction struct {
	ID          string
	UserID      string
	Amount      int64
	Type        TransactionType
	ReferenceID string
	Description string
	CreatedAt   time.Time
}

// CreditGrant describes a positive ledger movement.
type CreditGrant struct {
	UserID      string
	Amount      int64
	Type        TransactionType
	ReferenceID string
	Description string
}

// CreditDebit describes a generation spend.
type CreditDebit struct {
	UserID      string
	Amount      int64
	ReferenceID string
	Description string
}

// CreditReceipt is the appended transaction plus the balance it produced.
type CreditReceipt struct {
	Transaction CreditTransaction
	Balance     int64
}
