package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"headshotpro/internal/domain"
	"headshotpro/internal/i18n"
	"headshotpro/internal/ledger"
)

type transactionDTO struct {
	ID          string    `json:"id"`
	Amount      int64     `json:"amount"`
	Type        string    `json:"type"`
	ReferenceID string    `json:"referenceId,omitempty"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

type creditsResponse struct {
	Credits      ledger.Balance   `json:"credits"`
	Transactions []transactionDTO `json:"transactions"`
}

func toTransactionDTOs(txs []domain.CreditTransaction) []transactionDTO {
	out := make([]transactionDTO, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionDTO{
			ID:          tx.ID,
			Amount:      tx.Amount,
			Type:        string(tx.Type),
			ReferenceID: tx.ReferenceID,
			Description: tx.Description,
			CreatedAt:   tx.CreatedAt,
		})
	}
	return out
}

func (a *App) GetCredits(w http.ResponseWriter, r *http.Request) {
	userID := a.requireUser(w, r)
	if userID == "" {
		return
	}
	balance, err := a.Credits.GetBalance(r.Context(), userID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	history, err := a.Credits.GetHistory(r.Context(), userID, queryInt(r, "limit", 0))
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, creditsResponse{Credits: balance, Transactions: toTransactionDTOs(history)})
}

func (a *App) SignupBonus(w http.ResponseWriter, r *http.Request) {
	userID := a.requireUser(w, r)
	if userID == "" {
		return
	}
	granted, err := a.Credits.GrantSignupBonus(r.Context(), userID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"granted": granted})
}

func (a *App) TrialerStatus(w http.ResponseWriter, r *http.Request) {
	userID := a.requireUser(w, r)
	if userID == "" {
		return
	}
	bought, err := a.Credits.HasTrialerBeenPurchased(r.Context(), userID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"hasPurchased": bought})
}

type purchaseRequest struct {
	UserID    string `json:"userId"`
	TierID    string `json:"tierId"`
	PaymentID string `json:"paymentId"`
}

// RecordPurchase is called by the payment collaborator once a checkout has
// settled.
func (a *App) RecordPurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, r, http.StatusBadRequest, i18n.InvalidPayload)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		a.error(w, r, http.StatusBadRequest, i18n.InvalidPayload)
		return
	}
	receipt, err := a.Credits.GrantPurchase(r.Context(), req.UserID, req.TierID, req.PaymentID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownTier) {
			a.error(w, r, http.StatusBadRequest, i18n.UnknownTier, req.TierID)
			return
		}
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]int64{"balance": receipt.Balance})
}
