package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"headshotpro/internal/domain"
	"headshotpro/internal/generation"
	"headshotpro/internal/i18n"
	"headshotpro/internal/infra/google"
	"headshotpro/internal/ledger"
	"headshotpro/internal/middleware"
)

// Generations is the orchestrator surface the handlers drive.
type Generations interface {
	Submit(ctx context.Context, req generation.SubmitRequest) (generation.Creation, error)
	Status(ctx context.Context, userID, jobID string) (generation.StatusResult, error)
	Cancel(ctx context.Context, jobID string) bool
	List(ctx context.Context, userID string, limit, offset int) (generation.Page, error)
}

// Credits is the ledger surface the handlers drive.
type Credits interface {
	GetBalance(ctx context.Context, userID string) (ledger.Balance, error)
	GetHistory(ctx context.Context, userID string, limit int) ([]domain.CreditTransaction, error)
	GrantSignupBonus(ctx context.Context, userID string) (bool, error)
	GrantPurchase(ctx context.Context, userID, tierID, paymentID string) (domain.CreditReceipt, error)
	HasTrialerBeenPurchased(ctx context.Context, userID string) (bool, error)
}

// IDTokenVerifier checks third-party sign-in tokens.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, token string) (*google.Identity, error)
}

type App struct {
	Generations    Generations
	Credits        Credits
	Users          domain.UserRepository
	GoogleVerifier IDTokenVerifier
	JWTSecret      string
	SessionTTL     time.Duration
	Ping           func(ctx context.Context) error
	Logger         zerolog.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// error writes a localized error body. key doubles as the machine-readable code.
func (a *App) error(w http.ResponseWriter, r *http.Request, status int, key string, args ...any) {
	locale := middleware.LocaleFromContext(r.Context())
	a.json(w, status, errorResponse{Code: key, Message: i18n.Text(locale, key, args...)})
}

// domainError maps service errors onto HTTP responses.
func (a *App) domainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidStyle):
		a.error(w, r, http.StatusBadRequest, i18n.InvalidStyle)
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidAmount):
		a.error(w, r, http.StatusBadRequest, i18n.InvalidInput)
	case errors.Is(err, domain.ErrUnknownProvider):
		a.error(w, r, http.StatusBadRequest, i18n.UnknownProvider)
	case errors.Is(err, domain.ErrProviderNotConfigured):
		a.error(w, r, http.StatusServiceUnavailable, i18n.ProviderNotConfigured)
	case errors.Is(err, domain.ErrInsufficientCredits):
		a.error(w, r, http.StatusPaymentRequired, i18n.InsufficientCredits)
	case errors.Is(err, domain.ErrTrialerAlreadyPurchased):
		a.error(w, r, http.StatusConflict, i18n.TrialerPurchased)
	case errors.Is(err, domain.ErrDuplicateReference):
		a.error(w, r, http.StatusConflict, i18n.DuplicatePayment)
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, r, http.StatusNotFound, i18n.NotFound)
	default:
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("http: request failed")
		a.error(w, r, http.StatusInternalServerError, i18n.Internal)
	}
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// requireUser writes 401 and returns "" when the request carries no user.
func (a *App) requireUser(w http.ResponseWriter, r *http.Request) string {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, r, http.StatusUnauthorized, i18n.MissingUser)
	}
	return userID
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
