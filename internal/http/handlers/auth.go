package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"headshotpro/internal/domain"
	"headshotpro/internal/i18n"
	"headshotpro/internal/ledger"
	"headshotpro/internal/middleware"
)

const defaultSessionTTL = 24 * time.Hour

type googleVerifyRequest struct {
	IDToken string `json:"idToken"`
}

type googleVerifyResponse struct {
	Token              string         `json:"token"`
	User               userProfileDTO `json:"user"`
	SignupBonusGranted bool           `json:"signupBonusGranted"`
}

type userProfileDTO struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Name      string          `json:"name"`
	AvatarURL string          `json:"avatarUrl,omitempty"`
	Credits   *ledger.Balance `json:"credits,omitempty"`
}

func profileOf(u *domain.User) userProfileDTO {
	return userProfileDTO{ID: u.ID, Email: u.Email, Name: u.Name, AvatarURL: u.AvatarURL}
}

// AuthGoogle exchanges a Google ID token for a session token, provisioning
// the account and its welcome credits on first sign-in.
func (a *App) AuthGoogle(w http.ResponseWriter, r *http.Request) {
	if a.GoogleVerifier == nil || a.Users == nil {
		a.error(w, r, http.StatusServiceUnavailable, i18n.GoogleNotConfigured)
		return
	}
	var req googleVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.IDToken) == "" {
		a.error(w, r, http.StatusBadRequest, i18n.InvalidPayload)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	identity, err := a.GoogleVerifier.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("auth: google verify failed")
		a.error(w, r, http.StatusUnauthorized, i18n.InvalidGoogleToken)
		return
	}
	user, err := a.Users.UpsertByGoogleSub(r.Context(), &domain.User{
		GoogleSub: identity.Subject,
		Email:     identity.Email,
		Name:      identity.Name,
		AvatarURL: identity.Picture,
	})
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	granted, err := a.Credits.GrantSignupBonus(r.Context(), user.ID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", user.ID).Msg("auth: signup bonus failed")
	}
	ttl := a.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	token, err := middleware.SignJWT(a.JWTSecret, user.ID, user.Email, ttl)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, googleVerifyResponse{Token: token, User: profileOf(user), SignupBonusGranted: granted})
}

func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	userID := a.requireUser(w, r)
	if userID == "" {
		return
	}
	if a.Users == nil {
		a.error(w, r, http.StatusNotFound, i18n.NotFound)
		return
	}
	user, err := a.Users.GetByID(r.Context(), userID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	profile := profileOf(user)
	if balance, err := a.Credits.GetBalance(r.Context(), userID); err == nil {
		profile.Credits = &balance
	}
	a.json(w, http.StatusOK, profile)
}
