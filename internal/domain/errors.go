package domain

import "errors"

var (
	ErrNotFound                = errors.New("not found")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrInvalidInput            = errors.New("invalid input")
	ErrInvalidStyle            = errors.New("invalid style id")
	ErrUnknownProvider         = errors.New("unknown provider")
	ErrProviderNotConfigured   = errors.New("provider not configured")
	ErrProviderFailure         = errors.New("provider failure")
	ErrInsufficientCredits     = errors.New("insufficient credits")
	ErrInvalidAmount           = errors.New("credit amount must be positive")
	ErrDuplicateReference      = errors.New("duplicate reference")
	ErrTrialerAlreadyPurchased = errors.New("trialer already purchased")
	ErrUnknownTier             = errors.New("unknown pricing tier")
)
