package domain

import "time"

// User represents an authenticated account.
type User struct {
	ID        string
	GoogleSub string
	Email     string
	Name      string
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}
