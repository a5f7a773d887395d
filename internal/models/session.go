package models

import (
	"time"

	"github.com/google/uuid"
)

type Session struct {
	ID               uuid.UUID `json:"id"`
	UserID           int64     `json:"user_id"`
	RefreshTokenHash string    `json:"-"`
	UserAgent        string    `json:"user_agent"`
	ClientIP         string    `json:"client_ip"`
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
}

const (
	TokenPurposeVerifyEmail   = "verify_email"
	TokenPurposeResetPassword = "reset_password"
)

// AccountToken is a single-use, hashed token for email verification or
// password reset. The raw token is only ever sent to the user by email.
type AccountToken struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Purpose   string    `json:"purpose"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
