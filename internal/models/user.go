package models

import "time"

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	FCMToken     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EmailOTP tracks a pending or completed email verification.
type EmailOTP struct {
	Email     string
	Secret    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Attempts  int
	Verified  bool
}
