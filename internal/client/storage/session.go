package storage

import (
	"context"
	"time"
)

//go:generate moq -out session_mock.go . SessionStorage

// Session holds the access token obtained at login.
type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// SessionStorage persists the client's authenticated session between runs.
type SessionStorage interface {
	// SaveSession stores the session, replacing any previous one.
	SaveSession(ctx context.Context, session *Session) error

	// GetSession returns the stored session.
	// Returns ErrSessionNotFound if no session is stored.
	GetSession(ctx context.Context) (*Session, error)

	// DeleteSession removes the stored session. Removing a missing
	// session is not an error.
	DeleteSession(ctx context.Context) error
}
