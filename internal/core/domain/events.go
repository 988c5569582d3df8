package domain

import "time"

// AccountRegisteredEvent represents the payload for auth.account.registered messages.
type AccountRegisteredEvent struct {
	EventID            string
	AccountID          string
	Email              string
	RegisteredAt       time.Time
	RegistrationMethod string
	Metadata           map[string]any
}

// PasswordChangedEvent represents the payload for auth.account.password.changed messages.
type PasswordChangedEvent struct {
	EventID   string
	AccountID string
	ChangedAt time.Time
	ChangedBy string
	Reason    string
	Metadata  map[string]any
}

// PasswordResetRequestedEvent represents the payload for auth.account.password.reset_requested messages.
type PasswordResetRequestedEvent struct {
	EventID           string
	AccountID         string
	RequestedAt       time.Time
	MaskedDestination string
	ExpiresAt         time.Time
	Metadata          map[string]any
}

// AccountLockedEvent represents the payload for auth.account.locked messages.
type AccountLockedEvent struct {
	EventID        string
	AccountID      string
	LockedAt       time.Time
	LockedUntil    time.Time
	FailedAttempts int
	Metadata       map[string]any
}

// TokensRevokedEvent represents the payload for auth.account.tokens.revoked
// messages. Other instances consume it to drop their cached token version so
// a revocation is observed without waiting for the cache TTL.
type TokensRevokedEvent struct {
	EventID      string
	AccountID    string
	TokenVersion int64
	RevokedAt    time.Time
	Reason       string
	Metadata     map[string]any
}
