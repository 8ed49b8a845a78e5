package domain

import "time"

// TokenTypeBearer is the only session token type the service issues.
const TokenTypeBearer = "BEARER"

// SessionToken is one row of the append-only session ledger. Tokens are
// never deleted; login marks the previous valid ones expired+revoked and
// appends a fresh row.
type SessionToken struct {
	ID            string        `json:"id"`
	Value         string        `json:"-"`
	TokenType     string        `json:"token_type"`
	Expired       bool          `json:"expired"`
	Revoked       bool          `json:"revoked"`
	PrincipalID   string        `json:"principal_id"`
	PrincipalKind PrincipalKind `json:"principal_kind"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Valid reports whether the token is still the principal's live session.
func (t *SessionToken) Valid() bool {
	return !t.Expired && !t.Revoked
}

// TokenPurpose scopes a confirmation token to exactly one use.
type TokenPurpose string

const (
	PurposeAccountConfirmation TokenPurpose = "ACCOUNT_CONFIRMATION"
	PurposePasswordReset       TokenPurpose = "PASSWORD_RESET"
)

// ConfirmationToken is a one-time, time-limited token authorizing either
// account activation or a password reset, never both.
type ConfirmationToken struct {
	ID            string        `json:"id"`
	Value         string        `json:"-"`
	Purpose       TokenPurpose  `json:"purpose"`
	PrincipalID   string        `json:"principal_id"`
	PrincipalKind PrincipalKind `json:"principal_kind"`
	CreatedAt     time.Time     `json:"created_at"`
	ExpiresAt     time.Time     `json:"expires_at"`
	ConsumedAt    *time.Time    `json:"consumed_at,omitempty"`
}

// Consumed reports whether the token has already been acted upon.
func (t *ConfirmationToken) Consumed() bool {
	return t.ConsumedAt != nil
}

// ValidAt reports whether the token may still be consumed at the given
// instant. Expiry is evaluated against the stored timestamp, not a timer.
func (t *ConfirmationToken) ValidAt(now time.Time) bool {
	return !t.Consumed() && now.Before(t.ExpiresAt)
}
