package ports

import (
	"context"

	"github.com/deskforce/identity-system/internal/core/domain"
)

// SessionReceipt is the successful login result.
type SessionReceipt struct {
	Username  string
	Token     string
	TokenType string
}

// AuthenticationService verifies credentials and manages the session
// ledger. The kind comes from the route: admins and users log in through
// separate endpoints but share one flow.
type AuthenticationService interface {
	Login(ctx context.Context, kind domain.PrincipalKind, username, password string) (*SessionReceipt, error)
}

// SessionValidator checks a presented bearer token against both the
// signer and the ledger, so a revoked token dies immediately even though
// its signature is still cryptographically sound.
type SessionValidator interface {
	Validate(ctx context.Context, tokenValue string) (*PrincipalClaim, error)
}
