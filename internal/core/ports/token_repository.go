package ports

import (
	"context"
	"time"

	"github.com/deskforce/identity-system/internal/core/domain"
)

// SessionTokenRepository persists the append-only session ledger.
// "Valid" rows are those with expired=false and revoked=false; the query
// is an indexed filter, never a scan of live object references.
type SessionTokenRepository interface {
	FindAllValidByPrincipal(ctx context.Context, principalID string) ([]domain.SessionToken, error)
	FindByValue(ctx context.Context, value string) (*domain.SessionToken, error)
	Save(ctx context.Context, t *domain.SessionToken) error
	SaveAll(ctx context.Context, ts []domain.SessionToken) error
}

// ConfirmationTokenRepository persists one-time confirmation tokens.
// Rows are kept after consumption for the audit trail.
type ConfirmationTokenRepository interface {
	FindByValue(ctx context.Context, value string) (*domain.ConfirmationToken, error)
	// FindOutstanding returns the newest unconsumed, unexpired token for the
	// principal and purpose, or domain.ErrInvalidOrExpiredToken when none.
	FindOutstanding(ctx context.Context, principalID string, purpose domain.TokenPurpose, now time.Time) (*domain.ConfirmationToken, error)
	Save(ctx context.Context, t *domain.ConfirmationToken) error
	MarkConsumed(ctx context.Context, id string, at time.Time) error
}
