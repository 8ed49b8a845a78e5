package ports

import (
	"context"

	"github.com/deskforce/identity-system/internal/core/domain"
)

// CredentialStore is the persistence boundary for principals. Admin and
// user records live in separate collections; the kind argument routes the
// lookup. Save is an upsert keyed by the principal's ID.
type CredentialStore interface {
	FindByUsername(ctx context.Context, kind domain.PrincipalKind, username string) (*domain.Principal, error)
	FindByEmail(ctx context.Context, kind domain.PrincipalKind, email string) (*domain.Principal, error)
	FindByID(ctx context.Context, kind domain.PrincipalKind, id string) (*domain.Principal, error)
	Save(ctx context.Context, p *domain.Principal) (*domain.Principal, error)
}
