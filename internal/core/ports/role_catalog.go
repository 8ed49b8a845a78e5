package ports

import (
	"context"

	"github.com/deskforce/identity-system/internal/core/domain"
)

// RoleCatalog looks up immutable role definitions by name. Implementations
// return domain.ErrRoleNotConfigured when the role does not exist.
type RoleCatalog interface {
	FindByName(ctx context.Context, name string) (*domain.Role, error)
}
