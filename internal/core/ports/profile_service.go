package ports

import (
	"context"

	"github.com/deskforce/identity-system/internal/core/domain"
)

// DetailsUpdate overwrites the mutable profile fields. Passwords and
// roles are never touched here.
type DetailsUpdate struct {
	FirstName   string
	LastName    string
	FullName    string
	Email       string
	PhoneNumber string
}

// ProfileService edits principal profile details.
type ProfileService interface {
	EditDetails(ctx context.Context, kind domain.PrincipalKind, username string, update DetailsUpdate) (string, error)
}
