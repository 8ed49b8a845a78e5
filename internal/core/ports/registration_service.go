package ports

import (
	"context"

	"github.com/deskforce/identity-system/internal/core/domain"
)

// AdminRegistrationInput carries a self-service admin sign-up.
type AdminRegistrationInput struct {
	FirstName   string
	LastName    string
	Username    string
	Email       string
	PhoneNumber string
	Password    string
}

// UserRegistrationInput carries an admin-provisioned employee account.
type UserRegistrationInput struct {
	FullName    string
	Username    string
	Email       string
	PhoneNumber string
	JobTitle    string
	Department  string
	Password    string
}

// RegistrationReceipt summarizes a newly created admin. Status is the
// human-readable outcome line returned to the caller.
type RegistrationReceipt struct {
	Principal *domain.Principal
	Status    string
}

// ProvisioningReceipt summarizes a newly provisioned user, including the
// admin it was created under.
type ProvisioningReceipt struct {
	Principal    *domain.Principal
	CreatedUnder string
	Status       string
}

// RegistrationService creates principals and activates admin accounts.
type RegistrationService interface {
	RegisterAdmin(ctx context.Context, in AdminRegistrationInput) (*RegistrationReceipt, error)
	RegisterUser(ctx context.Context, actingAdminUsername string, in UserRegistrationInput) (*ProvisioningReceipt, error)
	ConfirmAccount(ctx context.Context, tokenValue string) (string, error)
}
