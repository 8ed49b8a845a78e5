package ports

import (
	"context"

	"github.com/deskforce/identity-system/internal/core/domain"
)

// PasswordResetInput carries the direct (email-keyed) reset request.
type PasswordResetInput struct {
	Email           string
	NewPassword     string
	ConfirmPassword string
}

// ResetReceipt reports an initiated reset. Link embeds the token value;
// whether the transport exposes it to the client is a boundary decision.
// TokenIssued is false when an outstanding token was reused instead of a
// fresh one being minted.
type ResetReceipt struct {
	Email       string
	Link        string
	Status      string
	TokenIssued bool
}

// PasswordResetService issues reset tokens and mutates passwords.
type PasswordResetService interface {
	ForgotPassword(ctx context.Context, kind domain.PrincipalKind, email string) (*ResetReceipt, error)
	ResetPassword(ctx context.Context, kind domain.PrincipalKind, in PasswordResetInput) error
	CompleteReset(ctx context.Context, tokenValue, newPassword, confirmPassword string) error
}
