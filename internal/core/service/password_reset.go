package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/deskforce/identity-system/internal/core/domain"
	"github.com/deskforce/identity-system/internal/core/ports"
)

// PasswordResetFlow issues reset tokens and mutates passwords, either
// directly by email or by burning an emailed token.
type PasswordResetFlow struct {
	store         ports.CredentialStore
	hasher        ports.Hasher
	confirmations *ConfirmationTokenLedger
	notifier      ports.Notifier
	baseURL       string
	log           zerolog.Logger
}

func NewPasswordResetFlow(
	store ports.CredentialStore,
	hasher ports.Hasher,
	confirmations *ConfirmationTokenLedger,
	notifier ports.Notifier,
	baseURL string,
	log zerolog.Logger,
) *PasswordResetFlow {
	return &PasswordResetFlow{
		store:         store,
		hasher:        hasher,
		confirmations: confirmations,
		notifier:      notifier,
		baseURL:       baseURL,
		log:           log,
	}
}

// ForgotPassword issues a reset token, records its value on the
// principal, and emails the reset link.
func (f *PasswordResetFlow) ForgotPassword(ctx context.Context, kind domain.PrincipalKind, email string) (*ports.ResetReceipt, error) {
	p, err := f.store.FindByEmail(ctx, kind, email)
	if err != nil {
		return nil, err
	}

	token, minted, err := f.confirmations.Issue(ctx, p, domain.PurposePasswordReset)
	if err != nil {
		return nil, err
	}

	p.ResetToken = token.Value
	p.UpdatedAt = time.Now().UTC()
	if _, err := f.store.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("forgot password: %w", err)
	}

	resetURL := f.baseURL + "/auth/reset-password/complete?token=" + token.Value
	if err := f.notifier.Send(ctx, ports.EmailMessage{
		Recipient: p.Email,
		Subject:   "Forgot password",
		Body:      passwordResetEmailBody(p.DisplayName(), resetURL),
	}); err != nil {
		f.log.Warn().Err(err).Str("recipient", p.Email).Msg("reset email delivery failed")
	}

	f.log.Info().Str("username", p.Username).Msg("password reset initiated")
	return &ports.ResetReceipt{
		Email:       p.Email,
		Link:        resetURL,
		Status:      "A reset password link has been sent to your account.",
		TokenIssued: minted,
	}, nil
}

// ResetPassword changes the password directly by email. When a reset via
// emailed token is still in flight the call returns without mutating
// anything; that is a normal branch, not an error. A recorded token that
// turns out stale (expired or consumed) is cleared and the reset proceeds.
func (f *PasswordResetFlow) ResetPassword(ctx context.Context, kind domain.PrincipalKind, in ports.PasswordResetInput) error {
	if in.NewPassword != in.ConfirmPassword {
		return domain.ErrPasswordMismatch
	}

	p, err := f.store.FindByEmail(ctx, kind, in.Email)
	if err != nil {
		return err
	}

	if p.ResetToken != "" {
		if f.resetStillOutstanding(ctx, p.ResetToken) {
			f.log.Info().Str("username", p.Username).Msg("reset already in progress, skipping")
			return nil
		}
		p.ResetToken = ""
	}

	return f.applyNewPassword(ctx, p, in.NewPassword)
}

// CompleteReset burns an emailed reset token and changes the password.
func (f *PasswordResetFlow) CompleteReset(ctx context.Context, tokenValue, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return domain.ErrPasswordMismatch
	}

	token, err := f.confirmations.Consume(ctx, tokenValue, domain.PurposePasswordReset)
	if err != nil {
		return err
	}

	p, err := f.store.FindByID(ctx, token.PrincipalKind, token.PrincipalID)
	if err != nil {
		return err
	}

	p.ResetToken = ""
	return f.applyNewPassword(ctx, p, newPassword)
}

func (f *PasswordResetFlow) applyNewPassword(ctx context.Context, p *domain.Principal, newPassword string) error {
	hash, err := f.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	p.PasswordHash = hash
	p.UpdatedAt = time.Now().UTC()
	if _, err := f.store.Save(ctx, p); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	f.log.Info().Str("username", p.Username).Msg("password changed")
	return nil
}

// resetStillOutstanding reports whether the recorded token value is still
// consumable. Lookup failures other than the token being gone count as
// outstanding, erring on the side of not clobbering an in-flight reset.
func (f *PasswordResetFlow) resetStillOutstanding(ctx context.Context, value string) bool {
	token, err := f.confirmations.tokens.FindByValue(ctx, value)
	if err != nil {
		return !errors.Is(err, domain.ErrInvalidOrExpiredToken)
	}
	return token.ValidAt(f.confirmations.now().UTC())
}
