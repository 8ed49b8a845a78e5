package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/deskforce/identity-system/internal/core/domain"
	"github.com/deskforce/identity-system/internal/core/ports"
)

// RegistrationFlow creates admin and user principals, issues the admin
// confirmation token, and dispatches the account emails.
type RegistrationFlow struct {
	store         ports.CredentialStore
	roles         ports.RoleCatalog
	hasher        ports.Hasher
	confirmations *ConfirmationTokenLedger
	notifier      ports.Notifier
	baseURL       string
	log           zerolog.Logger
}

func NewRegistrationFlow(
	store ports.CredentialStore,
	roles ports.RoleCatalog,
	hasher ports.Hasher,
	confirmations *ConfirmationTokenLedger,
	notifier ports.Notifier,
	baseURL string,
	log zerolog.Logger,
) *RegistrationFlow {
	return &RegistrationFlow{
		store:         store,
		roles:         roles,
		hasher:        hasher,
		confirmations: confirmations,
		notifier:      notifier,
		baseURL:       baseURL,
		log:           log,
	}
}

// RegisterAdmin creates a disabled admin account and emails a confirmation
// link. The account stays unusable until ConfirmAccount burns the token.
func (f *RegistrationFlow) RegisterAdmin(ctx context.Context, in ports.AdminRegistrationInput) (*ports.RegistrationReceipt, error) {
	if err := f.ensureUnique(ctx, domain.KindAdmin, in.Username, in.Email); err != nil {
		return nil, err
	}

	role, err := f.roles.FindByName(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}

	hash, err := f.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register admin: %w", err)
	}

	now := time.Now().UTC()
	admin := &domain.Principal{
		ID:           uuid.NewString(),
		Kind:         domain.KindAdmin,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PhoneNumber:  in.PhoneNumber,
		Enabled:      false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	admin.AssignRole(*role)

	saved, err := f.store.Save(ctx, admin)
	if err != nil {
		return nil, fmt.Errorf("register admin: %w", err)
	}

	// the principal was created just above, so this always mints
	token, _, err := f.confirmations.Issue(ctx, saved, domain.PurposeAccountConfirmation)
	if err != nil {
		return nil, err
	}

	confirmURL := f.baseURL + "/auth/confirm?token=" + token.Value
	f.dispatch(ctx, ports.EmailMessage{
		Recipient: saved.Email,
		Subject:   "Account creation successful",
		Body:      confirmationEmailBody(saved.DisplayName(), confirmURL),
	})

	f.log.Info().Str("username", saved.Username).Msg("admin registered, confirmation pending")
	return &ports.RegistrationReceipt{
		Principal: saved,
		Status:    "Confirmation email sent. Activate your account to log in.",
	}, nil
}

// RegisterUser provisions an employee account under the acting admin. The
// admin vouches for the address, so the account is enabled immediately.
func (f *RegistrationFlow) RegisterUser(ctx context.Context, actingAdminUsername string, in ports.UserRegistrationInput) (*ports.ProvisioningReceipt, error) {
	admin, err := f.store.FindByUsername(ctx, domain.KindAdmin, actingAdminUsername)
	if err != nil {
		return nil, err
	}

	if err := f.ensureUnique(ctx, domain.KindUser, in.Username, in.Email); err != nil {
		return nil, err
	}

	role, err := f.roles.FindByName(ctx, domain.RoleUser)
	if err != nil {
		return nil, err
	}

	hash, err := f.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.Principal{
		ID:           uuid.NewString(),
		Kind:         domain.KindUser,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     in.FullName,
		PhoneNumber:  in.PhoneNumber,
		JobTitle:     in.JobTitle,
		Department:   in.Department,
		Enabled:      true,
		CreatedUnder: admin.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	user.AssignRole(*role)

	saved, err := f.store.Save(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}

	f.dispatch(ctx, ports.EmailMessage{
		Recipient: saved.Email,
		Subject:   "Activate your account",
		Body:      userWelcomeEmailBody(saved.FullName, saved.Username, f.baseURL+"/user-login"),
	})

	f.log.Info().
		Str("username", saved.Username).
		Str("created_under", admin.Username).
		Msg("user provisioned")
	return &ports.ProvisioningReceipt{
		Principal:    saved,
		CreatedUnder: admin.ID,
		Status:       "User created successfully.",
	}, nil
}

// ConfirmAccount burns an account-confirmation token and enables the
// owning principal.
func (f *RegistrationFlow) ConfirmAccount(ctx context.Context, tokenValue string) (string, error) {
	token, err := f.confirmations.Consume(ctx, tokenValue, domain.PurposeAccountConfirmation)
	if err != nil {
		return "", err
	}

	p, err := f.store.FindByID(ctx, token.PrincipalKind, token.PrincipalID)
	if err != nil {
		return "", err
	}

	p.Enabled = true
	p.UpdatedAt = time.Now().UTC()
	if _, err := f.store.Save(ctx, p); err != nil {
		return "", fmt.Errorf("confirm account: %w", err)
	}

	f.log.Info().Str("username", p.Username).Msg("account confirmed")
	return "Account confirmed. You can now log in.", nil
}

// ensureUnique fails with ErrDuplicateCredential when the username or
// email is already taken within the kind's collection.
func (f *RegistrationFlow) ensureUnique(ctx context.Context, kind domain.PrincipalKind, username, email string) error {
	if _, err := f.store.FindByUsername(ctx, kind, username); err == nil {
		return domain.ErrDuplicateCredential
	} else if !errors.Is(err, domain.ErrPrincipalNotFound) {
		return fmt.Errorf("uniqueness check: %w", err)
	}

	if _, err := f.store.FindByEmail(ctx, kind, email); err == nil {
		return domain.ErrDuplicateCredential
	} else if !errors.Is(err, domain.ErrPrincipalNotFound) {
		return fmt.Errorf("uniqueness check: %w", err)
	}
	return nil
}

// dispatch hands an email to the notifier. Delivery failure is logged and
// dropped: the persisted principal/token is the authoritative outcome.
func (f *RegistrationFlow) dispatch(ctx context.Context, msg ports.EmailMessage) {
	if err := f.notifier.Send(ctx, msg); err != nil {
		f.log.Warn().Err(err).Str("recipient", msg.Recipient).Msg("notification delivery failed")
	}
}
