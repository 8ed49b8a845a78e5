package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/deskforce/identity-system/internal/core/domain"
	"github.com/deskforce/identity-system/internal/core/ports"
)

// AuthenticationFlow verifies credentials and swaps the principal's live
// session token. All three failure modes surface distinctly here; the
// transport collapses them into one generic authentication failure.
type AuthenticationFlow struct {
	store    ports.CredentialStore
	hasher   ports.Hasher
	signer   ports.TokenSigner
	sessions *SessionTokenLedger
	locker   ports.PrincipalLocker
	log      zerolog.Logger
}

func NewAuthenticationFlow(
	store ports.CredentialStore,
	hasher ports.Hasher,
	signer ports.TokenSigner,
	sessions *SessionTokenLedger,
	locker ports.PrincipalLocker,
	log zerolog.Logger,
) *AuthenticationFlow {
	return &AuthenticationFlow{
		store:    store,
		hasher:   hasher,
		signer:   signer,
		sessions: sessions,
		locker:   locker,
		log:      log,
	}
}

// Login authenticates the principal and issues a fresh bearer token.
// Afterwards exactly one valid session token exists for the principal;
// every token valid before the call is expired+revoked. The revoke+record
// pair runs under a per-principal lock so concurrent logins for the same
// account serialize instead of both surviving.
func (f *AuthenticationFlow) Login(ctx context.Context, kind domain.PrincipalKind, username, password string) (*ports.SessionReceipt, error) {
	p, err := f.store.FindByUsername(ctx, kind, username)
	if err != nil {
		// a store outage is not a credential failure and must not be
		// collapsed into the generic 401 at the transport
		if !errors.Is(err, domain.ErrPrincipalNotFound) {
			return nil, fmt.Errorf("login: lookup principal: %w", err)
		}
		f.log.Info().Str("username", username).Str("kind", string(kind)).Msg("login failed: unknown principal")
		return nil, err
	}

	if !p.Enabled {
		f.log.Info().Str("username", username).Msg("login failed: account not enabled")
		return nil, domain.ErrAccountNotEnabled
	}

	if !f.hasher.Verify(password, p.PasswordHash) {
		f.log.Info().Str("username", username).Msg("login failed: bad password")
		return nil, domain.ErrInvalidCredential
	}

	signed, err := f.signer.Generate(ports.PrincipalClaim{
		PrincipalID: p.ID,
		Kind:        p.Kind,
		Username:    p.Username,
		Roles:       p.RoleNames(),
	})
	if err != nil {
		return nil, fmt.Errorf("login: sign token: %w", err)
	}

	release, err := f.locker.Lock(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("login: acquire session lock: %w", err)
	}
	defer release()

	if err := f.sessions.RevokeAllValid(ctx, p.ID); err != nil {
		return nil, err
	}
	if _, err := f.sessions.Record(ctx, p, signed); err != nil {
		return nil, err
	}

	f.log.Info().Str("username", p.Username).Str("kind", string(p.Kind)).Msg("login succeeded")
	return &ports.SessionReceipt{
		Username:  p.Username,
		Token:     signed,
		TokenType: domain.TokenTypeBearer,
	}, nil
}
