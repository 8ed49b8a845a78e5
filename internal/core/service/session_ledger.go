package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/deskforce/identity-system/internal/core/domain"
	"github.com/deskforce/identity-system/internal/core/ports"
)

// SessionTokenLedger tracks every session token ever issued. Revocation on
// login enforces the single-active-session policy without a separate
// blacklist: the ledger itself is the blacklist.
type SessionTokenLedger struct {
	tokens ports.SessionTokenRepository
	signer ports.TokenSigner
	log    zerolog.Logger
}

func NewSessionTokenLedger(tokens ports.SessionTokenRepository, signer ports.TokenSigner, log zerolog.Logger) *SessionTokenLedger {
	return &SessionTokenLedger{tokens: tokens, signer: signer, log: log}
}

// RevokeAllValid marks every currently valid token for the principal
// expired and revoked. Finding none is a no-op, not an error.
func (l *SessionTokenLedger) RevokeAllValid(ctx context.Context, principalID string) error {
	valid, err := l.tokens.FindAllValidByPrincipal(ctx, principalID)
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	if len(valid) == 0 {
		return nil
	}

	for i := range valid {
		valid[i].Expired = true
		valid[i].Revoked = true
	}
	if err := l.tokens.SaveAll(ctx, valid); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	l.log.Debug().Str("principal_id", principalID).Int("revoked", len(valid)).Msg("prior sessions revoked")
	return nil
}

// Record appends a freshly signed token as the principal's live session.
func (l *SessionTokenLedger) Record(ctx context.Context, p *domain.Principal, signedValue string) (*domain.SessionToken, error) {
	token := &domain.SessionToken{
		ID:            uuid.NewString(),
		Value:         signedValue,
		TokenType:     domain.TokenTypeBearer,
		Expired:       false,
		Revoked:       false,
		PrincipalID:   p.ID,
		PrincipalKind: p.Kind,
		CreatedAt:     time.Now().UTC(),
	}
	if err := l.tokens.Save(ctx, token); err != nil {
		return nil, fmt.Errorf("record session: %w", err)
	}
	return token, nil
}

// Validate accepts a presented bearer value only when the ledger row is
// still valid and the signer vouches for the signature and claim.
func (l *SessionTokenLedger) Validate(ctx context.Context, tokenValue string) (*ports.PrincipalClaim, error) {
	row, err := l.tokens.FindByValue(ctx, tokenValue)
	if err != nil {
		return nil, domain.ErrInvalidCredential
	}
	if !row.Valid() {
		return nil, domain.ErrInvalidCredential
	}

	claim, err := l.signer.Verify(tokenValue)
	if err != nil {
		l.log.Warn().Str("principal_id", row.PrincipalID).Err(err).Msg("ledger row valid but signature rejected")
		return nil, domain.ErrInvalidCredential
	}
	return claim, nil
}
