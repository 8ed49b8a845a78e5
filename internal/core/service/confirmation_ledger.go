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

const defaultConfirmationTTL = 15 * time.Minute

// ConfirmationTokenLedger issues and consumes the one-time tokens backing
// email confirmation and password reset.
type ConfirmationTokenLedger struct {
	tokens ports.ConfirmationTokenRepository
	ttl    time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

func NewConfirmationTokenLedger(tokens ports.ConfirmationTokenRepository, ttl time.Duration, log zerolog.Logger) *ConfirmationTokenLedger {
	if ttl <= 0 {
		ttl = defaultConfirmationTTL
	}
	return &ConfirmationTokenLedger{tokens: tokens, ttl: ttl, now: time.Now, log: log}
}

// Issue returns a confirmation token for the principal and purpose. When a
// still-valid token for the same pair is outstanding it is returned as-is
// instead of minting another one; minted reports which case occurred so
// callers do not count a reuse as a fresh issuance.
func (l *ConfirmationTokenLedger) Issue(ctx context.Context, p *domain.Principal, purpose domain.TokenPurpose) (token *domain.ConfirmationToken, minted bool, err error) {
	now := l.now().UTC()

	if existing, err := l.tokens.FindOutstanding(ctx, p.ID, purpose, now); err == nil {
		l.log.Debug().Str("principal_id", p.ID).Str("purpose", string(purpose)).Msg("outstanding token reused")
		return existing, false, nil
	} else if !errors.Is(err, domain.ErrInvalidOrExpiredToken) {
		return nil, false, fmt.Errorf("issue confirmation token: %w", err)
	}

	token = &domain.ConfirmationToken{
		ID:            uuid.NewString(),
		Value:         uuid.NewString(),
		Purpose:       purpose,
		PrincipalID:   p.ID,
		PrincipalKind: p.Kind,
		CreatedAt:     now,
		ExpiresAt:     now.Add(l.ttl),
	}
	if err := l.tokens.Save(ctx, token); err != nil {
		return nil, false, fmt.Errorf("issue confirmation token: %w", err)
	}
	return token, true, nil
}

// Consume validates and burns a token for exactly one purpose. Absent,
// expired, already consumed, and wrong-purpose tokens are all rejected
// with the same error so callers cannot probe token state.
func (l *ConfirmationTokenLedger) Consume(ctx context.Context, value string, purpose domain.TokenPurpose) (*domain.ConfirmationToken, error) {
	token, err := l.tokens.FindByValue(ctx, value)
	if err != nil {
		return nil, domain.ErrInvalidOrExpiredToken
	}

	now := l.now().UTC()
	if token.Purpose != purpose || !token.ValidAt(now) {
		return nil, domain.ErrInvalidOrExpiredToken
	}

	if err := l.tokens.MarkConsumed(ctx, token.ID, now); err != nil {
		return nil, fmt.Errorf("consume confirmation token: %w", err)
	}
	token.ConsumedAt = &now
	return token, nil
}
