package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/deskforce/identity-system/internal/core/domain"
	"github.com/deskforce/identity-system/internal/core/ports"
)

// ProfileFlow edits mutable principal details. No password or role
// mutation happens here.
type ProfileFlow struct {
	store ports.CredentialStore
	log   zerolog.Logger
}

func NewProfileFlow(store ports.CredentialStore, log zerolog.Logger) *ProfileFlow {
	return &ProfileFlow{store: store, log: log}
}

// EditDetails overwrites names, email, and phone for the principal.
func (f *ProfileFlow) EditDetails(ctx context.Context, kind domain.PrincipalKind, username string, update ports.DetailsUpdate) (string, error) {
	p, err := f.store.FindByUsername(ctx, kind, username)
	if err != nil {
		return "", err
	}

	p.FirstName = update.FirstName
	p.LastName = update.LastName
	if update.FullName != "" {
		p.FullName = update.FullName
	}
	p.Email = update.Email
	p.PhoneNumber = update.PhoneNumber
	p.UpdatedAt = time.Now().UTC()

	if _, err := f.store.Save(ctx, p); err != nil {
		return "", fmt.Errorf("edit details: %w", err)
	}

	f.log.Info().Str("username", p.Username).Msg("profile details updated")
	return "Details updated successfully.", nil
}
