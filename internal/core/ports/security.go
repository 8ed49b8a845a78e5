package ports

import "github.com/deskforce/identity-system/internal/core/domain"

// Hasher is a one-way password hasher.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// PrincipalClaim is the identity baked into every signed session token.
type PrincipalClaim struct {
	PrincipalID string
	Kind        domain.PrincipalKind
	Username    string
	Roles       []string
}

// TokenSigner mints and verifies signed session token strings. Verify
// returns the embedded claim only when the signature and the token's own
// temporal claims check out.
type TokenSigner interface {
	Generate(claim PrincipalClaim) (string, error)
	Verify(signed string) (*PrincipalClaim, error)
}
