package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/deskforce/identity-system/internal/core/domain"
	"github.com/deskforce/identity-system/internal/core/ports"
)

const defaultTokenTTL = 24 * time.Hour

// JWTSigner implements ports.TokenSigner with HS256. The signed string is
// the session token value recorded in the ledger; its exp claim is a
// backstop, revocation through the ledger is the primary kill switch.
type JWTSigner struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTSigner(secret string, ttl time.Duration) *JWTSigner {
	if ttl == 0 {
		ttl = defaultTokenTTL
	}
	return &JWTSigner{secret: []byte(secret), ttl: ttl}
}

func (s *JWTSigner) Generate(claim ports.PrincipalClaim) (string, error) {
	now := time.Now()
	// iat/exp have second resolution; jti keeps two logins inside the same
	// second from minting byte-identical values, which would collide on the
	// ledger's unique value index.
	claims := jwt.MapClaims{
		"jti":      uuid.NewString(),
		"sub":      claim.PrincipalID,
		"username": claim.Username,
		"kind":     string(claim.Kind),
		"roles":    claim.Roles,
		"iat":      now.Unix(),
		"exp":      now.Add(s.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *JWTSigner) Verify(signed string) (*ports.PrincipalClaim, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("verify token: %w", errOrInvalid(err))
	}

	claim := &ports.PrincipalClaim{}
	claim.PrincipalID, _ = claims["sub"].(string)
	claim.Username, _ = claims["username"].(string)
	if kind, ok := claims["kind"].(string); ok {
		claim.Kind = domain.PrincipalKind(kind)
	}
	if rawRoles, ok := claims["roles"].([]interface{}); ok {
		for _, r := range rawRoles {
			if name, ok := r.(string); ok {
				claim.Roles = append(claim.Roles, name)
			}
		}
	}

	if claim.PrincipalID == "" || claim.Username == "" {
		return nil, fmt.Errorf("verify token: identity claims missing")
	}
	return claim, nil
}

func errOrInvalid(err error) error {
	if err != nil {
		return err
	}
	return jwt.ErrTokenUnverifiable
}
