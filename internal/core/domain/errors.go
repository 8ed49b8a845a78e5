package domain

import "errors"

var (
	// ErrDuplicateCredential signals a username or email already in use.
	ErrDuplicateCredential = errors.New("username or email already exists")
	// ErrRoleNotConfigured signals a required role missing from the catalog.
	ErrRoleNotConfigured = errors.New("required role not configured")
	// ErrPrincipalNotFound signals an unknown username or email.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrAccountNotEnabled signals a login attempt before email confirmation.
	ErrAccountNotEnabled = errors.New("account not enabled")
	// ErrInvalidCredential signals a failed password verification.
	ErrInvalidCredential = errors.New("invalid credentials")
	// ErrPasswordMismatch signals new/confirm password disagreement.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrInvalidOrExpiredToken signals an absent, expired, consumed, or
	// wrong-purpose confirmation token.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
)
