package ports

import "context"

// PrincipalLocker serializes the revoke+record pair inside login for a
// single principal. Locks for different principals are independent and
// must never block each other. Release is the returned function; it must
// always be called, including on error paths.
type PrincipalLocker interface {
	Lock(ctx context.Context, principalID string) (release func(), err error)
}
