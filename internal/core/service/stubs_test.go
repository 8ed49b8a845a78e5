package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/deskforce/identity-system/internal/core/domain"
	"github.com/deskforce/identity-system/internal/core/ports"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// --- credential store -------------------------------------------------------

type stubCredentialStore struct {
	mu         sync.Mutex
	principals map[string]*domain.Principal // keyed by kind+"/"+username
}

func newStubCredentialStore() *stubCredentialStore {
	return &stubCredentialStore{principals: make(map[string]*domain.Principal)}
}

func clonePrincipal(p *domain.Principal) *domain.Principal {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Roles = append([]domain.Role(nil), p.Roles...)
	return &clone
}

func (s *stubCredentialStore) key(kind domain.PrincipalKind, username string) string {
	return string(kind) + "/" + username
}

func (s *stubCredentialStore) FindByUsername(_ context.Context, kind domain.PrincipalKind, username string) (*domain.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.principals[s.key(kind, username)]; ok {
		return clonePrincipal(p), nil
	}
	return nil, domain.ErrPrincipalNotFound
}

func (s *stubCredentialStore) FindByEmail(_ context.Context, kind domain.PrincipalKind, email string) (*domain.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.principals {
		if p.Kind == kind && p.Email == email {
			return clonePrincipal(p), nil
		}
	}
	return nil, domain.ErrPrincipalNotFound
}

func (s *stubCredentialStore) FindByID(_ context.Context, kind domain.PrincipalKind, id string) (*domain.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.principals {
		if p.Kind == kind && p.ID == id {
			return clonePrincipal(p), nil
		}
	}
	return nil, domain.ErrPrincipalNotFound
}

func (s *stubCredentialStore) Save(_ context.Context, p *domain.Principal) (*domain.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Save is an upsert by ID; the username may have been edited, so drop
	// any stale key pointing at the same record first.
	for k, existing := range s.principals {
		if existing.ID == p.ID {
			delete(s.principals, k)
		}
	}
	s.principals[s.key(p.Kind, p.Username)] = clonePrincipal(p)
	return clonePrincipal(p), nil
}

func (s *stubCredentialStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.principals)
}

// --- role catalog -----------------------------------------------------------

type stubRoleCatalog struct {
	roles map[string]domain.Role
}

func newStubRoleCatalog(names ...string) *stubRoleCatalog {
	c := &stubRoleCatalog{roles: make(map[string]domain.Role)}
	for _, n := range names {
		c.roles[n] = domain.Role{Name: n}
	}
	return c
}

func (c *stubRoleCatalog) FindByName(_ context.Context, name string) (*domain.Role, error) {
	if r, ok := c.roles[name]; ok {
		return &r, nil
	}
	return nil, domain.ErrRoleNotConfigured
}

// --- hasher -----------------------------------------------------------------

// fakeHasher is a transparent stand-in for bcrypt: digests are prefixed
// plaintext so tests can assert without hashing cost.
type fakeHasher struct{}

func (fakeHasher) Hash(plaintext string) (string, error) { return "digest:" + plaintext, nil }

func (fakeHasher) Verify(plaintext, digest string) bool { return digest == "digest:"+plaintext }

// --- signer -----------------------------------------------------------------

type fakeSigner struct {
	seq     atomic.Int64
	rejects map[string]bool
}

func newFakeSigner() *fakeSigner {
	return &fakeSigner{rejects: make(map[string]bool)}
}

func (s *fakeSigner) Generate(claim ports.PrincipalClaim) (string, error) {
	n := s.seq.Add(1)
	return fmt.Sprintf("signed|%s|%s|%s|%d", claim.PrincipalID, claim.Kind, claim.Username, n), nil
}

func (s *fakeSigner) Verify(signed string) (*ports.PrincipalClaim, error) {
	if s.rejects[signed] || !strings.HasPrefix(signed, "signed|") {
		return nil, domain.ErrInvalidCredential
	}
	parts := strings.Split(signed, "|")
	return &ports.PrincipalClaim{
		PrincipalID: parts[1],
		Kind:        domain.PrincipalKind(parts[2]),
		Username:    parts[3],
	}, nil
}

// --- notifier ---------------------------------------------------------------

type recordingNotifier struct {
	mu   sync.Mutex
	sent []ports.EmailMessage
	fail bool
}

func (n *recordingNotifier) Send(_ context.Context, msg ports.EmailMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return fmt.Errorf("smtp unavailable")
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// --- session token repository -----------------------------------------------

type stubSessionTokenRepo struct {
	mu     sync.Mutex
	tokens []domain.SessionToken
}

func (r *stubSessionTokenRepo) FindAllValidByPrincipal(_ context.Context, principalID string) ([]domain.SessionToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var valid []domain.SessionToken
	for _, t := range r.tokens {
		if t.PrincipalID == principalID && t.Valid() {
			valid = append(valid, t)
		}
	}
	return valid, nil
}

func (r *stubSessionTokenRepo) FindByValue(_ context.Context, value string) (*domain.SessionToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.Value == value {
			clone := t
			return &clone, nil
		}
	}
	return nil, domain.ErrInvalidCredential
}

func (r *stubSessionTokenRepo) Save(_ context.Context, t *domain.SessionToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, *t)
	return nil
}

func (r *stubSessionTokenRepo) SaveAll(_ context.Context, ts []domain.SessionToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, updated := range ts {
		for i := range r.tokens {
			if r.tokens[i].ID == updated.ID {
				r.tokens[i] = updated
			}
		}
	}
	return nil
}

func (r *stubSessionTokenRepo) validFor(principalID string) []domain.SessionToken {
	valid, _ := r.FindAllValidByPrincipal(context.Background(), principalID)
	return valid
}

func (r *stubSessionTokenRepo) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

// --- confirmation token repository --------------------------------------------

type stubConfirmationTokenRepo struct {
	mu     sync.Mutex
	tokens []domain.ConfirmationToken
}

func (r *stubConfirmationTokenRepo) FindByValue(_ context.Context, value string) (*domain.ConfirmationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.Value == value {
			clone := t
			return &clone, nil
		}
	}
	return nil, domain.ErrInvalidOrExpiredToken
}

func (r *stubConfirmationTokenRepo) FindOutstanding(_ context.Context, principalID string, purpose domain.TokenPurpose, now time.Time) (*domain.ConfirmationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.tokens) - 1; i >= 0; i-- {
		t := r.tokens[i]
		if t.PrincipalID == principalID && t.Purpose == purpose && t.ValidAt(now) {
			clone := t
			return &clone, nil
		}
	}
	return nil, domain.ErrInvalidOrExpiredToken
}

func (r *stubConfirmationTokenRepo) Save(_ context.Context, t *domain.ConfirmationToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, *t)
	return nil
}

func (r *stubConfirmationTokenRepo) MarkConsumed(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tokens {
		if r.tokens[i].ID == id {
			consumed := at
			r.tokens[i].ConsumedAt = &consumed
			return nil
		}
	}
	return domain.ErrInvalidOrExpiredToken
}

func (r *stubConfirmationTokenRepo) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}
