package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/deskforce/identity-system/internal/core/domain"
	"github.com/deskforce/identity-system/internal/core/ports"
)

func newResetFixture() (*PasswordResetFlow, *stubCredentialStore, *stubConfirmationTokenRepo, *recordingNotifier, *ConfirmationTokenLedger) {
	store := newStubCredentialStore()
	confirmRepo := &stubConfirmationTokenRepo{}
	notifier := &recordingNotifier{}
	ledger := NewConfirmationTokenLedger(confirmRepo, time.Hour, testLogger())
	flow := NewPasswordResetFlow(store, fakeHasher{}, ledger, notifier, testBaseURL, testLogger())
	return flow, store, confirmRepo, notifier, ledger
}

func seedResetPrincipal(t *testing.T, store *stubCredentialStore) *domain.Principal {
	t.Helper()
	p := &domain.Principal{
		ID:           "id-alice",
		Kind:         domain.KindAdmin,
		Username:     "alice",
		Email:        "alice@x.com",
		PasswordHash: "digest:old",
		Enabled:      true,
	}
	if _, err := store.Save(context.Background(), p); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return p
}

func currentHash(t *testing.T, store *stubCredentialStore) string {
	t.Helper()
	p, err := store.FindByEmail(context.Background(), domain.KindAdmin, "alice@x.com")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	return p.PasswordHash
}

func TestForgotPassword_Success(t *testing.T) {
	flow, store, confirmRepo, notifier, _ := newResetFixture()
	seedResetPrincipal(t, store)

	receipt, err := flow.ForgotPassword(context.Background(), domain.KindAdmin, "alice@x.com")
	if err != nil {
		t.Fatalf("ForgotPassword returned error: %v", err)
	}

	if confirmRepo.total() != 1 {
		t.Fatalf("expected one reset token, got %d", confirmRepo.total())
	}
	token := confirmRepo.tokens[0]
	if token.Purpose != domain.PurposePasswordReset {
		t.Fatalf("unexpected purpose: %s", token.Purpose)
	}

	wantLink := testBaseURL + "/auth/reset-password/complete?token=" + token.Value
	if receipt.Link != wantLink {
		t.Fatalf("receipt link = %q, want %q", receipt.Link, wantLink)
	}
	if notifier.count() != 1 || !strings.Contains(notifier.sent[0].Body, wantLink) {
		t.Fatalf("reset email missing or without link")
	}

	p, _ := store.FindByEmail(context.Background(), domain.KindAdmin, "alice@x.com")
	if p.ResetToken != token.Value {
		t.Fatalf("reset token value not recorded on principal")
	}
}

// A repeat request while the first token is still valid reuses it; the
// receipt reports that so the issuance counter only moves on fresh mints.
func TestForgotPassword_RepeatReusesOutstandingToken(t *testing.T) {
	flow, store, confirmRepo, _, _ := newResetFixture()
	seedResetPrincipal(t, store)

	first, err := flow.ForgotPassword(context.Background(), domain.KindAdmin, "alice@x.com")
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	if !first.TokenIssued {
		t.Fatalf("first request did not report a fresh token")
	}

	second, err := flow.ForgotPassword(context.Background(), domain.KindAdmin, "alice@x.com")
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if second.TokenIssued {
		t.Fatalf("reused token reported as freshly issued")
	}
	if second.Link != first.Link {
		t.Fatalf("repeat request changed the reset link")
	}
	if confirmRepo.total() != 1 {
		t.Fatalf("repeat request minted a second token, ledger has %d", confirmRepo.total())
	}
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	flow, _, _, _, _ := newResetFixture()

	if _, err := flow.ForgotPassword(context.Background(), domain.KindAdmin, "ghost@x.com"); !errors.Is(err, domain.ErrPrincipalNotFound) {
		t.Fatalf("expected ErrPrincipalNotFound, got %v", err)
	}
}

func TestResetPassword_Mismatch(t *testing.T) {
	flow, store, _, _, _ := newResetFixture()
	seedResetPrincipal(t, store)

	err := flow.ResetPassword(context.Background(), domain.KindAdmin, ports.PasswordResetInput{
		Email:           "alice@x.com",
		NewPassword:     "new1",
		ConfirmPassword: "new2",
	})
	if !errors.Is(err, domain.ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	if currentHash(t, store) != "digest:old" {
		t.Fatalf("stored hash changed on mismatch")
	}
}

func TestResetPassword_Success(t *testing.T) {
	flow, store, _, _, _ := newResetFixture()
	seedResetPrincipal(t, store)

	err := flow.ResetPassword(context.Background(), domain.KindAdmin, ports.PasswordResetInput{
		Email:           "alice@x.com",
		NewPassword:     "new1",
		ConfirmPassword: "new1",
	})
	if err != nil {
		t.Fatalf("ResetPassword returned error: %v", err)
	}
	if currentHash(t, store) != "digest:new1" {
		t.Fatalf("password not updated")
	}
}

func TestResetPassword_SkipsWhileResetOutstanding(t *testing.T) {
	flow, store, _, _, _ := newResetFixture()
	seedResetPrincipal(t, store)

	if _, err := flow.ForgotPassword(context.Background(), domain.KindAdmin, "alice@x.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}

	err := flow.ResetPassword(context.Background(), domain.KindAdmin, ports.PasswordResetInput{
		Email:           "alice@x.com",
		NewPassword:     "new1",
		ConfirmPassword: "new1",
	})
	if err != nil {
		t.Fatalf("in-progress skip must not be an error: %v", err)
	}
	if currentHash(t, store) != "digest:old" {
		t.Fatalf("direct reset clobbered an in-flight token reset")
	}
}

func TestResetPassword_ProceedsWhenRecordedTokenStale(t *testing.T) {
	flow, store, _, _, ledger := newResetFixture()
	seedResetPrincipal(t, store)

	if _, err := flow.ForgotPassword(context.Background(), domain.KindAdmin, "alice@x.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}

	// let the outstanding token expire
	ledger.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	err := flow.ResetPassword(context.Background(), domain.KindAdmin, ports.PasswordResetInput{
		Email:           "alice@x.com",
		NewPassword:     "new1",
		ConfirmPassword: "new1",
	})
	if err != nil {
		t.Fatalf("ResetPassword returned error: %v", err)
	}
	if currentHash(t, store) != "digest:new1" {
		t.Fatalf("stale recorded token still blocks the direct reset")
	}

	p, _ := store.FindByEmail(context.Background(), domain.KindAdmin, "alice@x.com")
	if p.ResetToken != "" {
		t.Fatalf("stale token value not cleared")
	}
}

func TestCompleteReset_BurnsToken(t *testing.T) {
	flow, store, confirmRepo, _, _ := newResetFixture()
	seedResetPrincipal(t, store)

	if _, err := flow.ForgotPassword(context.Background(), domain.KindAdmin, "alice@x.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	value := confirmRepo.tokens[0].Value

	if err := flow.CompleteReset(context.Background(), value, "new1", "new1"); err != nil {
		t.Fatalf("CompleteReset returned error: %v", err)
	}
	if currentHash(t, store) != "digest:new1" {
		t.Fatalf("password not updated")
	}

	p, _ := store.FindByEmail(context.Background(), domain.KindAdmin, "alice@x.com")
	if p.ResetToken != "" {
		t.Fatalf("recorded token value not cleared after completion")
	}

	if err := flow.CompleteReset(context.Background(), value, "new2", "new2"); !errors.Is(err, domain.ErrInvalidOrExpiredToken) {
		t.Fatalf("reset token reusable, got %v", err)
	}
	if currentHash(t, store) != "digest:new1" {
		t.Fatalf("replayed reset changed the password")
	}
}

func TestCompleteReset_Mismatch(t *testing.T) {
	flow, store, confirmRepo, _, _ := newResetFixture()
	seedResetPrincipal(t, store)

	if _, err := flow.ForgotPassword(context.Background(), domain.KindAdmin, "alice@x.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	value := confirmRepo.tokens[0].Value

	if err := flow.CompleteReset(context.Background(), value, "a", "b"); !errors.Is(err, domain.ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	// mismatch is checked before the token is touched
	if confirmRepo.tokens[0].Consumed() {
		t.Fatalf("token burned by a rejected request")
	}
}
