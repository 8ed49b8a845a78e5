package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/deskforce/identity-system/internal/api/metrics"
	"github.com/deskforce/identity-system/internal/core/domain"
	"github.com/deskforce/identity-system/internal/core/ports"
)

type stubRegistrationService struct {
	registerAdminFn func(ctx context.Context, in ports.AdminRegistrationInput) (*ports.RegistrationReceipt, error)
	registerUserFn  func(ctx context.Context, actingAdmin string, in ports.UserRegistrationInput) (*ports.ProvisioningReceipt, error)
	confirmFn       func(ctx context.Context, tokenValue string) (string, error)
}

func (s *stubRegistrationService) RegisterAdmin(ctx context.Context, in ports.AdminRegistrationInput) (*ports.RegistrationReceipt, error) {
	return s.registerAdminFn(ctx, in)
}

func (s *stubRegistrationService) RegisterUser(ctx context.Context, actingAdmin string, in ports.UserRegistrationInput) (*ports.ProvisioningReceipt, error) {
	return s.registerUserFn(ctx, actingAdmin, in)
}

func (s *stubRegistrationService) ConfirmAccount(ctx context.Context, tokenValue string) (string, error) {
	return s.confirmFn(ctx, tokenValue)
}

type stubAuthenticationService struct {
	loginFn func(ctx context.Context, kind domain.PrincipalKind, username, password string) (*ports.SessionReceipt, error)
}

func (s *stubAuthenticationService) Login(ctx context.Context, kind domain.PrincipalKind, username, password string) (*ports.SessionReceipt, error) {
	return s.loginFn(ctx, kind, username, password)
}

type stubPasswordResetService struct {
	forgotFn   func(ctx context.Context, kind domain.PrincipalKind, email string) (*ports.ResetReceipt, error)
	resetFn    func(ctx context.Context, kind domain.PrincipalKind, in ports.PasswordResetInput) error
	completeFn func(ctx context.Context, tokenValue, newPassword, confirmPassword string) error
}

func (s *stubPasswordResetService) ForgotPassword(ctx context.Context, kind domain.PrincipalKind, email string) (*ports.ResetReceipt, error) {
	return s.forgotFn(ctx, kind, email)
}

func (s *stubPasswordResetService) ResetPassword(ctx context.Context, kind domain.PrincipalKind, in ports.PasswordResetInput) error {
	return s.resetFn(ctx, kind, in)
}

func (s *stubPasswordResetService) CompleteReset(ctx context.Context, tokenValue, newPassword, confirmPassword string) error {
	return s.completeFn(ctx, tokenValue, newPassword, confirmPassword)
}

func newTestContext(t *testing.T, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestAuthHandler_RegisterAdmin_Success(t *testing.T) {
	stub := &stubRegistrationService{
		registerAdminFn: func(ctx context.Context, in ports.AdminRegistrationInput) (*ports.RegistrationReceipt, error) {
			if in.Username != "root.admin" || in.Email != "root@example.com" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &ports.RegistrationReceipt{
				Principal: &domain.Principal{Username: in.Username, Email: in.Email},
				Status:    "confirmation email sent",
			}, nil
		},
	}
	h := NewAuthHandler(stub, nil, nil, zerolog.Nop())

	c, rec := newTestContext(t, http.MethodPost, "/auth/register",
		`{"first_name":"Root","last_name":"Admin","username":"root.admin","email":"root@example.com","password":"s3cretpass"}`)

	if err := h.RegisterAdmin(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["username"] != "root.admin" || resp["status"] != "confirmation email sent" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAuthHandler_RegisterAdmin_MissingFields(t *testing.T) {
	stub := &stubRegistrationService{
		registerAdminFn: func(ctx context.Context, in ports.AdminRegistrationInput) (*ports.RegistrationReceipt, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	h := NewAuthHandler(stub, nil, nil, zerolog.Nop())

	c, _ := newTestContext(t, http.MethodPost, "/auth/register", `{"username":"root.admin"}`)

	err := h.RegisterAdmin(c)
	if httpCode(t, err) != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestAuthHandler_RegisterAdmin_Duplicate(t *testing.T) {
	stub := &stubRegistrationService{
		registerAdminFn: func(ctx context.Context, in ports.AdminRegistrationInput) (*ports.RegistrationReceipt, error) {
			return nil, domain.ErrDuplicateCredential
		},
	}
	h := NewAuthHandler(stub, nil, nil, zerolog.Nop())

	c, _ := newTestContext(t, http.MethodPost, "/auth/register",
		`{"first_name":"Root","last_name":"Admin","username":"root.admin","email":"root@example.com","password":"s3cretpass"}`)

	err := h.RegisterAdmin(c)
	if !errors.Is(err, domain.ErrDuplicateCredential) {
		t.Fatalf("expected duplicate error to propagate, got %v", err)
	}
}

func TestAuthHandler_ConfirmAccount_Success(t *testing.T) {
	stub := &stubRegistrationService{
		confirmFn: func(ctx context.Context, tokenValue string) (string, error) {
			if tokenValue != "tok-123" {
				t.Fatalf("unexpected token: %s", tokenValue)
			}
			return "account enabled", nil
		},
	}
	h := NewAuthHandler(stub, nil, nil, zerolog.Nop())

	c, rec := newTestContext(t, http.MethodGet, "/auth/confirm?token=tok-123", "")

	if err := h.ConfirmAccount(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_ConfirmAccount_MissingToken(t *testing.T) {
	h := NewAuthHandler(&stubRegistrationService{}, nil, nil, zerolog.Nop())

	c, _ := newTestContext(t, http.MethodGet, "/auth/confirm", "")

	err := h.ConfirmAccount(c)
	if httpCode(t, err) != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestAuthHandler_AdminLogin_Success(t *testing.T) {
	stub := &stubAuthenticationService{
		loginFn: func(ctx context.Context, kind domain.PrincipalKind, username, password string) (*ports.SessionReceipt, error) {
			if kind != domain.KindAdmin {
				t.Fatalf("expected admin kind, got %s", kind)
			}
			return &ports.SessionReceipt{Username: username, Token: "token123", TokenType: domain.TokenTypeBearer}, nil
		},
	}
	h := NewAuthHandler(nil, stub, nil, zerolog.Nop())

	c, rec := newTestContext(t, http.MethodPost, "/auth/login",
		`{"username":"root.admin","password":"s3cretpass"}`)

	if err := h.AdminLogin(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["token"] != "token123" || resp["token_type"] != domain.TokenTypeBearer {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAuthHandler_UserLogin_RoutesUserKind(t *testing.T) {
	stub := &stubAuthenticationService{
		loginFn: func(ctx context.Context, kind domain.PrincipalKind, username, password string) (*ports.SessionReceipt, error) {
			if kind != domain.KindUser {
				t.Fatalf("expected user kind, got %s", kind)
			}
			return &ports.SessionReceipt{Username: username, Token: "t", TokenType: domain.TokenTypeBearer}, nil
		},
	}
	h := NewAuthHandler(nil, stub, nil, zerolog.Nop())

	c, rec := newTestContext(t, http.MethodPost, "/auth/user-login",
		`{"username":"jane.doe","password":"s3cretpass"}`)

	if err := h.UserLogin(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

// Unknown principal, disabled account, and bad password must all yield the
// same opaque 401 so the login route cannot be used to probe accounts.
func TestAuthHandler_Login_CollapsesFailures(t *testing.T) {
	for _, cause := range []error{
		domain.ErrInvalidCredential,
		domain.ErrAccountNotEnabled,
		domain.ErrPrincipalNotFound,
	} {
		stub := &stubAuthenticationService{
			loginFn: func(ctx context.Context, kind domain.PrincipalKind, username, password string) (*ports.SessionReceipt, error) {
				return nil, cause
			},
		}
		h := NewAuthHandler(nil, stub, nil, zerolog.Nop())

		c, _ := newTestContext(t, http.MethodPost, "/auth/login",
			`{"username":"ghost","password":"whatever"}`)

		err := h.AdminLogin(c)
		var he *echo.HTTPError
		if !errors.As(err, &he) {
			t.Fatalf("cause %v: expected *echo.HTTPError, got %v", cause, err)
		}
		if he.Code != http.StatusUnauthorized {
			t.Fatalf("cause %v: expected 401, got %d", cause, he.Code)
		}
		if he.Message != "authentication failed" {
			t.Fatalf("cause %v: message leaks detail: %v", cause, he.Message)
		}
	}
}

// An infrastructure failure inside Login is not a credential failure: it
// must reach the central error handler as-is instead of hiding behind the
// opaque 401.
func TestAuthHandler_Login_InfrastructureErrorNotCollapsed(t *testing.T) {
	outage := errors.New("store unavailable")
	stub := &stubAuthenticationService{
		loginFn: func(ctx context.Context, kind domain.PrincipalKind, username, password string) (*ports.SessionReceipt, error) {
			return nil, outage
		},
	}
	h := NewAuthHandler(nil, stub, nil, zerolog.Nop())

	c, _ := newTestContext(t, http.MethodPost, "/auth/login",
		`{"username":"alice","password":"pw"}`)

	err := h.AdminLogin(c)
	if !errors.Is(err, outage) {
		t.Fatalf("expected the store error to propagate, got %v", err)
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		t.Fatalf("infrastructure failure converted to HTTP %d", he.Code)
	}
}

// The reuse of an outstanding reset token must not move the issuance
// counter; the handler keys the increment off the receipt.
func TestAuthHandler_ForgotPassword_ReuseNotCountedAsIssued(t *testing.T) {
	before := testutil.ToFloat64(metrics.ConfirmationTokensTotal.WithLabelValues(string(domain.PurposePasswordReset), "issued"))

	stub := &stubPasswordResetService{
		forgotFn: func(ctx context.Context, kind domain.PrincipalKind, email string) (*ports.ResetReceipt, error) {
			return &ports.ResetReceipt{Email: email, Status: "reset email sent", TokenIssued: false}, nil
		},
	}
	h := NewAuthHandler(nil, nil, stub, zerolog.Nop())

	c, rec := newTestContext(t, http.MethodPost, "/auth/forgot-password",
		`{"email":"alice@example.com"}`)

	if err := h.AdminForgotPassword(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	after := testutil.ToFloat64(metrics.ConfirmationTokensTotal.WithLabelValues(string(domain.PurposePasswordReset), "issued"))
	if after != before {
		t.Fatalf("reused token incremented the issuance counter: %v -> %v", before, after)
	}
}

func TestAuthHandler_ForgotPassword_Success(t *testing.T) {
	stub := &stubPasswordResetService{
		forgotFn: func(ctx context.Context, kind domain.PrincipalKind, email string) (*ports.ResetReceipt, error) {
			if kind != domain.KindUser || email != "jane@example.com" {
				t.Fatalf("unexpected args: %s %s", kind, email)
			}
			return &ports.ResetReceipt{Email: email, Status: "reset email sent"}, nil
		},
	}
	h := NewAuthHandler(nil, nil, stub, zerolog.Nop())

	c, rec := newTestContext(t, http.MethodPost, "/auth/user-forgot-password",
		`{"email":"jane@example.com"}`)

	if err := h.UserForgotPassword(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_ResetPassword_MismatchRejectedBeforeService(t *testing.T) {
	stub := &stubPasswordResetService{
		resetFn: func(ctx context.Context, kind domain.PrincipalKind, in ports.PasswordResetInput) error {
			t.Fatalf("should not be called")
			return nil
		},
	}
	h := NewAuthHandler(nil, nil, stub, zerolog.Nop())

	c, _ := newTestContext(t, http.MethodPost, "/auth/reset-password",
		`{"email":"root@example.com","new_password":"newpassword","confirm_password":"different1"}`)

	err := h.AdminResetPassword(c)
	if httpCode(t, err) != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestAuthHandler_CompleteReset_Success(t *testing.T) {
	stub := &stubPasswordResetService{
		completeFn: func(ctx context.Context, tokenValue, newPassword, confirmPassword string) error {
			if tokenValue != "tok-9" || newPassword != "newpassword" {
				t.Fatalf("unexpected args: %s %s", tokenValue, newPassword)
			}
			return nil
		},
	}
	h := NewAuthHandler(nil, nil, stub, zerolog.Nop())

	c, rec := newTestContext(t, http.MethodPost, "/auth/reset-password/complete",
		`{"token":"tok-9","new_password":"newpassword","confirm_password":"newpassword"}`)

	if err := h.CompleteReset(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_CompleteReset_BadToken(t *testing.T) {
	stub := &stubPasswordResetService{
		completeFn: func(ctx context.Context, tokenValue, newPassword, confirmPassword string) error {
			return domain.ErrInvalidOrExpiredToken
		},
	}
	h := NewAuthHandler(nil, nil, stub, zerolog.Nop())

	c, _ := newTestContext(t, http.MethodPost, "/auth/reset-password/complete",
		`{"token":"stale","new_password":"newpassword","confirm_password":"newpassword"}`)

	err := h.CompleteReset(c)
	if !errors.Is(err, domain.ErrInvalidOrExpiredToken) {
		t.Fatalf("expected token error to propagate, got %v", err)
	}
}
