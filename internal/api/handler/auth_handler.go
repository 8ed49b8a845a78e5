package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/deskforce/identity-system/internal/api/metrics"
	"github.com/deskforce/identity-system/internal/core/domain"
	"github.com/deskforce/identity-system/internal/core/ports"
)

// AuthHandler serves the unauthenticated identity endpoints: admin
// self-registration, account confirmation, the two login routes, and the
// password-reset flows.
type AuthHandler struct {
	registrations ports.RegistrationService
	sessions      ports.AuthenticationService
	resets        ports.PasswordResetService
	log           zerolog.Logger
}

func NewAuthHandler(
	registrations ports.RegistrationService,
	sessions ports.AuthenticationService,
	resets ports.PasswordResetService,
	log zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		registrations: registrations,
		sessions:      sessions,
		resets:        resets,
		log:           log.With().Str("component", "auth_handler").Logger(),
	}
}

type registerAdminRequest struct {
	FirstName   string `json:"first_name"   validate:"required"`
	LastName    string `json:"last_name"    validate:"required"`
	Username    string `json:"username"     validate:"required,min=3"`
	Email       string `json:"email"        validate:"required,email"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"     validate:"required,min=8"`
}

type registerAdminResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Status   string `json:"status"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Username  string `json:"username"`
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type forgotPasswordResponse struct {
	Email  string `json:"email"`
	Status string `json:"status"`
}

type resetPasswordRequest struct {
	Email           string `json:"email"            validate:"required,email"`
	NewPassword     string `json:"new_password"     validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

type completeResetRequest struct {
	Token           string `json:"token"            validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// isAuthFailure reports whether the login error is one of the credential
// failures that collapse into the opaque 401.
func isAuthFailure(err error) bool {
	return errors.Is(err, domain.ErrPrincipalNotFound) ||
		errors.Is(err, domain.ErrAccountNotEnabled) ||
		errors.Is(err, domain.ErrInvalidCredential)
}

// RegisterAdmin creates a disabled admin account and emails a
// confirmation link.
//
// @Summary      Register a new admin account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerAdminRequest  true  "Admin registration details"
// @Success      201   {object}  registerAdminResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) RegisterAdmin(c echo.Context) error {
	var req registerAdminRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	receipt, err := h.registrations.RegisterAdmin(c.Request().Context(), ports.AdminRegistrationInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Username:    req.Username,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
	})
	if err != nil {
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues(string(domain.KindAdmin)).Inc()
	metrics.ConfirmationTokensTotal.WithLabelValues(string(domain.PurposeAccountConfirmation), "issued").Inc()

	return c.JSON(http.StatusCreated, registerAdminResponse{
		Username: receipt.Principal.Username,
		Email:    receipt.Principal.Email,
		Status:   receipt.Status,
	})
}

// ConfirmAccount consumes a confirmation token and enables the account.
//
// @Summary      Confirm a registered account
// @Tags         auth
// @Produce      json
// @Param        token  query     string  true  "Confirmation token"
// @Success      200    {object}  statusResponse
// @Failure      400    {object}  map[string]string
// @Router       /auth/confirm [get]
func (h *AuthHandler) ConfirmAccount(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	status, err := h.registrations.ConfirmAccount(c.Request().Context(), token)
	if err != nil {
		return err
	}

	metrics.ConfirmationTokensTotal.WithLabelValues(string(domain.PurposeAccountConfirmation), "consumed").Inc()

	return c.JSON(http.StatusOK, statusResponse{Status: status})
}

// AdminLogin authenticates an admin and issues a bearer token.
//
// @Summary      Admin login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) AdminLogin(c echo.Context) error {
	return h.login(c, domain.KindAdmin)
}

// UserLogin authenticates a provisioned user and issues a bearer token.
//
// @Summary      User login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/user-login [post]
func (h *AuthHandler) UserLogin(c echo.Context) error {
	return h.login(c, domain.KindUser)
}

// login runs the shared credential check. Every authentication failure
// collapses into one generic 401 so the endpoint cannot be used to probe
// which usernames exist or which accounts are still disabled. The real
// cause stays in the logs. Infrastructure failures are not authentication
// failures and fall through to the central error handler as 5xx.
func (h *AuthHandler) login(c echo.Context, kind domain.PrincipalKind) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	receipt, err := h.sessions.Login(c.Request().Context(), kind, req.Username, req.Password)
	if err != nil {
		if !isAuthFailure(err) {
			return err
		}
		metrics.LoginsTotal.WithLabelValues("failed").Inc()
		h.log.Info().
			Err(err).
			Str("kind", string(kind)).
			Msg("login rejected")
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication failed")
	}

	metrics.LoginsTotal.WithLabelValues("ok").Inc()

	return c.JSON(http.StatusOK, loginResponse{
		Username:  receipt.Username,
		Token:     receipt.Token,
		TokenType: receipt.TokenType,
	})
}

// AdminForgotPassword initiates a password reset for an admin account.
//
// @Summary      Request an admin password reset
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      forgotPasswordRequest  true  "Account email"
// @Success      200   {object}  forgotPasswordResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /auth/forgot-password [post]
func (h *AuthHandler) AdminForgotPassword(c echo.Context) error {
	return h.forgotPassword(c, domain.KindAdmin)
}

// UserForgotPassword initiates a password reset for a user account.
//
// @Summary      Request a user password reset
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      forgotPasswordRequest  true  "Account email"
// @Success      200   {object}  forgotPasswordResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /auth/user-forgot-password [post]
func (h *AuthHandler) UserForgotPassword(c echo.Context) error {
	return h.forgotPassword(c, domain.KindUser)
}

func (h *AuthHandler) forgotPassword(c echo.Context, kind domain.PrincipalKind) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	receipt, err := h.resets.ForgotPassword(c.Request().Context(), kind, req.Email)
	if err != nil {
		return err
	}

	// an outstanding token being reused is not a fresh issuance
	if receipt.TokenIssued {
		metrics.ConfirmationTokensTotal.WithLabelValues(string(domain.PurposePasswordReset), "issued").Inc()
	}

	return c.JSON(http.StatusOK, forgotPasswordResponse{
		Email:  receipt.Email,
		Status: receipt.Status,
	})
}

// AdminResetPassword applies a direct, email-keyed password reset to an
// admin account.
//
// @Summary      Reset an admin password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "New password"
// @Success      200   {object}  statusResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /auth/reset-password [post]
func (h *AuthHandler) AdminResetPassword(c echo.Context) error {
	return h.resetPassword(c, domain.KindAdmin)
}

// UserResetPassword applies a direct, email-keyed password reset to a
// user account.
//
// @Summary      Reset a user password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "New password"
// @Success      200   {object}  statusResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /auth/user-reset-password [post]
func (h *AuthHandler) UserResetPassword(c echo.Context) error {
	return h.resetPassword(c, domain.KindUser)
}

func (h *AuthHandler) resetPassword(c echo.Context, kind domain.PrincipalKind) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	err := h.resets.ResetPassword(c.Request().Context(), kind, ports.PasswordResetInput{
		Email:           req.Email,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, statusResponse{Status: "password updated"})
}

// CompleteReset consumes a reset token from the emailed link and applies
// the new password.
//
// @Summary      Complete a password reset with a token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      completeResetRequest  true  "Reset token and new password"
// @Success      200   {object}  statusResponse
// @Failure      400   {object}  map[string]string
// @Router       /auth/reset-password/complete [post]
func (h *AuthHandler) CompleteReset(c echo.Context) error {
	var req completeResetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	err := h.resets.CompleteReset(c.Request().Context(), req.Token, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		return err
	}

	metrics.ConfirmationTokensTotal.WithLabelValues(string(domain.PurposePasswordReset), "consumed").Inc()

	return c.JSON(http.StatusOK, statusResponse{Status: "password updated"})
}
