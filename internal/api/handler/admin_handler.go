package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/deskforce/identity-system/internal/api/metrics"
	"github.com/deskforce/identity-system/internal/core/domain"
	"github.com/deskforce/identity-system/internal/core/ports"
)

// AdminHandler serves the admin-scoped management endpoints. Every route
// sits behind the Auth middleware plus an ADMIN role check, so the acting
// admin's identity always comes from verified claims, never the payload.
type AdminHandler struct {
	registrations ports.RegistrationService
	profiles      ports.ProfileService
	log           zerolog.Logger
}

func NewAdminHandler(
	registrations ports.RegistrationService,
	profiles ports.ProfileService,
	log zerolog.Logger,
) *AdminHandler {
	return &AdminHandler{
		registrations: registrations,
		profiles:      profiles,
		log:           log.With().Str("component", "admin_handler").Logger(),
	}
}

type registerUserRequest struct {
	FullName    string `json:"full_name"    validate:"required"`
	Username    string `json:"username"     validate:"required,min=3"`
	Email       string `json:"email"        validate:"required,email"`
	PhoneNumber string `json:"phone_number"`
	JobTitle    string `json:"job_title"`
	Department  string `json:"department"`
	Password    string `json:"password"     validate:"required,min=8"`
}

type registerUserResponse struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	CreatedUnder string `json:"created_under"`
	Status       string `json:"status"`
}

type editDetailsRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	FullName    string `json:"full_name"`
	Email       string `json:"email" validate:"omitempty,email"`
	PhoneNumber string `json:"phone_number"`
}

// RegisterUser provisions an enabled user account under the acting admin.
//
// @Summary      Provision a user account
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body  body      registerUserRequest  true  "User account details"
// @Success      201   {object}  registerUserResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Security     BearerAuth
// @Router       /admin/users [post]
func (h *AdminHandler) RegisterUser(c echo.Context) error {
	actingAdmin, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req registerUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	receipt, err := h.registrations.RegisterUser(c.Request().Context(), actingAdmin, ports.UserRegistrationInput{
		FullName:    req.FullName,
		Username:    req.Username,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		JobTitle:    req.JobTitle,
		Department:  req.Department,
		Password:    req.Password,
	})
	if err != nil {
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues(string(domain.KindUser)).Inc()

	return c.JSON(http.StatusCreated, registerUserResponse{
		Username:     receipt.Principal.Username,
		Email:        receipt.Principal.Email,
		CreatedUnder: receipt.CreatedUnder,
		Status:       receipt.Status,
	})
}

// EditUserDetails updates the profile fields of a provisioned user.
//
// @Summary      Edit a user's profile details
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        username  path      string              true  "Username of the user to edit"
// @Param        body      body      editDetailsRequest  true  "Profile fields to overwrite"
// @Success      200       {object}  statusResponse
// @Failure      400       {object}  map[string]string
// @Failure      401       {object}  map[string]string
// @Failure      403       {object}  map[string]string
// @Failure      404       {object}  map[string]string
// @Security     BearerAuth
// @Router       /admin/users/{username} [put]
func (h *AdminHandler) EditUserDetails(c echo.Context) error {
	if _, _, err := ctxIdentity(c); err != nil {
		return err
	}

	username := c.Param("username")
	if username == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username is required")
	}

	var req editDetailsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	status, err := h.profiles.EditDetails(c.Request().Context(), domain.KindUser, username, ports.DetailsUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		FullName:    req.FullName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, statusResponse{Status: status})
}

// EditOwnDetails updates the authenticated principal's own profile.
//
// @Summary      Edit the caller's profile details
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        body  body      editDetailsRequest  true  "Profile fields to overwrite"
// @Success      200   {object}  statusResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Security     BearerAuth
// @Router       /me [put]
func (h *AdminHandler) EditOwnDetails(c echo.Context) error {
	username, kind, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req editDetailsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	status, err := h.profiles.EditDetails(c.Request().Context(), kind, username, ports.DetailsUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		FullName:    req.FullName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, statusResponse{Status: status})
}
