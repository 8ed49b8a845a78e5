package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/deskforce/identity-system/internal/api/handler"
	"github.com/deskforce/identity-system/internal/api/middleware"
	"github.com/deskforce/identity-system/internal/core/domain"
	"github.com/deskforce/identity-system/internal/core/ports"
	"github.com/deskforce/identity-system/internal/core/service"
	"github.com/deskforce/identity-system/internal/infrastructure/config"
	mongostore "github.com/deskforce/identity-system/internal/infrastructure/db/mongo"
	redislock "github.com/deskforce/identity-system/internal/infrastructure/db/redis"
	"github.com/deskforce/identity-system/internal/infrastructure/security"
)

// NewRouter builds the Echo instance with every route registered. The
// notifier is passed in because its delivery workers have a lifecycle the
// caller owns.
func NewRouter(
	cfg *config.Config,
	db *mongo.Database,
	rdb *redis.Client,
	notifier ports.Notifier,
	log zerolog.Logger,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("identity"))

	// --- Infrastructure adapters ---
	principals := mongostore.NewPrincipalRepository(db)
	roles := mongostore.NewRoleRepository(db)
	sessionTokens := mongostore.NewSessionTokenRepository(db)
	confirmationTokens := mongostore.NewConfirmationTokenRepository(db)

	hasher := security.NewBcryptHasher()
	signer := security.NewJWTSigner(cfg.JWTSecret, cfg.TokenTTL)

	var locker ports.PrincipalLocker
	if rdb != nil {
		locker = redislock.NewLoginLock(rdb)
	} else {
		locker = service.NewLocalLocker()
	}

	// --- Core flows ---
	sessions := service.NewSessionTokenLedger(sessionTokens, signer, log)
	confirmations := service.NewConfirmationTokenLedger(confirmationTokens, cfg.ConfirmationTTL, log)

	registrations := service.NewRegistrationFlow(principals, roles, hasher, confirmations, notifier, cfg.BaseURL, log)
	authentication := service.NewAuthenticationFlow(principals, hasher, signer, sessions, locker, log)
	resets := service.NewPasswordResetFlow(principals, hasher, confirmations, notifier, cfg.BaseURL, log)
	profiles := service.NewProfileFlow(principals, log)

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(registrations, authentication, resets, log)
	adminHandler := handler.NewAdminHandler(registrations, profiles, log)
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(db, rdb)

	authenticated := middleware.Auth(sessions)

	// --- Public auth routes ---
	auth := e.Group("/auth")
	auth.POST("/register", authHandler.RegisterAdmin)
	auth.GET("/confirm", authHandler.ConfirmAccount)
	auth.POST("/login", authHandler.AdminLogin)
	auth.POST("/user-login", authHandler.UserLogin)
	auth.POST("/forgot-password", authHandler.AdminForgotPassword)
	auth.POST("/user-forgot-password", authHandler.UserForgotPassword)
	auth.POST("/reset-password", authHandler.AdminResetPassword)
	auth.POST("/user-reset-password", authHandler.UserResetPassword)
	auth.POST("/reset-password/complete", authHandler.CompleteReset)

	// --- Admin-scoped management routes ---
	admin := e.Group("/admin", authenticated, middleware.RBAC(domain.RoleAdmin))
	admin.POST("/users", adminHandler.RegisterUser)
	admin.PUT("/users/:username", adminHandler.EditUserDetails)

	// --- Self-service profile route ---
	e.PUT("/me", adminHandler.EditOwnDetails, authenticated)

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operational endpoints ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	return e
}
