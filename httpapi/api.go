package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/schedauth"
	"github.com/MrEthical07/schedauth/internal/provider"
	"github.com/MrEthical07/schedauth/metrics/export/prometheus"
	"github.com/MrEthical07/schedauth/middleware"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const refreshCookieName = "refresh_token"

type CookieOptions struct {
	Secure   bool
	SameSite http.SameSite
	Domain   string
}

type Options struct {
	Engine    *schedauth.Engine
	Providers provider.Registry
	Cookie    CookieOptions
	// TrustProxy makes audit events use the first X-Forwarded-For entry.
	TrustProxy bool
	Logger     *zap.Logger
}

type API struct {
	engine    *schedauth.Engine
	providers provider.Registry
	cookie    CookieOptions
	log       *zap.Logger
}

// Register mounts every route on e.
func Register(e *echo.Echo, opts Options) *API {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	api := &API{
		engine:    opts.Engine,
		providers: opts.Providers,
		cookie:    opts.Cookie,
		log:       log.Named("http"),
	}
	if api.providers == nil {
		api.providers = provider.Registry{}
	}

	e.Use(api.accessLog)
	e.Use(echo.WrapMiddleware(middleware.ClientInfo(opts.TrustProxy)))

	e.GET("/health/live", api.live)
	e.GET("/health/ready", api.readyz)
	e.GET("/metrics", echo.WrapHandler(prometheus.New(opts.Engine).Handler()))

	auth := e.Group("/auth")
	auth.POST("/register", api.register)
	auth.POST("/login", api.login)
	auth.POST("/refresh", api.refresh)
	auth.POST("/logout", api.logout)

	requireAccess := echo.WrapMiddleware(middleware.RequireAccess(opts.Engine))

	otp := auth.Group("/otp", requireAccess)
	otp.POST("/request", api.otpRequest)
	otp.POST("/verify", api.otpVerify)

	e.GET("/users/me", api.me)

	e.GET("/platforms/:provider/callback", api.platformCallback)
	platforms := e.Group("/platforms", requireAccess)
	platforms.GET("", api.listPlatforms)
	platforms.GET("/:provider/connect/start", api.connectStart)
	platforms.DELETE("/:id", api.unlinkPlatform)

	return api
}

func (a *API) accessLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		a.log.Debug("request",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().Status),
			zap.Duration("latency", time.Since(start)),
		)
		return nil
	}
}

func (a *API) live(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (a *API) readyz(c echo.Context) error {
	if err := a.engine.Ready(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "not ready")
	}
	return c.NoContent(http.StatusOK)
}

// accountID is only valid behind RequireAccess.
func accountID(c echo.Context) string {
	claims, ok := middleware.ClaimsFromContext(c.Request().Context())
	if !ok {
		return ""
	}
	return claims.Subject
}

// httpError translates Engine failures. Messages never say which part of
// a credential was wrong.
func (a *API) httpError(c echo.Context, err error) error {
	status, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, schedauth.ErrPasswordPolicy):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, schedauth.ErrInvalidRequest):
		status, msg = http.StatusBadRequest, "invalid request"
	case errors.Is(err, schedauth.ErrConflict):
		status, msg = http.StatusConflict, "already exists"
	case errors.Is(err, schedauth.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, schedauth.ErrTokenInvalid), errors.Is(err, schedauth.ErrRevoked):
		status, msg = http.StatusUnauthorized, "invalid token"
	case errors.Is(err, schedauth.ErrAccountLocked):
		status, msg = http.StatusLocked, "account temporarily locked"
	case errors.Is(err, schedauth.ErrAccountDisabled):
		status, msg = http.StatusForbidden, "account disabled"
	case errors.Is(err, schedauth.ErrRateLimited):
		status, msg = http.StatusTooManyRequests, "too many requests"
	case errors.Is(err, schedauth.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, schedauth.ErrDeliveryFailure):
		status, msg = http.StatusBadGateway, "could not send code"
	case errors.Is(err, provider.ErrNotConfigured):
		status, msg = http.StatusNotFound, "provider not configured"
	case errors.Is(err, provider.ErrExchange):
		status, msg = http.StatusBadGateway, "token exchange failed"
	case errors.Is(err, schedauth.ErrUnavailable), errors.Is(err, schedauth.ErrEngineNotReady):
		status, msg = http.StatusServiceUnavailable, "service unavailable"
	}
	if status >= http.StatusInternalServerError {
		a.log.Warn("request_failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return echo.NewHTTPError(status, msg)
}
