package httpapi

import (
	"net/http"
	"time"

	"github.com/MrEthical07/schedauth"
	"github.com/MrEthical07/schedauth/middleware"
	"github.com/labstack/echo/v4"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type accountResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func toAccountResponse(a *schedauth.Account) accountResponse {
	return accountResponse{
		ID:          a.ID,
		Email:       a.Email,
		Username:    a.Username,
		CreatedAt:   a.CreatedAt,
		LastLoginAt: a.LastLoginAt,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (a *API) register(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	acct, err := a.engine.Register(c.Request().Context(), req.Email, req.Username, req.Password)
	if err != nil {
		return a.httpError(c, err)
	}
	return c.JSON(http.StatusCreated, toAccountResponse(acct))
}

func (a *API) login(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	_, pair, err := a.engine.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return a.httpError(c, err)
	}
	return a.issue(c, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refresh reads the cookie first and falls back to the body for clients
// that cannot hold cookies.
func (a *API) refresh(c echo.Context) error {
	token := a.refreshToken(c)
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing refresh token")
	}
	pair, err := a.engine.Refresh(c.Request().Context(), token)
	if err != nil {
		a.clearRefreshCookie(c)
		return a.httpError(c, err)
	}
	return a.issue(c, pair)
}

func (a *API) refreshToken(c echo.Context) string {
	if ck, err := c.Cookie(refreshCookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return ""
	}
	return req.RefreshToken
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
	RevokeAll    bool   `json:"revoke_all"`
}

// logout succeeds whatever the client sends; revocation problems are
// logged by the Engine.
func (a *API) logout(c echo.Context) error {
	var req logoutRequest
	_ = c.Bind(&req)
	if ck, err := c.Cookie(refreshCookieName); err == nil && ck.Value != "" {
		req.RefreshToken = ck.Value
	}
	access, _ := middleware.BearerToken(c.Request().Header.Get("Authorization"))

	a.engine.Logout(c.Request().Context(), schedauth.LogoutRequest{
		AccessToken:  access,
		RefreshToken: req.RefreshToken,
		RevokeAll:    req.RevokeAll,
	})
	a.clearRefreshCookie(c)
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

func (a *API) me(c echo.Context) error {
	token, ok := middleware.BearerToken(c.Request().Header.Get("Authorization"))
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	acct, err := a.engine.CurrentAccount(c.Request().Context(), token)
	if err != nil {
		return a.httpError(c, err)
	}
	return c.JSON(http.StatusOK, toAccountResponse(acct))
}

func (a *API) issue(c echo.Context, pair *schedauth.TokenPair) error {
	now := time.Now()
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.Refresh.Token,
		Path:     "/auth",
		Domain:   a.cookie.Domain,
		Expires:  pair.Refresh.ExpiresAt,
		MaxAge:   maxAge(pair.Refresh.ExpiresAt, now),
		HttpOnly: true,
		Secure:   a.cookie.Secure,
		SameSite: a.cookie.SameSite,
	})
	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken: pair.Access.Token,
		TokenType:   "bearer",
		ExpiresIn:   int64(maxAge(pair.Access.ExpiresAt, now)),
	})
}

func maxAge(exp, now time.Time) int {
	secs := int(exp.Sub(now) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

func (a *API) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/auth",
		Domain:   a.cookie.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cookie.Secure,
		SameSite: a.cookie.SameSite,
	})
}
