package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/schedauth"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type platformResponse struct {
	ID             string     `json:"id"`
	Provider       string     `json:"provider"`
	ProviderUserID string     `json:"provider_user_id,omitempty"`
	Scope          string     `json:"scope,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (a *API) listPlatforms(c echo.Context) error {
	list, err := a.engine.ListPlatforms(c.Request().Context(), accountID(c))
	if err != nil {
		return a.httpError(c, err)
	}
	out := make([]platformResponse, 0, len(list))
	for _, p := range list {
		out = append(out, platformResponse{
			ID:             p.ID,
			Provider:       p.Provider,
			ProviderUserID: p.ProviderUserID,
			Scope:          p.Scope,
			TokenExpiresAt: p.TokenExpiresAt,
			CreatedAt:      p.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (a *API) connectStart(c echo.Context) error {
	name := strings.ToLower(c.Param("provider"))
	client, ok := a.providers.Get(name)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "provider not configured")
	}
	state, err := a.engine.CreateOAuthState(c.Request().Context(), accountID(c), name)
	if err != nil {
		return a.httpError(c, err)
	}
	authURL, err := client.AuthURL(state)
	if err != nil {
		return a.httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"auth_url": authURL})
}

// platformCallback is reached by the provider's redirect, so it carries
// no bearer token; the consumed state names the account.
func (a *API) platformCallback(c echo.Context) error {
	ctx := c.Request().Context()
	name := strings.ToLower(c.Param("provider"))
	if c.QueryParam("error") != "" {
		return echo.NewHTTPError(http.StatusBadRequest, "authorization denied")
	}
	code, state := c.QueryParam("code"), c.QueryParam("state")
	if code == "" || state == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing code or state")
	}
	client, ok := a.providers.Get(name)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "provider not configured")
	}

	bound, ok, err := a.engine.ConsumeOAuthState(ctx, state)
	if err != nil {
		return a.httpError(c, err)
	}
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid or expired state")
	}
	if bound.Provider != name {
		return echo.NewHTTPError(http.StatusBadRequest, "state provider mismatch")
	}

	tok, err := client.Exchange(ctx, code)
	if err != nil {
		return a.httpError(c, err)
	}
	profile, err := client.UserInfo(ctx, tok.AccessToken)
	if err != nil {
		a.log.Warn("provider_profile_failed", zap.String("provider", name), zap.Error(err))
	}

	link, err := a.engine.LinkPlatform(ctx, schedauth.LinkPlatformRequest{
		AccountID:      bound.AccountID,
		Provider:       name,
		ProviderUserID: profile.ID,
		AccessToken:    tok.AccessToken,
		RefreshToken:   tok.RefreshToken,
		ExpiresAt:      tok.ExpiresAt,
		Scope:          tok.Scope,
		Metadata:       profile.Raw,
	})
	if err != nil {
		return a.httpError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":       "connected",
		"provider":     name,
		"connected_id": link.ID,
	})
}

func (a *API) unlinkPlatform(c echo.Context) error {
	if err := a.engine.UnlinkPlatform(c.Request().Context(), accountID(c), c.Param("id")); err != nil {
		return a.httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
