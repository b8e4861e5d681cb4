package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type otpBody struct {
	Action string `json:"action"`
	Code   string `json:"code"`
}

func (r *otpBody) defaults() {
	if r.Action == "" {
		r.Action = "login"
	}
}

// otpRequest mails a code to the caller. The code is echoed back only
// when the Engine is configured to reveal it.
func (a *API) otpRequest(c echo.Context) error {
	var req otpBody
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	req.defaults()
	code, err := a.engine.SendOTP(c.Request().Context(), accountID(c), req.Action)
	if err != nil {
		return a.httpError(c, err)
	}
	resp := echo.Map{"status": "sent", "method": "email"}
	if code != "" {
		resp["otp"] = code
	}
	return c.JSON(http.StatusAccepted, resp)
}

func (a *API) otpVerify(c echo.Context) error {
	var req otpBody
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	req.defaults()
	ok, err := a.engine.VerifyOTP(c.Request().Context(), accountID(c), req.Action, req.Code)
	if err != nil {
		return a.httpError(c, err)
	}
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid or expired code")
	}
	return c.JSON(http.StatusOK, echo.Map{"verified": true})
}
