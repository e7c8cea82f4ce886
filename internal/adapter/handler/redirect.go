package handler

import (
	"net/http"
	"strconv"

	"kyc-gate/internal/adapter/credential"
	"kyc-gate/internal/usecase"

	"github.com/labstack/echo/v4"
)

// RedirectHandler exposes the redirect coordinator.
type RedirectHandler struct {
	uc    *usecase.CoordinateRedirect
	creds credential.Extractor
}

// NewRedirectHandler creates a new redirect handler.
func NewRedirectHandler(uc *usecase.CoordinateRedirect, creds credential.Extractor) *RedirectHandler {
	return &RedirectHandler{uc: uc, creds: creds}
}

type redirectResponse struct {
	State      string `json:"state"`
	RedirectTo string `json:"redirect_to,omitempty"`
	Replace    bool   `json:"replace"`
	Reason     string `json:"reason,omitempty"`
}

// Handle processes GET /v1/kyc/redirect. With wait=false it answers from the
// cache and may report the checking state.
func (h *RedirectHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()
	cred := h.creds.FromRequest(c.Request())
	path := c.QueryParam("path")
	if path == "" {
		path = "/"
	}

	wait := true
	if raw := c.QueryParam("wait"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wait must be a boolean")
		}
		wait = parsed
	}

	var result usecase.RedirectResult
	if wait {
		result = h.uc.Execute(ctx, cred, path)
	} else {
		result = h.uc.Snapshot(ctx, cred, path)
	}

	return c.JSON(http.StatusOK, redirectResponse{
		State:      string(result.State),
		RedirectTo: result.RedirectTo,
		Replace:    result.Replace,
		Reason:     string(result.Decision.Reason),
	})
}
