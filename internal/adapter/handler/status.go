package handler

import (
	"log/slog"
	"net/http"

	"kyc-gate/internal/adapter/credential"
	"kyc-gate/internal/domain"
	"kyc-gate/internal/usecase"

	"github.com/labstack/echo/v4"
)

// HeaderCSRFToken carries the token issued by POST /csrf.
const HeaderCSRFToken = "X-CSRF-Token"

// StatusHandler exposes the provider view and the recheck operation.
type StatusHandler struct {
	status *usecase.GetKycStatus
	csrf   *usecase.GenerateCSRF
	creds  credential.Extractor
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(status *usecase.GetKycStatus, csrf *usecase.GenerateCSRF, creds credential.Extractor) *StatusHandler {
	return &StatusHandler{status: status, csrf: csrf, creds: creds}
}

type userResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	KYCStatus string `json:"kyc_status"`
}

// statusResponse mirrors the client-side provider: is_approved is null when unknown.
type statusResponse struct {
	IsApproved *bool         `json:"is_approved"`
	IsLoading  bool          `json:"is_loading"`
	User       *userResponse `json:"user"`
	Reason     string        `json:"reason,omitempty"`
}

func newStatusResponse(view usecase.StatusView) statusResponse {
	resp := statusResponse{
		IsApproved: view.IsApproved,
		IsLoading:  view.IsLoading,
		Reason:     string(view.Decision.Reason),
	}
	if view.User != nil {
		resp.User = newUserResponse(view.User)
	}
	return resp
}

func newUserResponse(identity *domain.Identity) *userResponse {
	return &userResponse{
		ID:        identity.ID,
		Type:      identity.Type,
		KYCStatus: string(identity.KYCStatus),
	}
}

// HandleStatus processes GET /v1/kyc/status.
func (h *StatusHandler) HandleStatus(c echo.Context) error {
	view := h.status.Execute(c.Request().Context(), h.creds.FromRequest(c.Request()), c.QueryParam("path"))
	return c.JSON(http.StatusOK, newStatusResponse(view))
}

// HandleRecheck processes POST /v1/kyc/recheck.
func (h *StatusHandler) HandleRecheck(c echo.Context) error {
	ctx := c.Request().Context()
	cred := h.creds.FromRequest(c.Request())

	if err := h.csrf.Verify(cred, c.Request().Header.Get(HeaderCSRFToken)); err != nil {
		slog.WarnContext(ctx, "recheck rejected", "error", err, "remote_addr", c.RealIP())
		return mapDomainError(err)
	}

	view, err := h.status.Recheck(ctx, cred, c.QueryParam("path"))
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, newStatusResponse(view))
}
