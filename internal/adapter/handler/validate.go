package handler

import (
	"net/http"

	"kyc-gate/internal/adapter/credential"
	"kyc-gate/internal/domain"
	"kyc-gate/internal/usecase"

	"github.com/labstack/echo/v4"
)

// Forward-auth headers.
const (
	HeaderForwardedURI = "X-Forwarded-Uri"
	HeaderOriginalURI  = "X-Original-URI"
	HeaderKycRedirect  = "X-Kyc-Redirect"
	HeaderKycReason    = "X-Kyc-Reason"
	HeaderKycUserID    = "X-Kyc-User-Id"
	HeaderKycStatus    = "X-Kyc-Status"
)

// ValidateHandler handles /validate endpoint for nginx auth_request.
type ValidateHandler struct {
	uc    *usecase.CoordinateRedirect
	creds credential.Extractor
}

// NewValidateHandler creates a new validate handler.
func NewValidateHandler(uc *usecase.CoordinateRedirect, creds credential.Extractor) *ValidateHandler {
	return &ValidateHandler{uc: uc, creds: creds}
}

// Handle answers 200 when the original request may proceed and 403 with the
// onboarding location when it must be redirected.
func (h *ValidateHandler) Handle(c echo.Context) error {
	req := c.Request()
	target := req.Header.Get(HeaderForwardedURI)
	if target == "" {
		target = req.Header.Get(HeaderOriginalURI)
	}
	if target == "" {
		target = "/"
	}

	result := h.uc.Execute(req.Context(), h.creds.FromRequest(req), target)

	header := c.Response().Header()
	header.Set(HeaderKycReason, string(result.Decision.Reason))
	if result.Identity != nil {
		header.Set(HeaderKycUserID, result.Identity.ID)
		header.Set(HeaderKycStatus, string(result.Identity.KYCStatus))
	}

	if result.State == domain.RedirectBlocked {
		header.Set(HeaderKycRedirect, result.RedirectTo)
		return c.NoContent(http.StatusForbidden)
	}
	return c.NoContent(http.StatusOK)
}
