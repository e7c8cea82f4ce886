package handler

import (
	"log/slog"
	"net/http"

	"kyc-gate/internal/adapter/credential"
	"kyc-gate/internal/usecase"

	"github.com/labstack/echo/v4"
)

// CSRFHandler handles CSRF token requests.
type CSRFHandler struct {
	uc    *usecase.GenerateCSRF
	creds credential.Extractor
}

// NewCSRFHandler creates a new CSRF handler.
func NewCSRFHandler(uc *usecase.GenerateCSRF, creds credential.Extractor) *CSRFHandler {
	return &CSRFHandler{uc: uc, creds: creds}
}

// csrfResponse represents the CSRF token response.
type csrfResponse struct {
	Data struct {
		CSRFToken string `json:"csrf_token"`
	} `json:"data"`
}

// Handle processes CSRF token requests.
func (h *CSRFHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()

	cred := h.creds.FromRequest(c.Request())
	if cred.IsZero() {
		slog.WarnContext(ctx, "csrf token request without credential")
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "credential required",
		})
	}

	token, err := h.uc.Execute(ctx, cred)
	if err != nil {
		return mapDomainError(err)
	}

	slog.InfoContext(ctx, "csrf token generated")

	resp := csrfResponse{}
	resp.Data.CSRFToken = token
	return c.JSON(http.StatusOK, resp)
}
