package handler

import (
	"net/http"

	"kyc-gate/internal/adapter/credential"
	"kyc-gate/internal/domain"
	"kyc-gate/internal/usecase"

	"github.com/labstack/echo/v4"
)

// NavigationHandler handles navigation checks from the storefront router.
type NavigationHandler struct {
	uc    *usecase.Gatekeeper
	creds credential.Extractor
}

// NewNavigationHandler creates a new navigation handler.
func NewNavigationHandler(uc *usecase.Gatekeeper, creds credential.Extractor) *NavigationHandler {
	return &NavigationHandler{uc: uc, creds: creds}
}

type navigationRequest struct {
	Target      string `json:"target" validate:"required,max=2048"`
	CurrentPath string `json:"current_path" validate:"max=2048"`
	Source      string `json:"source" validate:"required,nav_source"`
	Method      string `json:"method" validate:"nav_method"`
}

type navigationResponse struct {
	Allowed     bool   `json:"allowed"`
	Action      string `json:"action"`
	RestorePath string `json:"restore_path,omitempty"`
	Reason      string `json:"reason"`
}

// Handle processes POST /v1/navigation/check.
func (h *NavigationHandler) Handle(c echo.Context) error {
	var req navigationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	outcome, err := h.uc.MayNavigate(c.Request().Context(), h.creds.FromRequest(c.Request()), domain.NavigationIntent{
		Target:      req.Target,
		CurrentPath: req.CurrentPath,
		Source:      domain.NavigationSource(req.Source),
		Method:      domain.NavigationMethod(req.Method),
	})
	if err != nil {
		return mapDomainError(err)
	}

	return c.JSON(http.StatusOK, navigationResponse{
		Allowed:     outcome.Allowed,
		Action:      string(outcome.Action),
		RestorePath: outcome.RestorePath,
		Reason:      string(outcome.Decision.Reason),
	})
}
