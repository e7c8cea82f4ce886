package handler

import (
	"log/slog"
	"net/http"

	"kyc-gate/internal/domain"
	"kyc-gate/internal/usecase"

	"github.com/labstack/echo/v4"
)

// InternalHandler handles internal service-to-service requests.
type InternalHandler struct {
	uc *usecase.InvalidateIdentity
}

// NewInternalHandler creates a new internal handler.
func NewInternalHandler(uc *usecase.InvalidateIdentity) *InternalHandler {
	return &InternalHandler{uc: uc}
}

// invalidateRequest names either an identity ID or an exact cache key.
type invalidateRequest struct {
	UserID string `json:"user_id" validate:"required_without=Key,max=512"`
	Key    string `json:"key" validate:"required_without=UserID,max=512"`
}

type invalidateResponse struct {
	Dropped int `json:"dropped"`
}

// HandleInvalidate drops cached identities after a KYC transition.
func (h *InternalHandler) HandleInvalidate(c echo.Context) error {
	ctx := c.Request().Context()

	var req invalidateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	inv := domain.Invalidation{Kind: domain.InvalidateByUser, Value: req.UserID}
	if req.UserID == "" {
		inv = domain.Invalidation{Kind: domain.InvalidateByKey, Value: req.Key}
	}

	dropped, err := h.uc.Execute(ctx, inv)
	if err != nil {
		slog.ErrorContext(ctx, "failed to invalidate identity", "error", err, "remote_addr", c.RealIP())
		return mapDomainError(err)
	}

	slog.InfoContext(ctx, "identity invalidated", "kind", inv.Kind, "dropped", dropped, "remote_addr", c.RealIP())
	return c.JSON(http.StatusOK, invalidateResponse{Dropped: dropped})
}
