package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"kyc-gate/internal/domain"
	"kyc-gate/internal/infrastructure/metrics"
	"kyc-gate/utils/logger"
)

// InvalidateIdentity drops cached identities locally and, when a publisher is
// configured, on every other instance.
type InvalidateIdentity struct {
	store     domain.IdentityStore
	publisher domain.InvalidationPublisher
	logger    *slog.Logger
}

// NewInvalidateIdentity creates a new InvalidateIdentity usecase. publisher may be nil.
func NewInvalidateIdentity(s domain.IdentityStore, p domain.InvalidationPublisher, l *slog.Logger) *InvalidateIdentity {
	return &InvalidateIdentity{store: s, publisher: p, logger: l}
}

// Execute applies inv and returns how many local entries were dropped.
func (uc *InvalidateIdentity) Execute(ctx context.Context, inv domain.Invalidation) (int, error) {
	if err := inv.Validate(); err != nil {
		return 0, err
	}

	var dropped int
	switch inv.Kind {
	case domain.InvalidateByKey:
		if _, found := uc.store.Get(inv.Value); found {
			dropped = 1
		}
		uc.store.Invalidate(inv.Value)
	case domain.InvalidateByUser:
		ctx = logger.WithUserID(ctx, inv.Value)
		dropped = uc.store.InvalidateUser(inv.Value)
	}
	metrics.RecordInvalidation("local")
	logger.FromContext(ctx, uc.logger).InfoContext(ctx, "identity invalidated", "kind", inv.Kind, "dropped", dropped)

	if uc.publisher == nil {
		return dropped, nil
	}
	if err := uc.publisher.PublishInvalidation(ctx, inv); err != nil {
		uc.logger.ErrorContext(ctx, "failed to broadcast invalidation", "kind", inv.Kind, "error", err)
		return dropped, fmt.Errorf("%w: %w", domain.ErrBroadcastFailed, err)
	}
	return dropped, nil
}
