package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kyc-gate/internal/domain"
)

// StatusView is the provider-level view of the caller's KYC state.
// IsApproved is nil when no identity could be resolved.
type StatusView struct {
	IsApproved *bool
	IsLoading  bool
	User       *domain.Identity
	Decision   domain.GateDecision
}

// GetKycStatus exposes the caller's identity and approval state.
type GetKycStatus struct {
	resolver    IdentityResolver
	invalidator *InvalidateIdentity
	policy      domain.Policy
	logger      *slog.Logger
}

// NewGetKycStatus creates a new GetKycStatus usecase.
func NewGetKycStatus(r IdentityResolver, inv *InvalidateIdentity, p domain.Policy, l *slog.Logger) *GetKycStatus {
	return &GetKycStatus{resolver: r, invalidator: inv, policy: p, logger: l}
}

// Execute resolves the identity and evaluates it against path ("/" when empty).
func (uc *GetKycStatus) Execute(ctx context.Context, cred domain.Credential, path string) StatusView {
	return uc.view(uc.resolver.Execute(ctx, cred), path)
}

// Snapshot builds the view from the cache only. cached is false when the
// identity still has to be fetched; IsLoading is then set only while a fetch
// for the caller's key is already in flight.
func (uc *GetKycStatus) Snapshot(cred domain.Credential, path string) (view StatusView, cached bool) {
	identity, resolved := uc.resolver.Peek(cred)
	if resolved {
		return uc.view(identity, path), true
	}
	key, err := uc.resolver.Key(cred)
	if err != nil {
		return StatusView{}, false
	}
	return StatusView{IsLoading: uc.resolver.InFlight(key)}, false
}

// View builds the status view for an already known identity.
func (uc *GetKycStatus) View(identity *domain.Identity, path string) StatusView {
	return uc.view(identity, path)
}

// Recheck discards the cached identity, notifies subscribers and resolves again.
func (uc *GetKycStatus) Recheck(ctx context.Context, cred domain.Credential, path string) (StatusView, error) {
	if cred.IsZero() {
		return StatusView{}, domain.ErrCredentialMissing
	}
	key, err := uc.resolver.Key(cred)
	if err != nil {
		return StatusView{}, err
	}

	if _, err := uc.invalidator.Execute(ctx, domain.Invalidation{Kind: domain.InvalidateByKey, Value: key}); err != nil {
		if !errors.Is(err, domain.ErrBroadcastFailed) {
			return StatusView{}, fmt.Errorf("recheck: %w", err)
		}
		// The local entry is gone; other instances catch up on TTL.
		uc.logger.WarnContext(ctx, "recheck proceeding without broadcast", "error", err)
	}
	uc.resolver.Forget(key)

	return uc.view(uc.resolver.Execute(ctx, cred), path), nil
}

func (uc *GetKycStatus) view(identity *domain.Identity, path string) StatusView {
	if path == "" {
		path = "/"
	}
	decision := uc.policy.Evaluate(identity, path)
	view := StatusView{User: identity, Decision: decision}
	if identity != nil {
		approved := decision.Approved
		view.IsApproved = &approved
	}
	return view
}
