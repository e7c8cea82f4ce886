package usecase

import (
	"context"
	"log/slog"

	"kyc-gate/internal/domain"
)

// RedirectResult is the outcome of one redirect coordination cycle.
type RedirectResult struct {
	State      domain.RedirectState
	RedirectTo string
	Replace    bool
	Decision   domain.GateDecision
	Identity   *domain.Identity
}

// CoordinateRedirect moves a caller who is already on a gated page to onboarding.
type CoordinateRedirect struct {
	resolver IdentityResolver
	policy   domain.Policy
	logger   *slog.Logger
}

// NewCoordinateRedirect creates a new CoordinateRedirect usecase.
func NewCoordinateRedirect(r IdentityResolver, p domain.Policy, l *slog.Logger) *CoordinateRedirect {
	return &CoordinateRedirect{resolver: r, policy: p, logger: l}
}

// Execute resolves the identity and returns the terminal state for currentPath.
func (uc *CoordinateRedirect) Execute(ctx context.Context, cred domain.Credential, currentPath string) RedirectResult {
	identity := uc.resolver.Execute(ctx, cred)
	return uc.settle(ctx, identity, currentPath)
}

// Snapshot reports the state without waiting for a fetch. It returns
// RedirectChecking when the identity is not cached yet.
func (uc *CoordinateRedirect) Snapshot(ctx context.Context, cred domain.Credential, currentPath string) RedirectResult {
	identity, resolved := uc.resolver.Peek(cred)
	if !resolved {
		return RedirectResult{State: domain.RedirectChecking}
	}
	return uc.settle(ctx, identity, currentPath)
}

func (uc *CoordinateRedirect) settle(ctx context.Context, identity *domain.Identity, currentPath string) RedirectResult {
	decision := uc.policy.Evaluate(identity, currentPath)
	result := RedirectResult{
		State:    domain.RedirectStateFor(decision),
		Decision: decision,
		Identity: identity,
	}
	if result.State == domain.RedirectBlocked && !uc.policy.IsOnboarding(currentPath) {
		result.RedirectTo = uc.policy.OnboardingPath
		result.Replace = true
		uc.logger.InfoContext(ctx, "redirecting to onboarding", "path", domain.NormalizePath(currentPath), "reason", decision.Reason)
	}
	return result
}
