package usecase

import (
	"context"
	"log/slog"

	"kyc-gate/internal/domain"
	"kyc-gate/internal/infrastructure/metrics"
	"kyc-gate/utils/logger"
)

// Gatekeeper answers whether a caller may navigate to a target.
// Every navigation entry point (links, history, programmatic) goes through MayNavigate.
type Gatekeeper struct {
	resolver IdentityResolver
	policy   domain.Policy
	logger   *slog.Logger
}

// NewGatekeeper creates a new Gatekeeper usecase.
func NewGatekeeper(r IdentityResolver, p domain.Policy, l *slog.Logger) *Gatekeeper {
	return &Gatekeeper{resolver: r, policy: p, logger: l}
}

// MayNavigate evaluates intent for the caller identified by cred.
// Only a malformed intent returns an error; identity failures fail open.
func (uc *Gatekeeper) MayNavigate(ctx context.Context, cred domain.Credential, intent domain.NavigationIntent) (domain.NavigationOutcome, error) {
	if err := intent.Validate(); err != nil {
		return domain.NavigationOutcome{}, err
	}
	target := intent.ResolvedTarget()
	ctx = logger.WithNavigation(ctx, string(intent.Source), target)

	// Shortcuts that never need an identity.
	if intent.Source == domain.SourceLink && domain.IsExternalTarget(intent.Target) {
		return uc.proceed(intent, domain.GateDecision{Approved: true, Reason: domain.ReasonExternalTarget}), nil
	}
	if uc.policy.IsOnboarding(target) {
		return uc.proceed(intent, domain.GateDecision{Approved: true, Reason: domain.ReasonExemptPath}), nil
	}

	identity := uc.resolver.Execute(ctx, cred)
	decision := uc.policy.Evaluate(identity, target)
	if decision.Approved {
		return uc.proceed(intent, decision), nil
	}

	outcome := domain.NavigationOutcome{Allowed: false, Decision: decision}
	switch intent.Source {
	case domain.SourceLink:
		outcome.Action = domain.ActionCancel
	case domain.SourceHistory:
		outcome.Action = domain.ActionRestore
		outcome.RestorePath = intent.CurrentPath
		if outcome.RestorePath == "" {
			outcome.RestorePath = uc.policy.OnboardingPath
		}
	case domain.SourceProgrammatic:
		outcome.Action = domain.ActionNoop
	}

	metrics.RecordDecision(string(intent.Source), string(decision.Reason), false)
	logger.FromContext(ctx, uc.logger).WarnContext(ctx, "navigation blocked: KYC not approved",
		"method", intent.Method,
		"action", outcome.Action,
		"reason", decision.Reason,
	)
	return outcome, nil
}

func (uc *Gatekeeper) proceed(intent domain.NavigationIntent, decision domain.GateDecision) domain.NavigationOutcome {
	metrics.RecordDecision(string(intent.Source), string(decision.Reason), true)
	return domain.NavigationOutcome{Allowed: true, Action: domain.ActionProceed, Decision: decision}
}
