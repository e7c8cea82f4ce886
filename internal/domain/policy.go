package domain

import (
	"net/url"
	"path"
	"strings"
)

// DefaultOnboardingPath is the only route exempt from KYC gating.
const DefaultOnboardingPath = "/onboarding"

// Reason explains a GateDecision.
type Reason string

const (
	ReasonExemptPath     Reason = "exempt_path"
	ReasonExternalTarget Reason = "external_target"
	ReasonNoIdentity     Reason = "no_identity"
	ReasonNonCustomer    Reason = "non_customer"
	ReasonKYCApproved    Reason = "kyc_approved"
	ReasonKYCNotApproved Reason = "kyc_not_approved"
)

// GateDecision is derived fresh for every evaluation and never cached.
type GateDecision struct {
	Approved bool
	Reason   Reason
}

// customerTypes is the fixed set of account types the gate applies to.
// New roles have to be added here explicitly.
var customerTypes = map[string]struct{}{
	AccountTypeRetailer:   {},
	AccountTypeWholesaler: {},
	AccountTypeSales:      {},
}

// Policy evaluates KYC gate decisions. The zero value is not usable; use NewPolicy.
type Policy struct {
	OnboardingPath string
}

// DefaultPolicy returns the policy with the default onboarding path.
func DefaultPolicy() Policy {
	return NewPolicy(DefaultOnboardingPath)
}

// NewPolicy returns a policy exempting onboardingPath and everything below it.
func NewPolicy(onboardingPath string) Policy {
	if strings.TrimSpace(onboardingPath) == "" {
		onboardingPath = DefaultOnboardingPath
	}
	return Policy{OnboardingPath: NormalizePath(onboardingPath)}
}

// IsOnboarding reports whether target equals or is prefixed by the onboarding path.
func (p Policy) IsOnboarding(target string) bool {
	return strings.HasPrefix(NormalizePath(target), p.OnboardingPath)
}

// IsCustomer reports whether the gate applies to identity's account type.
// An empty or unknown type is not a customer.
func IsCustomer(identity *Identity) bool {
	if identity == nil {
		return false
	}
	_, ok := customerTypes[strings.ToLower(strings.TrimSpace(identity.Type))]
	return ok
}

// Evaluate decides whether identity may be on target. It is pure: the same
// inputs always produce the same decision.
//
// Indeterminate state fails open: a nil identity is approved so that a
// separate authentication gate can take over.
func (p Policy) Evaluate(identity *Identity, target string) GateDecision {
	if p.IsOnboarding(target) {
		return GateDecision{Approved: true, Reason: ReasonExemptPath}
	}
	if identity == nil {
		return GateDecision{Approved: true, Reason: ReasonNoIdentity}
	}
	if !IsCustomer(identity) {
		return GateDecision{Approved: true, Reason: ReasonNonCustomer}
	}
	if identity.KYCStatus == KYCStatusApproved {
		return GateDecision{Approved: true, Reason: ReasonKYCApproved}
	}
	return GateDecision{Approved: false, Reason: ReasonKYCNotApproved}
}

// NormalizePath reduces a link target to a cleaned absolute path with the
// query and fragment removed.
func NormalizePath(target string) string {
	p := strings.TrimSpace(target)
	if u, err := url.Parse(p); err == nil {
		p = u.Path
	} else {
		if i := strings.IndexAny(p, "?#"); i >= 0 {
			p = p[:i]
		}
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
