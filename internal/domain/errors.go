package domain

import "errors"

// Identity resolution errors.
var (
	ErrCredentialMissing   = errors.New("credential missing")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrSubjectMissing      = errors.New("missing subject in credential")
	ErrIdentityUnavailable = errors.New("identity endpoint unavailable")
	ErrMalformedIdentity   = errors.New("malformed identity payload")
	ErrStaleIdentity       = errors.New("identity invalidated while fetching")
)

// Navigation errors.
var (
	ErrInvalidNavigation = errors.New("invalid navigation intent")
)

// Invalidation errors.
var (
	ErrInvalidInvalidation = errors.New("invalid invalidation request")
	ErrBroadcastFailed     = errors.New("invalidation broadcast failed")
)

// Token errors.
var (
	ErrCSRFSecretMissing = errors.New("CSRF secret not configured")
	ErrCSRFMismatch      = errors.New("CSRF token mismatch")
)

// Rate limiting errors.
var (
	ErrRateLimited = errors.New("rate limit exceeded")
)
