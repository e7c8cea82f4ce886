package domain

import (
	"fmt"
	"strings"
	"time"
)

// KYCStatus is the compliance approval state reported by the identity endpoint.
type KYCStatus string

const (
	KYCStatusPending  KYCStatus = "pending"
	KYCStatusApproved KYCStatus = "approved"
	KYCStatusRejected KYCStatus = "rejected"
	KYCStatusReview   KYCStatus = "review"
)

// Customer account types. Matching is case-insensitive.
const (
	AccountTypeRetailer   = "retailer"
	AccountTypeWholesaler = "wholesaler"
	AccountTypeSales      = "sales"
)

// Identity is the cached, read-only copy of the caller as reported by the identity endpoint.
type Identity struct {
	ID        string
	Type      string
	KYCStatus KYCStatus
}

// Credential carries whatever the caller presented to authenticate.
// It is forwarded verbatim to the identity endpoint.
type Credential struct {
	BearerToken  string
	SessionID    string
	CookieHeader string
}

// IsZero reports whether no credential was presented.
func (c Credential) IsZero() bool {
	return c.BearerToken == "" && c.SessionID == ""
}

// IdentityEventType describes a change to a cached identity.
type IdentityEventType string

const (
	IdentityUpdated     IdentityEventType = "updated"
	IdentityInvalidated IdentityEventType = "invalidated"
)

// IdentityEvent is delivered to subscribers of an identity key.
type IdentityEvent struct {
	Key      string
	Type     IdentityEventType
	Identity *Identity
	At       time.Time
}

// InvalidationKind selects what an Invalidation value refers to.
type InvalidationKind string

const (
	InvalidateByKey  InvalidationKind = "key"
	InvalidateByUser InvalidationKind = "user"
)

// Invalidation asks every instance to drop a cached identity.
type Invalidation struct {
	Kind   InvalidationKind `json:"kind"`
	Value  string           `json:"value"`
	Origin string           `json:"origin,omitempty"`
}

// Validate checks the invalidation names a known kind and a value.
func (i Invalidation) Validate() error {
	if strings.TrimSpace(i.Value) == "" {
		return fmt.Errorf("%w: value is required", ErrInvalidInvalidation)
	}
	if i.Kind != InvalidateByKey && i.Kind != InvalidateByUser {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidInvalidation, i.Kind)
	}
	return nil
}

// FetchTicket orders identity fetches for one key. A fetch result is only
// stored when its ticket is still current.
type FetchTicket struct {
	Epoch uint64
	Seq   uint64
}
