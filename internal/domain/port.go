package domain

import "context"

// IdentityFetcher retrieves the current identity from the identity endpoint.
type IdentityFetcher interface {
	FetchIdentity(ctx context.Context, cred Credential) (*Identity, error)
}

// IdentityStore is the process-wide identity cache shared by every gate consumer.
type IdentityStore interface {
	Get(key string) (*Identity, bool)
	Epoch(key string) uint64
	Begin(key string) FetchTicket
	Commit(key string, identity Identity, ticket FetchTicket) bool
	Invalidate(key string)
	InvalidateUser(userID string) int
	Subscribe(key string) (<-chan IdentityEvent, func())
}

// SubjectResolver derives a stable cache key from a credential.
type SubjectResolver interface {
	Subject(cred Credential) (string, error)
}

// InvalidationPublisher fans an invalidation out to other instances.
type InvalidationPublisher interface {
	PublishInvalidation(ctx context.Context, inv Invalidation) error
}

// InvalidationSink applies invalidations received from other instances.
type InvalidationSink interface {
	Apply(inv Invalidation)
}

// CSRFTokenGenerator generates and verifies CSRF tokens bound to an identity key.
type CSRFTokenGenerator interface {
	Generate(key string) (string, error)
	Verify(key, token string) error
}
