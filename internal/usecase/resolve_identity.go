package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"kyc-gate/internal/domain"
	"kyc-gate/internal/infrastructure/metrics"
	"kyc-gate/utils/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

// DefaultIdentityTimeout bounds a single identity endpoint call.
const DefaultIdentityTimeout = 3 * time.Second

// maxFetchAttempts bounds re-fetches when the key is invalidated mid-fetch.
const maxFetchAttempts = 2

var tracer = otel.Tracer("kyc-gate/usecase")

// IdentityResolver is the read side of the identity cache used by the gate usecases.
type IdentityResolver interface {
	Key(cred domain.Credential) (string, error)
	Peek(cred domain.Credential) (*domain.Identity, bool)
	Execute(ctx context.Context, cred domain.Credential) *domain.Identity
	InFlight(key string) bool
	Forget(key string)
}

// ResolveIdentity resolves the caller's identity with a cache-through strategy.
// Concurrent misses for one key share a single upstream fetch, but only
// within one cache generation: a caller arriving after an invalidation never
// joins a fetch that started before it.
type ResolveIdentity struct {
	fetcher  domain.IdentityFetcher
	store    domain.IdentityStore
	subjects domain.SubjectResolver
	group    singleflight.Group
	timeout  time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	inflight map[string]int
}

// NewResolveIdentity creates a new ResolveIdentity usecase.
func NewResolveIdentity(f domain.IdentityFetcher, s domain.IdentityStore, subj domain.SubjectResolver, timeout time.Duration, l *slog.Logger) *ResolveIdentity {
	if timeout <= 0 {
		timeout = DefaultIdentityTimeout
	}
	return &ResolveIdentity{
		fetcher:  f,
		store:    s,
		subjects: subj,
		timeout:  timeout,
		logger:   l,
		inflight: make(map[string]int),
	}
}

// Key returns the identity cache key for cred.
func (uc *ResolveIdentity) Key(cred domain.Credential) (string, error) {
	return uc.subjects.Subject(cred)
}

// Peek returns the cached identity without fetching. The second result is
// false only when a fetch would be needed to know the identity.
func (uc *ResolveIdentity) Peek(cred domain.Credential) (*domain.Identity, bool) {
	if cred.IsZero() {
		return nil, true
	}
	key, err := uc.subjects.Subject(cred)
	if err != nil {
		return nil, true
	}
	return uc.store.Get(key)
}

// InFlight reports whether a fetch for key is running.
func (uc *ResolveIdentity) InFlight(key string) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.inflight[key] > 0
}

// Forget detaches callers from the in-flight fetch of key's current
// generation so the next Execute starts a fresh one.
func (uc *ResolveIdentity) Forget(key string) {
	uc.group.Forget(flightKey(key, uc.store.Epoch(key)))
}

func flightKey(key string, epoch uint64) string {
	return key + "@" + strconv.FormatUint(epoch, 10)
}

func (uc *ResolveIdentity) track(key string, delta int) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.inflight[key] += delta
	if uc.inflight[key] <= 0 {
		delete(uc.inflight, key)
	}
}

// Execute returns the caller's identity, or nil when it cannot be determined.
// Failures are logged and counted but never returned: the gate fails open.
func (uc *ResolveIdentity) Execute(ctx context.Context, cred domain.Credential) *domain.Identity {
	if cred.IsZero() {
		metrics.RecordLookup(metrics.LookupNoCredential)
		return nil
	}

	key, err := uc.subjects.Subject(cred)
	if err != nil {
		uc.logger.InfoContext(ctx, "credential rejected", "error", err)
		metrics.RecordLookup(metrics.LookupUnauthenticated)
		return nil
	}
	ctx = logger.WithGateKey(ctx, key)

	if cached, found := uc.store.Get(key); found {
		metrics.RecordLookup(metrics.LookupCacheHit)
		return cached
	}

	ch := uc.group.DoChan(flightKey(key, uc.store.Epoch(key)), func() (any, error) {
		uc.track(key, 1)
		defer uc.track(key, -1)
		return uc.fetch(ctx, key, cred)
	})

	select {
	case <-ctx.Done():
		metrics.RecordLookup(metrics.LookupCancelled)
		return nil
	case res := <-ch:
		if res.Err != nil {
			uc.recordFailure(ctx, res.Err)
			return nil
		}
		metrics.RecordLookup(metrics.LookupFetched)
		identity := *res.Val.(*domain.Identity)
		return &identity
	}
}

// fetch runs detached from the caller's cancellation so that other waiters
// on the same flight still get a result. It is bounded by uc.timeout across
// all attempts. A result whose key was invalidated while it was in flight is
// never returned: the fetch starts over, and gives up with ErrStaleIdentity
// after maxFetchAttempts.
func (uc *ResolveIdentity) fetch(parent context.Context, key string, cred domain.Credential) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), uc.timeout)
	defer cancel()
	ctx = logger.WithOperation(ctx, "identity.fetch")

	ctx, span := tracer.Start(ctx, "identity.fetch")
	defer span.End()

	for attempt := 1; ; attempt++ {
		ticket := uc.store.Begin(key)
		span.SetAttributes(attribute.Int64("kyc.fetch.seq", int64(ticket.Seq)), attribute.Int("kyc.fetch.attempt", attempt))

		start := time.Now()
		identity, err := uc.fetcher.FetchIdentity(ctx, cred)
		elapsed := time.Since(start)
		metrics.RecordFetch(elapsed.Seconds())
		if err == nil && identity == nil {
			err = domain.ErrMalformedIdentity
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		logCtx := logger.WithUserID(ctx, identity.ID)
		logger.NewContextLogger(uc.logger).LogDurationTime(logCtx, "identity.fetch", elapsed)

		if uc.store.Commit(key, *identity, ticket) {
			return identity, nil
		}

		if uc.store.Epoch(key) == ticket.Epoch {
			// A later fetch of the same generation already committed.
			span.AddEvent("superseded fetch discarded")
			logger.FromContext(logCtx, uc.logger).DebugContext(logCtx, "discarded superseded identity fetch", "seq", ticket.Seq)
			if current, found := uc.store.Get(key); found {
				return current, nil
			}
			return identity, nil
		}

		span.AddEvent("identity invalidated during fetch")
		if attempt >= maxFetchAttempts {
			span.SetStatus(codes.Error, domain.ErrStaleIdentity.Error())
			return nil, domain.ErrStaleIdentity
		}
		logger.FromContext(logCtx, uc.logger).DebugContext(logCtx, "identity invalidated during fetch, fetching again", "attempt", attempt)
	}
}

func (uc *ResolveIdentity) recordFailure(ctx context.Context, err error) {
	log := logger.FromContext(ctx, uc.logger)
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		metrics.RecordLookup(metrics.LookupUnauthenticated)
		log.InfoContext(ctx, "identity endpoint rejected credential", "error", err)
	default:
		metrics.RecordLookup(metrics.LookupUnavailable)
		log.WarnContext(ctx, "failed to fetch identity, failing open", "error", err)
	}
}
