package cache

import (
	"testing"
	"time"

	"kyc-gate/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestStore(t *testing.T, ttl time.Duration) *IdentityStore {
	t.Helper()
	s, err := NewIdentityStore(16, ttl)
	require.NoError(t, err)
	return s
}

func commit(t *testing.T, s *IdentityStore, key string, identity domain.Identity) {
	t.Helper()
	require.True(t, s.Commit(key, identity, s.Begin(key)))
}

func TestIdentityStore_CommitAndGet(t *testing.T) {
	s := newTestStore(t, 5*time.Minute)

	commit(t, s, "sub:user-1", domain.Identity{ID: "user-1", Type: "retailer", KYCStatus: domain.KYCStatusPending})

	got, found := s.Get("sub:user-1")
	assert.True(t, found)
	assert.Equal(t, "user-1", got.ID)
	assert.Equal(t, "retailer", got.Type)
	assert.Equal(t, domain.KYCStatusPending, got.KYCStatus)
}

func TestIdentityStore_NotFound(t *testing.T) {
	s := newTestStore(t, 5*time.Minute)

	got, found := s.Get("nonexistent")
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestIdentityStore_Expiration(t *testing.T) {
	s := newTestStore(t, time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }

	commit(t, s, "k", domain.Identity{ID: "user-1"})

	_, found := s.Get("k")
	assert.True(t, found)

	now = now.Add(2 * time.Minute)
	got, found := s.Get("k")
	assert.False(t, found)
	assert.Nil(t, got)
	assert.Equal(t, 0, s.Len())
}

func TestIdentityStore_GetReturnsCopy(t *testing.T) {
	s := newTestStore(t, time.Minute)
	commit(t, s, "k", domain.Identity{ID: "user-1", KYCStatus: domain.KYCStatusPending})

	got, _ := s.Get("k")
	got.KYCStatus = domain.KYCStatusApproved

	again, _ := s.Get("k")
	assert.Equal(t, domain.KYCStatusPending, again.KYCStatus)
}

func TestIdentityStore_OutOfOrderCommitIsDiscarded(t *testing.T) {
	s := newTestStore(t, time.Minute)

	older := s.Begin("k")
	newer := s.Begin("k")

	assert.True(t, s.Commit("k", domain.Identity{ID: "user-1", KYCStatus: domain.KYCStatusApproved}, newer))
	assert.False(t, s.Commit("k", domain.Identity{ID: "user-1", KYCStatus: domain.KYCStatusPending}, older))

	got, _ := s.Get("k")
	assert.Equal(t, domain.KYCStatusApproved, got.KYCStatus)
}

func TestIdentityStore_InvalidateVoidsInFlightFetch(t *testing.T) {
	s := newTestStore(t, time.Minute)

	ticket := s.Begin("k")
	s.Invalidate("k")

	assert.False(t, s.Commit("k", domain.Identity{ID: "user-1"}, ticket))
	_, found := s.Get("k")
	assert.False(t, found)

	assert.True(t, s.Commit("k", domain.Identity{ID: "user-1"}, s.Begin("k")))
}

func TestIdentityStore_InvalidateUser(t *testing.T) {
	s := newTestStore(t, time.Minute)
	commit(t, s, "sub:user-1", domain.Identity{ID: "user-1"})
	commit(t, s, "cred:abc", domain.Identity{ID: "user-1"})
	commit(t, s, "cred:def", domain.Identity{ID: "user-2"})

	assert.Equal(t, 2, s.InvalidateUser("user-1"))

	_, found := s.Get("sub:user-1")
	assert.False(t, found)
	_, found = s.Get("cred:abc")
	assert.False(t, found)
	_, found = s.Get("cred:def")
	assert.True(t, found)

	assert.Equal(t, 0, s.InvalidateUser("user-1"))
}

func TestIdentityStore_ApplyInvalidation(t *testing.T) {
	s := newTestStore(t, time.Minute)
	commit(t, s, "k1", domain.Identity{ID: "user-1"})
	commit(t, s, "k2", domain.Identity{ID: "user-2"})

	s.Apply(domain.Invalidation{Kind: domain.InvalidateByKey, Value: "k1"})
	s.Apply(domain.Invalidation{Kind: domain.InvalidateByUser, Value: "user-2"})

	assert.Equal(t, 0, s.Len())
}

func TestIdentityStore_SubscribersObserveChanges(t *testing.T) {
	s := newTestStore(t, time.Minute)

	events, cancel := s.Subscribe("k")
	defer cancel()

	commit(t, s, "k", domain.Identity{ID: "user-1", KYCStatus: domain.KYCStatusApproved})
	s.Invalidate("k")

	ev := <-events
	assert.Equal(t, domain.IdentityUpdated, ev.Type)
	require.NotNil(t, ev.Identity)
	assert.Equal(t, domain.KYCStatusApproved, ev.Identity.KYCStatus)

	ev = <-events
	assert.Equal(t, domain.IdentityInvalidated, ev.Type)
	assert.Nil(t, ev.Identity)
}

func TestIdentityStore_SubscribersAreScopedToKey(t *testing.T) {
	s := newTestStore(t, time.Minute)

	events, cancel := s.Subscribe("k1")
	defer cancel()

	commit(t, s, "k2", domain.Identity{ID: "user-2"})

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestIdentityStore_SlowSubscriberDoesNotBlock(t *testing.T) {
	s := newTestStore(t, time.Minute)

	_, cancel := s.Subscribe("k")
	defer cancel()

	for range subscriberBuffer * 3 {
		s.Invalidate("k")
	}
}

func TestIdentityStore_CancelClosesChannel(t *testing.T) {
	s := newTestStore(t, time.Minute)

	events, cancel := s.Subscribe("k")
	cancel()
	cancel()

	_, open := <-events
	assert.False(t, open)

	s.Invalidate("k")
}

func TestIdentityStore_EvictionKeepsIndexConsistent(t *testing.T) {
	s, err := NewIdentityStore(1, time.Minute)
	require.NoError(t, err)

	commit(t, s, "k1", domain.Identity{ID: "user-1"})
	commit(t, s, "k2", domain.Identity{ID: "user-2"})

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 0, s.InvalidateUser("user-1"))
	assert.Equal(t, 1, s.InvalidateUser("user-2"))
}

func TestIdentityStore_EvictedFetchStateRejectsOldTickets(t *testing.T) {
	s, err := NewIdentityStore(1, time.Minute)
	require.NoError(t, err)

	older := s.Begin("k1")
	newer := s.Begin("k1")
	require.True(t, s.Commit("k1", domain.Identity{ID: "user-1", KYCStatus: domain.KYCStatusApproved}, newer))

	// k2 pushes k1's fetch state out of the bounded state cache.
	commit(t, s, "k2", domain.Identity{ID: "user-2"})

	assert.False(t, s.Commit("k1", domain.Identity{ID: "user-1", KYCStatus: domain.KYCStatusPending}, older),
		"a ticket from before the eviction must not commit")
	_, found := s.Get("k1")
	assert.False(t, found)
}

func TestIdentityStore_EpochChangesOnInvalidate(t *testing.T) {
	s := newTestStore(t, time.Minute)

	before := s.Epoch("k")
	assert.Equal(t, before, s.Epoch("k"), "reading the epoch does not change it")
	assert.Equal(t, before, s.Begin("k").Epoch)

	s.Invalidate("k")
	after := s.Epoch("k")
	assert.NotEqual(t, before, after)

	s.Apply(domain.Invalidation{Kind: domain.InvalidateByKey, Value: "k"})
	assert.NotEqual(t, after, s.Epoch("k"))
}
