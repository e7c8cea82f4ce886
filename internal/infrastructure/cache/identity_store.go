package cache

import (
	"fmt"
	"sync"
	"time"

	"kyc-gate/internal/domain"

	lru "github.com/hashicorp/golang-lru/v2"
)

// subscriberBuffer bounds each subscriber channel. Events beyond it are dropped.
const subscriberBuffer = 8

// cacheEntry represents a cached identity with its expiry.
type cacheEntry struct {
	identity  domain.Identity
	expiresAt time.Time
}

// keyState orders fetches for one key. A state created after its
// predecessor was evicted gets a fresh epoch from the store-wide generation,
// so tickets issued against the evicted state can never commit.
type keyState struct {
	epoch     uint64
	seq       uint64
	committed uint64
}

// IdentityStore is the single process-wide identity cache. Every gate
// consumer reads the same snapshot and can subscribe to changes.
// Implements domain.IdentityStore and domain.InvalidationSink.
type IdentityStore struct {
	mu      sync.Mutex
	entries *lru.Cache[string, *cacheEntry]
	states  *lru.Cache[string, *keyState]
	byUser  map[string]map[string]struct{}
	subs    map[string]map[uint64]chan domain.IdentityEvent
	nextSub uint64
	gen     uint64
	ttl     time.Duration
	now     func() time.Time
}

// NewIdentityStore creates a store holding at most size identities for ttl each.
func NewIdentityStore(size int, ttl time.Duration) (*IdentityStore, error) {
	s := &IdentityStore{
		byUser: make(map[string]map[string]struct{}),
		subs:   make(map[string]map[uint64]chan domain.IdentityEvent),
		ttl:    ttl,
		now:    time.Now,
	}

	entries, err := lru.NewWithEvict(size, s.onEvict)
	if err != nil {
		return nil, fmt.Errorf("create identity cache: %w", err)
	}
	states, err := lru.New[string, *keyState](size)
	if err != nil {
		return nil, fmt.Errorf("create fetch state cache: %w", err)
	}
	s.entries = entries
	s.states = states
	return s, nil
}

// onEvict drops the user index entry. Called with s.mu held.
func (s *IdentityStore) onEvict(key string, entry *cacheEntry) {
	s.unindex(entry.identity.ID, key)
}

// Get retrieves a cached identity. Expired entries are treated as missing.
func (s *IdentityStore) Get(key string) (*domain.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, found := s.entries.Get(key)
	if !found {
		return nil, false
	}
	if s.now().After(entry.expiresAt) {
		s.entries.Remove(key)
		return nil, false
	}
	identity := entry.identity
	return &identity, true
}

// Epoch returns the current generation of key. It changes on every
// invalidation of key.
func (s *IdentityStore) Epoch(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state(key).epoch
}

// Begin reserves a ticket for a fetch about to start for key.
func (s *IdentityStore) Begin(key string) domain.FetchTicket {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(key)
	st.seq++
	return domain.FetchTicket{Epoch: st.epoch, Seq: st.seq}
}

// Commit stores identity if ticket is still current: no invalidation happened
// since Begin and no later fetch has already been committed.
func (s *IdentityStore) Commit(key string, identity domain.Identity, ticket domain.FetchTicket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(key)
	if ticket.Epoch != st.epoch || ticket.Seq <= st.committed {
		return false
	}
	st.committed = ticket.Seq

	if old, found := s.entries.Peek(key); found && old.identity.ID != identity.ID {
		s.unindex(old.identity.ID, key)
	}
	s.entries.Add(key, &cacheEntry{identity: identity, expiresAt: s.now().Add(s.ttl)})
	s.index(identity.ID, key)

	stored := identity
	s.notify(key, domain.IdentityEvent{Key: key, Type: domain.IdentityUpdated, Identity: &stored, At: s.now()})
	return true
}

// Invalidate drops the cached identity for key and voids in-flight fetches.
func (s *IdentityStore) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidate(key)
}

// InvalidateUser drops every cached identity belonging to userID and returns
// how many keys were invalidated.
func (s *IdentityStore) InvalidateUser(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.byUser[userID]))
	for key := range s.byUser[userID] {
		keys = append(keys, key)
	}
	for _, key := range keys {
		s.invalidate(key)
	}
	return len(keys)
}

// Apply implements domain.InvalidationSink.
func (s *IdentityStore) Apply(inv domain.Invalidation) {
	switch inv.Kind {
	case domain.InvalidateByKey:
		s.Invalidate(inv.Value)
	case domain.InvalidateByUser:
		s.InvalidateUser(inv.Value)
	}
}

// Subscribe returns a channel receiving events for key. The returned cancel
// func closes the channel and must be called once the subscriber is done.
func (s *IdentityStore) Subscribe(key string) (<-chan domain.IdentityEvent, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan domain.IdentityEvent, subscriberBuffer)
	if s.subs[key] == nil {
		s.subs[key] = make(map[uint64]chan domain.IdentityEvent)
	}
	s.subs[key][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs[key], id)
			if len(s.subs[key]) == 0 {
				delete(s.subs, key)
			}
			close(ch)
		})
	}
}

// Len returns the number of cached identities, including expired ones not yet swept.
func (s *IdentityStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.Len()
}

func (s *IdentityStore) invalidate(key string) {
	st := s.state(key)
	st.epoch = s.nextGen()
	st.committed = 0
	s.entries.Remove(key)
	s.notify(key, domain.IdentityEvent{Key: key, Type: domain.IdentityInvalidated, At: s.now()})
}

func (s *IdentityStore) state(key string) *keyState {
	st, found := s.states.Get(key)
	if !found {
		st = &keyState{epoch: s.nextGen()}
		s.states.Add(key, st)
	}
	return st
}

func (s *IdentityStore) nextGen() uint64 {
	s.gen++
	return s.gen
}

func (s *IdentityStore) index(userID, key string) {
	if userID == "" {
		return
	}
	if s.byUser[userID] == nil {
		s.byUser[userID] = make(map[string]struct{})
	}
	s.byUser[userID][key] = struct{}{}
}

func (s *IdentityStore) unindex(userID, key string) {
	keys, found := s.byUser[userID]
	if !found {
		return
	}
	delete(keys, key)
	if len(keys) == 0 {
		delete(s.byUser, userID)
	}
}

// notify delivers without blocking. Called with s.mu held.
func (s *IdentityStore) notify(key string, ev domain.IdentityEvent) {
	for _, ch := range s.subs[key] {
		select {
		case ch <- ev:
		default:
		}
	}
}
