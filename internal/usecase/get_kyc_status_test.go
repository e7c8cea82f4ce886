package usecase

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"kyc-gate/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetKycStatus_Execute(t *testing.T) {
	tests := []struct {
		name         string
		identity     *domain.Identity
		path         string
		wantApproved *bool
	}{
		{"no identity is unknown", nil, "", nil},
		{"pending retailer", retailer(domain.KYCStatusPending), "", boolPtr(false)},
		{"approved retailer", retailer(domain.KYCStatusApproved), "/catalog", boolPtr(true)},
		{"sales accounts are gated", &domain.Identity{ID: "s", Type: "SALES", KYCStatus: domain.KYCStatusPending}, "", boolPtr(false)},
		{"pending retailer on onboarding", retailer(domain.KYCStatusPending), "/onboarding", boolPtr(true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := NewGetKycStatus(&mockResolver{identity: tt.identity}, nil, domain.DefaultPolicy(), slog.Default())

			view := uc.Execute(context.Background(), sessionCred, tt.path)

			assert.Equal(t, tt.wantApproved, view.IsApproved)
			assert.False(t, view.IsLoading)
			assert.Equal(t, tt.identity, view.User)
		})
	}
}

func TestGetKycStatus_Snapshot(t *testing.T) {
	resolver := &mockResolver{identity: retailer(domain.KYCStatusPending)}
	uc := NewGetKycStatus(resolver, nil, domain.DefaultPolicy(), slog.Default())

	view, cached := uc.Snapshot(sessionCred, "/")
	assert.False(t, cached)
	assert.False(t, view.IsLoading, "nothing cached and no fetch running is not loading")
	assert.Nil(t, view.IsApproved)

	resolver.inFlight = true
	view, cached = uc.Snapshot(sessionCred, "/")
	assert.False(t, cached)
	assert.True(t, view.IsLoading)
	assert.Nil(t, view.IsApproved)

	resolver.cached = true
	view, cached = uc.Snapshot(sessionCred, "/")
	assert.True(t, cached)
	assert.False(t, view.IsLoading)
	require.NotNil(t, view.IsApproved)
	assert.False(t, *view.IsApproved)
}

func TestGetKycStatus_SnapshotTracksRealFetch(t *testing.T) {
	release := make(chan struct{})
	fetcher := &mockFetcher{fn: func(context.Context, int32) (*domain.Identity, error) {
		<-release
		return retailer(domain.KYCStatusApproved), nil
	}}
	resolver := NewResolveIdentity(fetcher, newStore(t), mockSubjects{}, time.Second, slog.Default())
	uc := NewGetKycStatus(resolver, nil, domain.DefaultPolicy(), slog.Default())

	view, _ := uc.Snapshot(sessionCred, "/")
	assert.False(t, view.IsLoading)

	done := make(chan StatusView, 1)
	go func() { done <- uc.Execute(context.Background(), sessionCred, "/") }()
	require.Eventually(t, func() bool {
		view, _ := uc.Snapshot(sessionCred, "/")
		return view.IsLoading
	}, time.Second, time.Millisecond)

	close(release)
	resolved := <-done
	require.NotNil(t, resolved.IsApproved)
	assert.True(t, *resolved.IsApproved)

	view, cached := uc.Snapshot(sessionCred, "/")
	assert.True(t, cached)
	assert.False(t, view.IsLoading)
}

func TestGetKycStatus_Recheck(t *testing.T) {
	store := newStore(t)
	ticket := store.Begin("sess:sess-1")
	require.True(t, store.Commit("sess:sess-1", *retailer(domain.KYCStatusPending), ticket))

	events, cancel := store.Subscribe("sess:sess-1")
	defer cancel()

	publisher := &mockPublisher{}
	resolver := &mockResolver{identity: retailer(domain.KYCStatusPending), next: retailer(domain.KYCStatusApproved)}
	uc := NewGetKycStatus(resolver, NewInvalidateIdentity(store, publisher, slog.Default()), domain.DefaultPolicy(), slog.Default())

	view, err := uc.Recheck(context.Background(), sessionCred, "/catalog")

	require.NoError(t, err)
	require.NotNil(t, view.IsApproved)
	assert.True(t, *view.IsApproved)
	assert.Equal(t, []string{"sess:sess-1"}, resolver.forgotten)

	_, found := store.Get("sess:sess-1")
	assert.False(t, found)
	ev := <-events
	assert.Equal(t, domain.IdentityInvalidated, ev.Type)

	require.Len(t, publisher.published, 1)
	assert.Equal(t, domain.Invalidation{Kind: domain.InvalidateByKey, Value: "sess:sess-1"}, publisher.published[0])
}

func TestGetKycStatus_Recheck_BroadcastFailureStillResolves(t *testing.T) {
	publisher := &mockPublisher{err: errors.New("redis down")}
	resolver := &mockResolver{identity: retailer(domain.KYCStatusApproved)}
	uc := NewGetKycStatus(resolver, NewInvalidateIdentity(newStore(t), publisher, slog.Default()), domain.DefaultPolicy(), slog.Default())

	view, err := uc.Recheck(context.Background(), sessionCred, "")

	require.NoError(t, err)
	require.NotNil(t, view.IsApproved)
	assert.True(t, *view.IsApproved)
}

func TestGetKycStatus_Recheck_NoCredential(t *testing.T) {
	uc := NewGetKycStatus(&mockResolver{}, NewInvalidateIdentity(newStore(t), nil, slog.Default()), domain.DefaultPolicy(), slog.Default())

	_, err := uc.Recheck(context.Background(), domain.Credential{}, "")

	assert.ErrorIs(t, err, domain.ErrCredentialMissing)
}

func boolPtr(b bool) *bool { return &b }
