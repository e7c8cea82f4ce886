package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"kyc-gate/internal/domain"
	"kyc-gate/internal/infrastructure/cache"
	"kyc-gate/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingPublisher implements domain.InvalidationPublisher for testing.
type failingPublisher struct{}

func (failingPublisher) PublishInvalidation(context.Context, domain.Invalidation) error {
	return errors.New("redis down")
}

func seededStore(t *testing.T) *cache.IdentityStore {
	t.Helper()
	store, err := cache.NewIdentityStore(10, time.Minute)
	require.NoError(t, err)
	for _, key := range []string{"sess:a", "sess:b"} {
		require.True(t, store.Commit(key, *pendingRetailer, store.Begin(key)))
	}
	return store
}

func TestInternalHandler_HandleInvalidate(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantJSON string
		wantLen  int
	}{
		{"by user", `{"user_id":"user-1"}`, http.StatusOK, `{"dropped":2}`, 0},
		{"by key", `{"key":"sess:a"}`, http.StatusOK, `{"dropped":1}`, 1},
		{"unknown user", `{"user_id":"user-9"}`, http.StatusOK, `{"dropped":0}`, 2},
		{"empty body", `{}`, http.StatusBadRequest, "", 2},
		{"malformed", `{"user_id":`, http.StatusBadRequest, "", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seededStore(t)
			h := NewInternalHandler(usecase.NewInvalidateIdentity(store, nil, quietLogger))
			req := newRequest(http.MethodPost, "/internal/identity/invalidate", tt.body)

			rec := serve(newEcho(), req, h.HandleInvalidate)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantJSON != "" {
				assert.JSONEq(t, tt.wantJSON, rec.Body.String())
			}
			assert.Equal(t, tt.wantLen, store.Len())
		})
	}
}

func TestInternalHandler_BroadcastFailure(t *testing.T) {
	store := seededStore(t)
	h := NewInternalHandler(usecase.NewInvalidateIdentity(store, failingPublisher{}, quietLogger))
	req := newRequest(http.MethodPost, "/internal/identity/invalidate", `{"user_id":"user-1"}`)

	rec := serve(newEcho(), req, h.HandleInvalidate)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Zero(t, store.Len(), "local entries are dropped even when the broadcast fails")
}
