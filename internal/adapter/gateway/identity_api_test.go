package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kyc-gate/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestIdentityAPIGateway_ForwardsCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/auth/me", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.Equal(t, "session=abc; theme=dark", r.Header.Get("Cookie"))
		_, _ = w.Write([]byte(`{"id":"u1","type":"retailer","kyc_status":"approved"}`))
	}))
	defer server.Close()

	gw := NewIdentityAPIGateway(server.URL+"/auth/me", time.Second)
	identity, err := gw.FetchIdentity(context.Background(), domain.Credential{
		BearerToken:  "tok-123",
		SessionID:    "abc",
		CookieHeader: "session=abc; theme=dark",
	})

	require.NoError(t, err)
	assert.Equal(t, &domain.Identity{ID: "u1", Type: "retailer", KYCStatus: domain.KYCStatusApproved}, identity)
}

func TestIdentityAPIGateway_Envelopes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bare", `{"id":"u1","type":"wholesaler","kyc_status":"pending"}`},
		{"data envelope", `{"data":{"id":"u1","type":"wholesaler","kyc_status":"pending"}}`},
		{"user envelope", `{"user":{"id":"u1","type":"wholesaler","kyc_status":"PENDING"},"expires_at":"later"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := identityServer(t, http.StatusOK, tt.body)
			gw := NewIdentityAPIGateway(server.URL, time.Second)

			identity, err := gw.FetchIdentity(context.Background(), domain.Credential{SessionID: "abc"})

			require.NoError(t, err)
			assert.Equal(t, "u1", identity.ID)
			assert.Equal(t, "wholesaler", identity.Type)
			assert.Equal(t, domain.KYCStatusPending, identity.KYCStatus)
		})
	}
}

func TestIdentityAPIGateway_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, `{}`, domain.ErrUnauthenticated},
		{"forbidden", http.StatusForbidden, `{}`, domain.ErrUnauthenticated},
		{"server error", http.StatusInternalServerError, `oops`, domain.ErrIdentityUnavailable},
		{"not found", http.StatusNotFound, `{}`, domain.ErrIdentityUnavailable},
		{"bad json", http.StatusOK, `{"id":`, domain.ErrMalformedIdentity},
		{"missing id", http.StatusOK, `{"type":"retailer"}`, domain.ErrMalformedIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := identityServer(t, tt.status, tt.body)
			gw := NewIdentityAPIGateway(server.URL, time.Second)

			identity, err := gw.FetchIdentity(context.Background(), domain.Credential{SessionID: "abc"})

			assert.Nil(t, identity)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestIdentityAPIGateway_Unreachable(t *testing.T) {
	server := identityServer(t, http.StatusOK, `{}`)
	url := server.URL
	server.Close()

	gw := NewIdentityAPIGateway(url, time.Second)
	_, err := gw.FetchIdentity(context.Background(), domain.Credential{SessionID: "abc"})

	assert.ErrorIs(t, err, domain.ErrIdentityUnavailable)
}

func TestIdentityAPIGateway_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	gw := NewIdentityAPIGateway(server.URL, 50*time.Millisecond)
	_, err := gw.FetchIdentity(context.Background(), domain.Credential{SessionID: "abc"})

	assert.ErrorIs(t, err, domain.ErrIdentityUnavailable)
}

func TestIdentityAPIGateway_NoCredential(t *testing.T) {
	gw := NewIdentityAPIGateway("http://unused", time.Second)

	_, err := gw.FetchIdentity(context.Background(), domain.Credential{})

	assert.ErrorIs(t, err, domain.ErrCredentialMissing)
}
