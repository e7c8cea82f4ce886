package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"kyc-gate/internal/adapter/credential"
	"kyc-gate/internal/domain"
	"kyc-gate/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type fixedResolver struct {
	identity *domain.Identity
	calls    int
}

func (f *fixedResolver) Key(cred domain.Credential) (string, error) {
	return "sess:" + cred.SessionID, nil
}

func (f *fixedResolver) Peek(domain.Credential) (*domain.Identity, bool) {
	return f.identity, true
}

func (f *fixedResolver) Execute(context.Context, domain.Credential) *domain.Identity {
	f.calls++
	return f.identity
}

func (f *fixedResolver) InFlight(string) bool { return false }

func (f *fixedResolver) Forget(string) {}

func newGatedEcho(identity *domain.Identity) (*echo.Echo, *fixedResolver) {
	resolver := &fixedResolver{identity: identity}
	uc := usecase.NewCoordinateRedirect(resolver, domain.DefaultPolicy(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	e := echo.New()
	e.Use(KycGate(uc, credential.NewExtractor(credential.DefaultCookieName)))
	e.Any("/*", func(c echo.Context) error {
		return c.String(http.StatusOK, "storefront")
	})
	return e, resolver
}

func TestKycGate(t *testing.T) {
	pending := &domain.Identity{ID: "user-1", Type: "retailer", KYCStatus: domain.KYCStatusPending}
	approved := &domain.Identity{ID: "user-1", Type: "retailer", KYCStatus: domain.KYCStatusApproved}
	admin := &domain.Identity{ID: "admin-1", Type: "admin"}

	tests := []struct {
		name         string
		identity     *domain.Identity
		method       string
		path         string
		wantCode     int
		wantLocation string
		wantLookup   bool
	}{
		{name: "pending customer redirected", identity: pending, method: http.MethodGet, path: "/catalog", wantCode: http.StatusFound, wantLocation: "/onboarding", wantLookup: true},
		{name: "pending customer HEAD redirected", identity: pending, method: http.MethodHead, path: "/orders", wantCode: http.StatusFound, wantLocation: "/onboarding", wantLookup: true},
		{name: "approved customer passes", identity: approved, method: http.MethodGet, path: "/catalog", wantCode: http.StatusOK, wantLookup: true},
		{name: "non customer passes", identity: admin, method: http.MethodGet, path: "/admin", wantCode: http.StatusOK, wantLookup: true},
		{name: "onboarding page not redirected", identity: pending, method: http.MethodGet, path: "/onboarding/step-2", wantCode: http.StatusOK, wantLookup: true},
		{name: "no identity fails open", identity: nil, method: http.MethodGet, path: "/catalog", wantCode: http.StatusOK, wantLookup: true},
		{name: "static asset skipped", identity: pending, method: http.MethodGet, path: "/_next/static/app.js", wantCode: http.StatusOK},
		{name: "favicon skipped", identity: pending, method: http.MethodGet, path: "/favicon.ico", wantCode: http.StatusOK},
		{name: "POST passes through", identity: pending, method: http.MethodPost, path: "/cart", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, resolver := newGatedEcho(tt.identity)

			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("Cookie", "session=sess-1")
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get(echo.HeaderLocation))
			assert.Equal(t, tt.wantLookup, resolver.calls > 0)
		})
	}
}
