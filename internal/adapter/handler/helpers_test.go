package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"kyc-gate/internal/adapter/credential"
	"kyc-gate/internal/domain"
	"kyc-gate/utils/validator"

	"github.com/labstack/echo/v4"
)

// stubResolver implements usecase.IdentityResolver for testing.
type stubResolver struct {
	identity *domain.Identity
	cached   bool
	inFlight bool
	calls    int
}

func (s *stubResolver) Key(cred domain.Credential) (string, error) {
	if cred.IsZero() {
		return "", domain.ErrCredentialMissing
	}
	return "sess:" + cred.SessionID, nil
}

func (s *stubResolver) Peek(cred domain.Credential) (*domain.Identity, bool) {
	if cred.IsZero() {
		return nil, true
	}
	return s.identity, s.cached
}

func (s *stubResolver) Execute(_ context.Context, cred domain.Credential) *domain.Identity {
	s.calls++
	if cred.IsZero() {
		return nil
	}
	return s.identity
}

func (s *stubResolver) InFlight(string) bool { return s.inFlight }

func (s *stubResolver) Forget(string) {}

var (
	pendingRetailer  = &domain.Identity{ID: "user-1", Type: "retailer", KYCStatus: domain.KYCStatusPending}
	approvedRetailer = &domain.Identity{ID: "user-1", Type: "retailer", KYCStatus: domain.KYCStatusApproved}
	creds            = credential.NewExtractor("session")
	quietLogger      = slog.New(slog.NewTextHandler(io.Discard, nil))
)

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = validator.New()
	return e
}

func newRequest(method, target, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return req
}

func withSession(req *http.Request) *http.Request {
	req.Header.Set("Cookie", "session=sess-1")
	return req
}

// serve runs h through e so that returned errors are rendered like in production.
func serve(e *echo.Echo, req *http.Request, h echo.HandlerFunc) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

