// Package credential extracts caller credentials from HTTP requests.
package credential

import (
	"net/http"
	"strings"

	"kyc-gate/internal/domain"
)

// DefaultCookieName is the storefront's session cookie.
const DefaultCookieName = "session"

// Extractor reads a bearer token first and falls back to the session cookie.
type Extractor struct {
	cookieName string
}

// NewExtractor creates an extractor for the named session cookie.
func NewExtractor(cookieName string) Extractor {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return Extractor{cookieName: cookieName}
}

// FromRequest returns the credential presented with r. The raw Cookie header
// is kept so that it can be forwarded to the identity endpoint unchanged.
func (e Extractor) FromRequest(r *http.Request) domain.Credential {
	cred := domain.Credential{
		BearerToken:  bearerToken(r.Header.Get("Authorization")),
		CookieHeader: r.Header.Get("Cookie"),
	}
	if cookie, err := r.Cookie(e.cookieName); err == nil {
		cred.SessionID = cookie.Value
	}
	return cred
}

func bearerToken(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
