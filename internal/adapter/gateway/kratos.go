package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"kyc-gate/internal/domain"

	kratos "github.com/ory/kratos-client-go"
)

// KratosGateway resolves identities from Ory Kratos sessions.
// Implements domain.IdentityFetcher.
//
// The account type is read from the identity traits. The KYC status is read
// from metadata_public, which only the backend can write, and falls back to traits.
type KratosGateway struct {
	client *kratos.APIClient
}

// NewKratosGateway creates a new Kratos gateway with tuned HTTP transport.
func NewKratosGateway(baseURL string, timeout time.Duration) *KratosGateway {
	configuration := kratos.NewConfiguration()
	configuration.Servers = []kratos.ServerConfiguration{
		{URL: baseURL},
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}

	configuration.HTTPClient = &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}

	return &KratosGateway{client: kratos.NewAPIClient(configuration)}
}

// FetchIdentity validates the caller's Kratos session and maps its identity.
func (g *KratosGateway) FetchIdentity(ctx context.Context, cred domain.Credential) (*domain.Identity, error) {
	if cred.IsZero() {
		return nil, domain.ErrCredentialMissing
	}

	req := g.client.FrontendAPI.ToSession(ctx)
	if cred.BearerToken != "" {
		req = req.XSessionToken(cred.BearerToken)
	}
	if cred.CookieHeader != "" {
		req = req.Cookie(cred.CookieHeader)
	}

	session, resp, err := req.Execute()
	if err != nil {
		if resp != nil {
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				return nil, domain.ErrUnauthenticated
			}
			return nil, fmt.Errorf("%w: kratos returned status %d", domain.ErrIdentityUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrIdentityUnavailable, err)
	}

	if session.Active != nil && !*session.Active {
		return nil, fmt.Errorf("%w: session inactive", domain.ErrUnauthenticated)
	}

	if session.Identity == nil {
		return nil, fmt.Errorf("%w: session has no identity", domain.ErrMalformedIdentity)
	}

	traits, _ := session.Identity.Traits.(map[string]interface{})
	metadata, _ := session.Identity.MetadataPublic.(map[string]interface{})

	status := stringField(metadata, "kyc_status")
	if status == "" {
		status = stringField(traits, "kyc_status")
	}

	return &domain.Identity{
		ID:        session.Identity.Id,
		Type:      stringField(traits, "type"),
		KYCStatus: domain.KYCStatus(strings.ToLower(status)),
	}, nil
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
