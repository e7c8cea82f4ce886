package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kyc-gate/internal/domain"
)

// maxIdentityBody caps how much of the identity response is read.
const maxIdentityBody = 1 << 20

// IdentityAPIGateway fetches the caller's identity from the backend's
// authenticated "current user" endpoint. Implements domain.IdentityFetcher.
type IdentityAPIGateway struct {
	url        string
	httpClient *http.Client
}

// NewIdentityAPIGateway creates a gateway for url with tuned HTTP transport.
func NewIdentityAPIGateway(url string, timeout time.Duration) *IdentityAPIGateway {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}

	return &IdentityAPIGateway{
		url: url,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// identityPayload is the user object returned by the identity endpoint.
type identityPayload struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	KYCStatus string `json:"kyc_status"`
}

// identityEnvelope accepts a bare user object or one wrapped in "data" or "user".
type identityEnvelope struct {
	identityPayload
	Data *identityPayload `json:"data"`
	User *identityPayload `json:"user"`
}

// FetchIdentity forwards the caller's credential to the identity endpoint.
func (g *IdentityAPIGateway) FetchIdentity(ctx context.Context, cred domain.Credential) (*domain.Identity, error) {
	if cred.IsZero() {
		return nil, domain.ErrCredentialMissing
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIdentityUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if cred.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+cred.BearerToken)
	}
	if cred.CookieHeader != "" {
		req.Header.Set("Cookie", cred.CookieHeader)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIdentityUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: identity endpoint returned status %d", domain.ErrUnauthenticated, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: identity endpoint returned status %d", domain.ErrIdentityUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxIdentityBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIdentityUnavailable, err)
	}
	return decodeIdentity(body)
}

func decodeIdentity(body []byte) (*domain.Identity, error) {
	var env identityEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedIdentity, err)
	}

	payload := env.identityPayload
	switch {
	case env.Data != nil:
		payload = *env.Data
	case env.User != nil:
		payload = *env.User
	}

	if strings.TrimSpace(payload.ID) == "" {
		return nil, fmt.Errorf("%w: missing id", domain.ErrMalformedIdentity)
	}

	return &domain.Identity{
		ID:        payload.ID,
		Type:      payload.Type,
		KYCStatus: domain.KYCStatus(strings.ToLower(strings.TrimSpace(payload.KYCStatus))),
	}, nil
}
