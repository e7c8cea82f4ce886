package token

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"kyc-gate/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// Cache key prefixes.
const (
	subjectPrefix    = "sub:"
	credentialPrefix = "cred:"
)

// SubjectConfig holds bearer token verification settings.
type SubjectConfig struct {
	Secret string
	Issuer string
}

// SubjectResolver derives the identity cache key from a credential.
// Verified bearer tokens are keyed by their subject so that one user shares a
// cache entry across sessions; anything else is keyed by a credential digest.
// Implements domain.SubjectResolver.
type SubjectResolver struct {
	cfg SubjectConfig
}

// NewSubjectResolver creates a new subject resolver.
func NewSubjectResolver(cfg SubjectConfig) *SubjectResolver {
	return &SubjectResolver{cfg: cfg}
}

// Subject returns the cache key for cred.
func (r *SubjectResolver) Subject(cred domain.Credential) (string, error) {
	if cred.IsZero() {
		return "", domain.ErrCredentialMissing
	}

	if cred.BearerToken != "" && r.cfg.Secret != "" {
		sub, err := r.verify(cred.BearerToken)
		if err != nil {
			return "", err
		}
		return subjectPrefix + sub, nil
	}

	raw := cred.BearerToken
	if raw == "" {
		raw = cred.SessionID
	}
	sum := sha256.Sum256([]byte(raw))
	return credentialPrefix + hex.EncodeToString(sum[:]), nil
}

func (r *SubjectResolver) verify(tokenStr string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if r.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.cfg.Issuer))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return []byte(r.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return "", domain.ErrSubjectMissing
	}
	return claims.Subject, nil
}
