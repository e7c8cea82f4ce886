package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"kyc-gate/internal/domain"
)

// HMACCSRFGenerator generates CSRF tokens using HMAC-SHA256.
// Implements domain.CSRFTokenGenerator.
type HMACCSRFGenerator struct {
	secret []byte
}

// NewHMACCSRFGenerator creates a new CSRF token generator.
func NewHMACCSRFGenerator(secret string) *HMACCSRFGenerator {
	return &HMACCSRFGenerator{secret: []byte(secret)}
}

// Generate creates a deterministic CSRF token bound to an identity key.
func (g *HMACCSRFGenerator) Generate(key string) (string, error) {
	if len(g.secret) == 0 {
		return "", domain.ErrCSRFSecretMissing
	}

	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(key))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Verify checks token against the one generated for key in constant time.
func (g *HMACCSRFGenerator) Verify(key, token string) error {
	want, err := g.Generate(key)
	if err != nil {
		return err
	}
	if token == "" || !hmac.Equal([]byte(want), []byte(token)) {
		return domain.ErrCSRFMismatch
	}
	return nil
}
