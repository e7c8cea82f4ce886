package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"kyc-gate/internal/domain"
)

// GenerateCSRF issues and verifies CSRF tokens bound to the caller's identity key.
type GenerateCSRF struct {
	resolver IdentityResolver
	csrf     domain.CSRFTokenGenerator
	logger   *slog.Logger
}

// NewGenerateCSRF creates a new GenerateCSRF usecase.
func NewGenerateCSRF(r IdentityResolver, csrf domain.CSRFTokenGenerator, l *slog.Logger) *GenerateCSRF {
	return &GenerateCSRF{resolver: r, csrf: csrf, logger: l}
}

// Execute resolves the caller and generates a CSRF token for them.
// Unlike the gate, token issuance requires a resolvable identity.
func (uc *GenerateCSRF) Execute(ctx context.Context, cred domain.Credential) (string, error) {
	if cred.IsZero() {
		return "", domain.ErrCredentialMissing
	}
	key, err := uc.resolver.Key(cred)
	if err != nil {
		return "", err
	}
	if uc.resolver.Execute(ctx, cred) == nil {
		return "", domain.ErrUnauthenticated
	}

	token, err := uc.csrf.Generate(key)
	if err != nil {
		uc.logger.ErrorContext(ctx, "failed to generate CSRF token", "error", err)
		return "", fmt.Errorf("generate csrf token: %w", err)
	}
	return token, nil
}

// Verify checks token against the caller's identity key.
func (uc *GenerateCSRF) Verify(cred domain.Credential, token string) error {
	if cred.IsZero() {
		return domain.ErrCredentialMissing
	}
	if token == "" {
		return domain.ErrCSRFMismatch
	}
	key, err := uc.resolver.Key(cred)
	if err != nil {
		return err
	}
	return uc.csrf.Verify(key, token)
}
