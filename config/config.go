package config

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"kyc-gate/internal/domain"
)

// Identity providers.
const (
	ProviderHTTP   = "http"
	ProviderKratos = "kratos"
)

// Config holds the application configuration
type Config struct {
	IdentityProvider string        // "http" (backend /auth/me) or "kratos"
	IdentityURL      string        // Identity endpoint for the http provider
	KratosURL        string        // Kratos public API for the kratos provider
	IdentityTimeout  time.Duration // Upper bound for one identity fetch
	Port             string        // Service port
	CacheTTL         time.Duration // Identity cache TTL
	CacheSize        int           // Max cached identities
	OnboardingPath   string        // Path customers are sent to until KYC is approved
	SessionCookie    string        // Cookie carrying the session credential
	JWTSecret        string        // HS256 secret for bearer subject verification
	JWTIssuer        string        // Expected iss claim, optional
	CSRFSecret       string        // CSRF secret for token generation
	AuthSharedSecret string        // Shared secret for internal endpoints
	RedisURL         string        // Invalidation bus, optional
	RedisChannel     string        // Invalidation channel
	UpstreamURL      string        // Storefront to proxy behind the gate, optional
	LogLevel         string        // debug, info, warn, error
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	config := &Config{
		IdentityProvider: strings.ToLower(getEnv("IDENTITY_PROVIDER", ProviderHTTP)),
		IdentityURL:      getEnv("IDENTITY_URL", "http://backend:8080/auth/me"),
		KratosURL:        getEnv("KRATOS_URL", "http://kratos:4433"),
		IdentityTimeout:  3 * time.Second,
		Port:             getEnv("PORT", "8890"),
		CacheTTL:         5 * time.Minute,
		CacheSize:        10000,
		OnboardingPath:   getEnv("ONBOARDING_PATH", domain.DefaultOnboardingPath),
		SessionCookie:    getEnv("SESSION_COOKIE", "session"),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTIssuer:        getEnv("JWT_ISSUER", ""),
		CSRFSecret:       getEnv("CSRF_SECRET", ""),
		AuthSharedSecret: getEnv("AUTH_SHARED_SECRET", ""),
		RedisURL:         getEnv("REDIS_URL", ""),
		RedisChannel:     getEnv("REDIS_CHANNEL", "kyc-gate:identity:invalidate"),
		UpstreamURL:      getEnv("UPSTREAM_URL", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if config.IdentityTimeout, err = durationEnv("IDENTITY_TIMEOUT", config.IdentityTimeout); err != nil {
		return nil, err
	}
	if config.CacheTTL, err = durationEnv("CACHE_TTL", config.CacheTTL); err != nil {
		return nil, err
	}
	if sizeStr := os.Getenv("CACHE_SIZE"); sizeStr != "" {
		size, err := strconv.Atoi(sizeStr)
		if err != nil {
			return nil, fmt.Errorf("invalid CACHE_SIZE format: %w", err)
		}
		config.CacheSize = size
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.IdentityProvider {
	case ProviderHTTP:
		if c.IdentityURL == "" {
			return fmt.Errorf("IDENTITY_URL cannot be empty")
		}
	case ProviderKratos:
		if c.KratosURL == "" {
			return fmt.Errorf("KRATOS_URL cannot be empty")
		}
	default:
		return fmt.Errorf("IDENTITY_PROVIDER must be %q or %q, got %q", ProviderHTTP, ProviderKratos, c.IdentityProvider)
	}

	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	if c.IdentityTimeout <= 0 {
		return fmt.Errorf("IDENTITY_TIMEOUT must be positive")
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}

	if c.CacheSize <= 0 {
		return fmt.Errorf("CACHE_SIZE must be positive")
	}

	if !strings.HasPrefix(c.OnboardingPath, "/") {
		return fmt.Errorf("ONBOARDING_PATH must start with /")
	}
	// Every path is under "/", which would exempt the whole site.
	if path.Clean(c.OnboardingPath) == "/" {
		return fmt.Errorf("ONBOARDING_PATH cannot be the site root")
	}

	if c.UpstreamURL != "" {
		u, err := url.Parse(c.UpstreamURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("UPSTREAM_URL must be an absolute URL")
		}
	}

	return nil
}

// IdentityBaseURL returns the endpoint of the configured identity provider.
func (c *Config) IdentityBaseURL() string {
	if c.IdentityProvider == ProviderKratos {
		return c.KratosURL
	}
	return c.IdentityURL
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format: %w", key, err)
	}
	return d, nil
}

// getEnv retrieves an environment variable or returns a fallback value
func getEnv(key, fallback string) string {
	// Check for _FILE suffix
	if fileValue := os.Getenv(key + "_FILE"); fileValue != "" {
		content, err := os.ReadFile(fileValue)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
