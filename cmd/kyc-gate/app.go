package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"kyc-gate/config"
	"kyc-gate/internal/adapter/credential"
	"kyc-gate/internal/adapter/gateway"
	adapterhandler "kyc-gate/internal/adapter/handler"
	"kyc-gate/internal/domain"
	infracache "kyc-gate/internal/infrastructure/cache"
	"kyc-gate/internal/infrastructure/pubsub"
	infratoken "kyc-gate/internal/infrastructure/token"
	"kyc-gate/internal/usecase"
	appmiddleware "kyc-gate/middleware"
	"kyc-gate/utils/logger"
	"kyc-gate/utils/validator"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

// apiPrefixes are served by the gate itself; every other path belongs to the
// storefront when a proxy upstream is configured.
var apiPrefixes = []string{"/v1/", "/validate", "/csrf", "/internal/", "/health", "/metrics"}

// app is the wired server plus the long-running pieces serve has to drive.
type app struct {
	echo  *echo.Echo
	store *infracache.IdentityStore
	bus   *pubsub.RedisBus
}

// newApp builds the dependency graph for cfg. The rate limiter sweepers stop
// when ctx is cancelled.
func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger, serviceName string, tracing bool) (*app, error) {
	// Infrastructure
	store, err := infracache.NewIdentityStore(cfg.CacheSize, cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("create identity store: %w", err)
	}

	var fetcher domain.IdentityFetcher
	switch cfg.IdentityProvider {
	case config.ProviderKratos:
		fetcher = gateway.NewKratosGateway(cfg.KratosURL, cfg.IdentityTimeout)
	default:
		fetcher = gateway.NewIdentityAPIGateway(cfg.IdentityURL, cfg.IdentityTimeout)
	}

	subjects := infratoken.NewSubjectResolver(infratoken.SubjectConfig{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
	})
	csrfGenerator := infratoken.NewHMACCSRFGenerator(cfg.CSRFSecret)
	creds := credential.NewExtractor(cfg.SessionCookie)
	policy := domain.NewPolicy(cfg.OnboardingPath)

	healthChecks := map[string]adapterhandler.HealthCheck{}

	var bus *pubsub.RedisBus
	var publisher domain.InvalidationPublisher
	if cfg.RedisURL != "" {
		bus, err = pubsub.NewRedisBusWithURL(cfg.RedisURL, cfg.RedisChannel, log)
		if err != nil {
			return nil, fmt.Errorf("create invalidation bus: %w", err)
		}
		publisher = bus
		healthChecks["redis"] = bus.Ping
	}

	// Usecases
	resolver := usecase.NewResolveIdentity(fetcher, store, subjects, cfg.IdentityTimeout, log)
	invalidateUC := usecase.NewInvalidateIdentity(store, publisher, log)
	gatekeeperUC := usecase.NewGatekeeper(resolver, policy, log)
	redirectUC := usecase.NewCoordinateRedirect(resolver, policy, log)
	statusUC := usecase.NewGetKycStatus(resolver, invalidateUC, policy, log)
	csrfUC := usecase.NewGenerateCSRF(resolver, csrfGenerator, log)

	// Handlers
	validateHandler := adapterhandler.NewValidateHandler(redirectUC, creds)
	navigationHandler := adapterhandler.NewNavigationHandler(gatekeeperUC, creds)
	statusHandler := adapterhandler.NewStatusHandler(statusUC, csrfUC, creds)
	redirectHandler := adapterhandler.NewRedirectHandler(redirectUC, creds)
	eventsHandler := adapterhandler.NewEventsHandler(statusUC, resolver, store, creds, adapterhandler.DefaultHeartbeat, log)
	csrfHandler := adapterhandler.NewCSRFHandler(csrfUC, creds)
	internalHandler := adapterhandler.NewInternalHandler(invalidateUC)
	healthHandler := adapterhandler.NewHealthHandler(healthChecks)

	// Setup Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validator.New()

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(appmiddleware.RequestContext())

	// OpenTelemetry tracing
	if tracing {
		e.Use(otelecho.Middleware(serviceName))
		e.Use(appmiddleware.OTelStatusMiddleware())
	}

	// Proxied storefront pages keep the upstream's own headers.
	e.Use(appmiddleware.SecurityHeaders(func(c echo.Context) bool {
		return cfg.UpstreamURL != "" && !isAPIPath(c.Request().URL.Path)
	}))

	// Request logging
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return p == "/health" || p == "/metrics"
		},
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			rctx := c.Request().Context()
			reqLog := logger.FromContext(rctx, log)
			if v.Error == nil {
				reqLog.InfoContext(rctx, "request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				reqLog.ErrorContext(rctx, "request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))

	e.Use(middleware.Recover())

	// Rate limiters per endpoint group
	validateRL := appmiddleware.NewRateLimiter(ctx, 600.0/60.0, 50)   // 600 req/min
	navigationRL := appmiddleware.NewRateLimiter(ctx, 300.0/60.0, 30) // 300 req/min
	recheckRL := appmiddleware.NewRateLimiter(ctx, 10.0/60.0, 3)      // 10 req/min
	csrfRL := appmiddleware.NewRateLimiter(ctx, 10.0/60.0, 3)         // 10 req/min
	internalRL := appmiddleware.NewRateLimiter(ctx, 60.0/60.0, 10)    // 60 req/min

	// Public routes
	e.GET("/validate", validateHandler.Handle, validateRL.Middleware())
	e.POST("/csrf", csrfHandler.Handle, csrfRL.Middleware())
	e.GET("/health", healthHandler.Handle)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/v1")
	v1.POST("/navigation/check", navigationHandler.Handle, navigationRL.Middleware())
	v1.GET("/kyc/status", statusHandler.HandleStatus, navigationRL.Middleware())
	v1.POST("/kyc/recheck", statusHandler.HandleRecheck, recheckRL.Middleware())
	v1.GET("/kyc/redirect", redirectHandler.Handle, navigationRL.Middleware())
	v1.GET("/kyc/events", eventsHandler.Handle)

	// Internal routes (protected by shared secret)
	internalGroup := e.Group("/internal",
		internalRL.Middleware(),
		appmiddleware.InternalAuth(cfg.AuthSharedSecret),
	)
	internalGroup.POST("/identity/invalidate", internalHandler.HandleInvalidate)

	// Gated storefront
	if cfg.UpstreamURL != "" {
		proxy, err := adapterhandler.NewUpstreamProxy(cfg.UpstreamURL, log)
		if err != nil {
			return nil, err
		}
		e.Any("/*", proxy, appmiddleware.KycGate(redirectUC, creds))
	}

	return &app{echo: e, store: store, bus: bus}, nil
}

func isAPIPath(p string) bool {
	for _, prefix := range apiPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}
