package middleware

import (
	"net/http"
	"strings"

	"kyc-gate/internal/adapter/credential"
	"kyc-gate/internal/domain"
	"kyc-gate/internal/usecase"

	"github.com/labstack/echo/v4"
)

// staticPrefixes are served without an identity lookup.
var staticPrefixes = []string{"/_next/", "/static/", "/assets/", "/favicon.ico", "/robots.txt"}

// KycGate redirects customers without an approved KYC status to onboarding
// before a page request reaches the storefront. Only GET and HEAD document
// requests are gated; everything else passes through and is left to the API
// it targets.
func KycGate(uc *usecase.CoordinateRedirect, creds credential.Extractor) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet && req.Method != http.MethodHead {
				return next(c)
			}
			if isStaticAsset(req.URL.Path) {
				return next(c)
			}

			result := uc.Execute(req.Context(), creds.FromRequest(req), req.URL.Path)
			if result.State == domain.RedirectBlocked && result.RedirectTo != "" {
				c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
				return c.Redirect(http.StatusFound, result.RedirectTo)
			}
			return next(c)
		}
	}
}

func isStaticAsset(p string) bool {
	for _, prefix := range staticPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}
