package middleware

import (
	"github.com/labstack/echo/v4"
)

// SecurityHeadersConfig controls the optional headers of SecurityHeaders.
type SecurityHeadersConfig struct {
	// HSTS adds Strict-Transport-Security. Enable it only behind TLS.
	HSTS bool
}

// SecurityHeaders returns middleware that sets security response headers on
// every request. Responses carry health data, so they are never cached.
func SecurityHeaders(cfg SecurityHeadersConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "0")

			// Rendered HTML reports carry inline styles.
			h.Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; frame-ancestors 'none'")
			if cfg.HSTS {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			h.Set("Cache-Control", "no-store")

			return next(c)
		}
	}
}
