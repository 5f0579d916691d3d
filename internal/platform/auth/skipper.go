package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists URL paths that bypass authentication: health checks and
// the endpoints that hand out tokens.
var publicPaths = map[string]bool{
	"/health":               true,
	"/health/db":            true,
	"/api/v1/auth/login":    true,
	"/api/v1/auth/register": true,
}

// AuthSkipper returns true for requests whose path should skip authentication.
// The matched route is checked first, then the raw request path.
func AuthSkipper(c echo.Context) bool {
	if p := c.Path(); p != "" && publicPaths[p] {
		return true
	}
	return publicPaths[c.Request().URL.Path]
}

// IsPublicPath reports whether the given path bypasses auth.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
