package api

import echo "github.com/labstack/echo/v5"

// extractAuthor returns the caller identity forwarded by the oauth2-proxy
// sidecar, falling back to a generic service-account label for direct
// (non-proxied) calls such as local development and tests.
func extractAuthor(c *echo.Context) string {
	if user := c.Request().Header.Get("X-Forwarded-User"); user != "" {
		return user
	}
	if email := c.Request().Header.Get("X-Forwarded-Email"); email != "" {
		return email
	}
	return "api-client"
}
