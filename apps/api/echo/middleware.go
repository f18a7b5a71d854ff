package echoapi

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"
)

// inboundKeyMiddleware rejects webhook calls without the configured `?key=`. An empty key disables the check.
func inboundKeyMiddleware(key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if key == "" {
				return next(ctx)
			}
			if subtle.ConstantTimeCompare([]byte(ctx.QueryParam("key")), []byte(key)) == 1 {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
