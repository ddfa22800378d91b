package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// identityParam is the echo path parameter carrying the tenant identity.
const identityParam = "email"

// invalidKeyBody is the reference-compatible rejection body. The legacy
// search surface returns it with a 200 status; mutation routes use 401.
var invalidKeyBody = map[string]string{"error": "Invalid API key"}

// Middleware returns an echo middleware enforcing the credential gate.
//
// The tenant identity comes from the :email path parameter and the presented
// key from the api_key query parameter. A failed check terminates the request
// before any embedding or store work happens.
func Middleware(secret string, strictStatus bool, logger *zap.Logger) echo.MiddlewareFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := c.Param(identityParam)
			presented := c.QueryParam("api_key")

			if !Authorize(identity, presented, secret) {
				logger.Warn("rejected request with invalid credential",
					zap.String("path", c.Path()),
					zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				)
				status := http.StatusOK
				if strictStatus {
					status = http.StatusUnauthorized
				}
				return c.JSON(status, invalidKeyBody)
			}

			return next(c)
		}
	}
}
