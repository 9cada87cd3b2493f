package middleware

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/rod/server/internal/observability"
)

// RequestContext stores an observability.RequestContext on the request so
// handlers and services log with the request id. It reuses the id set by
// echo's RequestID middleware when present.
func RequestContext(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = req.Header.Get(echo.HeaderXRequestID)
			}
			reqCtx := observability.NewRequestContextWithID(logger, requestID, c.Path(), "")
			if requestID == "" {
				c.Response().Header().Set(echo.HeaderXRequestID, reqCtx.RequestID)
			}
			c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), reqCtx)))
			return next(c)
		}
	}
}
