package middleware

import (
	"strconv"
	"strings"

	"github.com/Ramsey-B/organizer/pkg/context"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	HeaderTenantID  = "X-Tenant-ID"
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
	HeaderUserStaff = "X-User-Staff"
)

// Context seeds the request context with request metadata. When trustHeaders is set the caller
// identity is also taken from the X-Tenant-ID / X-User-* headers, which is how the service runs
// behind a gateway that has already authenticated the caller.
func Context(trustHeaders bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			ctx := req.Context()
			ctx = context.SetRequestID(ctx, requestID)
			ctx = context.SetMethod(ctx, req.Method)
			ctx = context.SetRoute(ctx, req.URL.Path)
			ctx = context.SetRemoteIP(ctx, ClientIP(c))
			ctx = context.SetReferer(ctx, req.Referer())
			ctx = context.SetUserAgent(ctx, req.UserAgent())

			if trustHeaders {
				ctx = context.SetTenantID(ctx, req.Header.Get(HeaderTenantID))
				ctx = context.SetUserID(ctx, req.Header.Get(HeaderUserID))
				ctx = context.SetUserEmail(ctx, req.Header.Get(HeaderUserEmail))
				staff, _ := strconv.ParseBool(req.Header.Get(HeaderUserStaff))
				ctx = context.SetIsStaff(ctx, staff)
			}

			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}

// ClientIP prefers the first X-Forwarded-For hop and falls back to echo's RealIP.
func ClientIP(c echo.Context) string {
	forwarded := c.Request().Header.Get(echo.HeaderXForwardedFor)
	if forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" {
			return first
		}
	}
	return c.RealIP()
}
