package context

import "context"

type ContextKey string

var (
	RequestIDKey = ContextKey("X-Request-Id")
	MethodKey    = ContextKey("X-Method")
	RouteKey     = ContextKey("X-Route")
	RemoteIPKey  = ContextKey("X-Remote-Ip")
	RefererKey   = ContextKey("X-Referer")
	UserAgentKey = ContextKey("X-User-Agent")
	TenantIDKey  = ContextKey("X-Tenant-Id")
	UserIDKey    = ContextKey("X-User-Id")
	UserEmailKey = ContextKey("X-User-Email")
	IsStaffKey   = ContextKey("X-User-Staff")
)

func getString(ctx context.Context, key ContextKey) string {
	value, ok := ctx.Value(key).(string)
	if !ok {
		return ""
	}
	return value
}

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	return getString(ctx, RequestIDKey)
}

func SetMethod(ctx context.Context, method string) context.Context {
	return context.WithValue(ctx, MethodKey, method)
}

func GetMethod(ctx context.Context) string {
	return getString(ctx, MethodKey)
}

func SetRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, RouteKey, route)
}

func GetRoute(ctx context.Context) string {
	return getString(ctx, RouteKey)
}

func SetRemoteIP(ctx context.Context, remoteIP string) context.Context {
	return context.WithValue(ctx, RemoteIPKey, remoteIP)
}

// GetRemoteIP is recorded on every audit entry.
func GetRemoteIP(ctx context.Context) string {
	return getString(ctx, RemoteIPKey)
}

func SetReferer(ctx context.Context, referer string) context.Context {
	return context.WithValue(ctx, RefererKey, referer)
}

func GetReferer(ctx context.Context) string {
	return getString(ctx, RefererKey)
}

func SetUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, UserAgentKey, userAgent)
}

func GetUserAgent(ctx context.Context) string {
	return getString(ctx, UserAgentKey)
}

func SetTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

func GetTenantID(ctx context.Context) string {
	return getString(ctx, TenantIDKey)
}

func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func GetUserID(ctx context.Context) string {
	return getString(ctx, UserIDKey)
}

func SetUserEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, UserEmailKey, email)
}

func GetUserEmail(ctx context.Context) string {
	return getString(ctx, UserEmailKey)
}

// SetIsStaff marks the caller as a firm employee who may act on any client's submissions.
func SetIsStaff(ctx context.Context, isStaff bool) context.Context {
	return context.WithValue(ctx, IsStaffKey, isStaff)
}

func GetIsStaff(ctx context.Context) bool {
	value, ok := ctx.Value(IsStaffKey).(bool)
	return ok && value
}

// Actor is the caller identity carried through a request.
type Actor struct {
	TenantID  string
	UserID    string
	Email     string
	IsStaff   bool
	RemoteIP  string
	UserAgent string
}

func GetActor(ctx context.Context) Actor {
	return Actor{
		TenantID:  GetTenantID(ctx),
		UserID:    GetUserID(ctx),
		Email:     GetUserEmail(ctx),
		IsStaff:   GetIsStaff(ctx),
		RemoteIP:  GetRemoteIP(ctx),
		UserAgent: GetUserAgent(ctx),
	}
}

// WithActor stores every identity field of actor on ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	ctx = SetTenantID(ctx, actor.TenantID)
	ctx = SetUserID(ctx, actor.UserID)
	ctx = SetUserEmail(ctx, actor.Email)
	ctx = SetIsStaff(ctx, actor.IsStaff)
	ctx = SetRemoteIP(ctx, actor.RemoteIP)
	return SetUserAgent(ctx, actor.UserAgent)
}
