package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	utils "github.com/Ramsey-B/organizer/pkg/context"
	"github.com/Ramsey-B/organizer/pkg/tracing"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type UserClaims struct {
	Sub         string `json:"sub"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	TenantID    string `json:"tenant_id"`
	RealmAccess struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}

type AuthConfig struct {
	IssuerURL string
	ClientID  string
	StaffRole string
}

// TokenVerifier turns a raw bearer token into claims.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*UserClaims, error)
}

type oidcVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func NewOIDCVerifier(ctx context.Context, cfg AuthConfig) (TokenVerifier, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, errors.Wrapf(err, "oidc provider %s", cfg.IssuerURL)
	}

	return &oidcVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

func (v *oidcVerifier) Verify(ctx context.Context, rawToken string) (*UserClaims, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	var claims UserClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

func Authentication(logger ectologger.Logger, verifier TokenVerifier, staffRole string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, span := tracing.StartSpan(c.Request().Context(), "middleware.Authentication")
			defer span.End()

			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				logger.WithContext(ctx).Warn("request is missing bearer token")
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer")
			}

			verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			claims, err := verifier.Verify(verifyCtx, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				logger.WithContext(ctx).WithError(err).Warn("token is invalid")
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			tenantID := claims.TenantID
			if tenantID == "" && len(claims.RealmAccess.Roles) > 0 {
				tenantID = claims.RealmAccess.Roles[0]
			}
			if claims.Sub == "" || tenantID == "" {
				logger.WithContext(ctx).Warn("token is missing subject or tenant")
				return echo.NewHTTPError(http.StatusUnauthorized, "token is missing subject or tenant")
			}

			ctx = utils.SetUserID(ctx, claims.Sub)
			ctx = utils.SetTenantID(ctx, tenantID)
			ctx = utils.SetUserEmail(ctx, claims.Email)
			ctx = utils.SetIsStaff(ctx, staffRole != "" && ectolinq.Contains(claims.RealmAccess.Roles, staffRole))

			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
