package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/auth"
	appctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const verifyTimeout = 5 * time.Second

// UserLookup resolves OIDC identities to local accounts.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// Authenticator resolves bearer tokens to a user id. Local HS256 tokens are
// tried first; when an OIDC verifier is configured its id tokens are accepted
// for users that already have an account with the same email.
type Authenticator struct {
	tokens   *auth.TokenManager
	denylist *auth.Denylist
	oidc     *auth.OIDCVerifier
	users    UserLookup
	logger   ectologger.Logger
}

// AuthenticatorOption configures optional token sources.
type AuthenticatorOption func(*Authenticator)

// WithDenylist rejects revoked local tokens. Tokens are also rejected while
// the denylist cannot be checked.
func WithDenylist(denylist *auth.Denylist) AuthenticatorOption {
	return func(a *Authenticator) {
		a.denylist = denylist
	}
}

// WithOIDC accepts id tokens from an external issuer.
func WithOIDC(verifier *auth.OIDCVerifier, users UserLookup) AuthenticatorOption {
	return func(a *Authenticator) {
		a.oidc = verifier
		a.users = users
	}
}

func NewAuthenticator(tokens *auth.TokenManager, logger ectologger.Logger, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		tokens: tokens,
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Optional resolves the caller when a valid bearer is present and otherwise
// lets the request through anonymously.
func (a *Authenticator) Optional() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if ctx, ok := a.resolve(c); ok {
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	}
}

// Required rejects requests without a valid bearer.
func (a *Authenticator) Required() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, ok := a.resolve(c)
			if !ok {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
			}
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// BearerToken returns the raw bearer token of a request.
func BearerToken(r *http.Request) string {
	header := r.Header.Get(echo.HeaderAuthorization)
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func (a *Authenticator) resolve(c echo.Context) (context.Context, bool) {
	ctx, span := tracing.StartSpan(c.Request().Context(), "middleware.Authentication")
	defer span.End()

	raw := BearerToken(c.Request())
	if raw == "" {
		return nil, false
	}
	logger := a.logger.WithContext(ctx)

	claims, err := a.tokens.Parse(raw)
	if err == nil {
		if a.denylist != nil {
			revoked, err := a.denylist.IsRevoked(ctx, claims.ID)
			if err != nil {
				logger.WithError(err).Warn("failed to check token denylist")
				return nil, false
			}
			if revoked {
				logger.Warn("token was revoked")
				return nil, false
			}
		}

		ctx = appctx.SetUserID(c.Request().Context(), claims.Subject)
		ctx = appctx.SetTokenID(ctx, claims.ID)
		return ctx, true
	}

	if a.oidc == nil || a.users == nil {
		logger.WithError(err).Debug("token is invalid")
		return nil, false
	}

	verifyCtx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	idClaims, err := a.oidc.Verify(verifyCtx, raw)
	if err != nil {
		logger.WithError(err).Debug("token is invalid")
		return nil, false
	}
	if idClaims.Email == "" {
		logger.Warn("id token carries no email")
		return nil, false
	}

	user, err := a.users.GetByEmail(ctx, idClaims.Email)
	if err != nil {
		logger.WithError(err).Warn("no account for id token")
		return nil, false
	}

	return appctx.SetUserID(c.Request().Context(), user.ID.String()), true
}
