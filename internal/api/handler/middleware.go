package handler

import (
	"context"
	"errors"
	"strings"

	"codedrop/internal/models"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
)

type ctxKey string

var ctxKeyIdentity ctxKey = "AUTH_IDENTITY"

// Authn resolves a bearer token into an identity when one is present. It
// never terminates unauthenticated requests; auth-gated projects reject
// later, inside the redemption pipeline.
func Authn(verifier interface {
	Validate(token string) (*models.Identity, error)
},
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return next(c)
			}

			parts := strings.Split(header, "Bearer")
			if len(parts) != 2 {
				return next(c)
			}

			token := strings.TrimSpace(parts[1])
			if len(token) == 0 {
				return next(c)
			}

			identity, err := verifier.Validate(token)
			if err != nil {
				// although it's a client error, we don't want to leak details
				//nolint:errcheck
				httpx.Abort(c, errorx.Wrap(errors.New("invalid access token"), errorx.Authn), -1)
				return nil
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, ctxKeyIdentity, identity)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// ResolveIdentity returns the authenticated identity from the context, or
// nil for anonymous callers.
func ResolveIdentity(ctx context.Context) *models.Identity {
	identity, ok := ctx.Value(ctxKeyIdentity).(*models.Identity)
	if !ok {
		return nil
	}
	return identity
}
