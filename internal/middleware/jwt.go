// Package middleware contains reusable HTTP middleware: JWT authentication,
// optional identity extraction for guest-accessible routes, Redis-backed
// rate limiting and response caching.
package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Context keys under which the authenticated identity is stored.
const (
	CtxUserID   = "user_id"
	CtxUsername = "username"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the subject and username claims into the request context. The
// provided secret must match the one used when issuing tokens. Routes that
// require a logged-in user (profile operations) are wrapped with this; note
// routes use OptionalIdentity instead since guests are first-class there.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := parseClaims(strings.TrimPrefix(auth, "Bearer "), secret)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(CtxUserID, claims["sub"])
			c.Set(CtxUsername, claims["username"])
			return next(c)
		}
	}
}

// OptionalIdentity returns a middleware that extracts the identity from a
// Bearer token when one is present and valid, and otherwise lets the request
// through as anonymous. An invalid token is treated as no token rather than
// rejected: note routes never require authentication, they only behave
// differently when it is there.
func OptionalIdentity(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				if claims, err := parseClaims(strings.TrimPrefix(auth, "Bearer "), secret); err == nil {
					c.Set(CtxUserID, claims["sub"])
					c.Set(CtxUsername, claims["username"])
				}
			}
			return next(c)
		}
	}
}

// parseClaims validates an HS256 token against the secret and returns its
// claim map. Tokens signed with any other method are rejected.
func parseClaims(raw, secret string) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, echo.ErrUnauthorized
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, echo.ErrUnauthorized
	}
	return claims, nil
}
