package auth

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	ldapauth "github.com/GoPowerDNS-Admin/ldapauth/internal/auth"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/web/handler"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/web/session"
)

const (
	// LocalsClaims is the fiber.Locals key holding the accepted claims.
	LocalsClaims = "claims"

	bearerPrefix = "Bearer "
)

// New returns a middleware that rejects requests without a valid token.
func New(issuer *session.Issuer) fiber.Handler {
	return func(c fiber.Ctx) error {
		token, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), bearerPrefix)
		if !ok || strings.TrimSpace(token) == "" {
			return unauthorized(c, "missing bearer token")
		}

		claims, err := issuer.Parse(strings.TrimSpace(token))
		if err != nil {
			log.Debug().Err(err).Str("path", c.Path()).Msg("token rejected")
			return unauthorized(c, "invalid or expired token")
		}

		c.Locals(LocalsClaims, claims)

		return c.Next()
	}
}

// Claims returns the claims stored by the middleware, or nil.
func Claims(c fiber.Ctx) *session.Claims {
	claims, _ := c.Locals(LocalsClaims).(*session.Claims)
	return claims
}

// RequireLocal rejects tokens that were not issued to a local account.
// It must run after New. Operator routes use it, directory users never pass.
func RequireLocal(c fiber.Ctx) error {
	claims := Claims(c)
	if claims == nil || claims.Source != ldapauth.SourceLocal {
		return c.Status(fiber.StatusForbidden).JSON(handler.ErrorResponse{Message: "local account required"})
	}

	return c.Next()
}

func unauthorized(c fiber.Ctx, msg string) error {
	c.Set(fiber.HeaderWWWAuthenticate, "Bearer")

	return c.Status(fiber.StatusUnauthorized).JSON(handler.ErrorResponse{Message: msg})
}
