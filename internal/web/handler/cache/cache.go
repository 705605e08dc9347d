// Package cache exposes the group membership cache to operators.
package cache

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/web/handler"
	authmiddleware "github.com/GoPowerDNS-Admin/ldapauth/internal/web/middleware/auth"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/web/session"
)

// Path is the root of the cache routes.
const Path = handler.APIPath + "/cache/groups"

// Service is the cache handler service.
type Service struct {
	cache handler.GroupCache
}

// Handler is the cache handler.
var Handler = Service{}

// Init registers the cache routes behind the token check. Only local accounts
// may flush the cache.
func (s *Service) Init(app *fiber.App, cache handler.GroupCache, issuer *session.Issuer) error {
	if app == nil || cache == nil || issuer == nil {
		return errors.New(handler.ErrNilDepsMsg)
	}

	s.cache = cache

	router := app.Group(Path, authmiddleware.New(issuer), authmiddleware.RequireLocal)
	router.Delete(handler.RootPath, s.Purge)
	router.Delete("/:wiki/:uid", s.Invalidate)

	return nil
}

// Purge drops every cached membership.
func (s *Service) Purge(c fiber.Ctx) error {
	s.cache.Purge()
	log.Info().Str("by", authmiddleware.Claims(c).Subject).Msg("group cache purged")

	return c.SendStatus(fiber.StatusNoContent)
}

// Invalidate drops the cached membership of one user.
func (s *Service) Invalidate(c fiber.Ctx) error {
	wiki, uid := c.Params("wiki"), c.Params("uid")

	s.cache.Invalidate(wiki, uid)
	log.Info().
		Str("by", authmiddleware.Claims(c).Subject).
		Str("wiki", wiki).
		Str("uid", uid).
		Msg("group cache entry invalidated")

	return c.SendStatus(fiber.StatusNoContent)
}
