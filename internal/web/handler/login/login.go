package login

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/auth"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/web/handler"
	authmiddleware "github.com/GoPowerDNS-Admin/ldapauth/internal/web/middleware/auth"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/web/session"
)

const (
	// Path is the path of the login route.
	Path = handler.APIPath + "/login"

	// MePath returns the claims of the presented token.
	MePath = handler.APIPath + "/me"
)

// Request is the login body.
type Request struct {
	Login    string `json:"login"    validate:"required,max=255"`
	Password string `json:"password" validate:"max=1024"`
	Wiki     string `json:"wiki"     validate:"omitempty,max=100,excludesall=:"`
}

// Response is returned on a successful login.
type Response struct {
	Principal *auth.Principal `json:"principal"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// Service is the login handler service.
type Service struct {
	authn  handler.Authenticator
	issuer *session.Issuer
}

// Handler is the login handler.
var Handler = Service{}

// Init registers the login routes.
func (s *Service) Init(app *fiber.App, authn handler.Authenticator, issuer *session.Issuer) error {
	if app == nil || authn == nil || issuer == nil {
		return errors.New(handler.ErrNilDepsMsg)
	}

	s.authn = authn
	s.issuer = issuer

	app.Post(Path, s.Post)
	app.Get(MePath, authmiddleware.New(issuer), s.Me)

	return nil
}

// Post handles the login submission.
func (s *Service) Post(c fiber.Ctx) error {
	req := new(Request)

	if err := c.Bind().Body(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(handler.ErrorResponse{Message: ErrInvalidFormData.Error()})
	}

	if fields := handler.Validate(req); len(fields) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(handler.ErrorResponse{
			Message: ErrInvalidFormData.Error(),
			Fields:  fields,
		})
	}

	principal, err := s.authn.Authenticate(c.Context(), auth.Scope{Wiki: req.Wiki}, req.Login, req.Password)
	if err != nil {
		log.Error().Err(err).Str("login", req.Login).Msg("login failed")
		return c.Status(fiber.StatusInternalServerError).JSON(handler.ErrorResponse{
			Message: ErrInternalServerError.Error(),
		})
	}

	if principal == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(handler.ErrorResponse{Message: ErrInvalidCredentials.Error()})
	}

	token, expiresAt, err := s.issuer.Issue(principal)
	if err != nil {
		log.Error().Err(err).Str("principal", principal.Name).Msg("failed to issue token")
		return c.Status(fiber.StatusInternalServerError).JSON(handler.ErrorResponse{
			Message: ErrInternalServerError.Error(),
		})
	}

	return c.JSON(Response{
		Principal: principal,
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// Me returns the principal of the presented token.
func (s *Service) Me(c fiber.Ctx) error {
	claims := authmiddleware.Claims(c)

	return c.JSON(auth.Principal{
		Name:     claims.Subject,
		Wiki:     claims.Wiki,
		LocalUID: claims.LocalUID,
		DN:       claims.DN,
		Source:   claims.Source,
	})
}
