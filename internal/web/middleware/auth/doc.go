// Package auth provides the token check guarding the protected API routes.
//
// The middleware expects an "Authorization: Bearer <token>" header carrying a
// token issued by the login handler. Requests without a valid token are
// answered with 401 and never reach the handler. Accepted claims are stored in
// fiber.Locals and read back with Claims.
//
// Usage:
//
//	app.Get("/api/me", authmiddleware.New(issuer), handler)
package auth
