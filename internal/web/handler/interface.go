// Package handler holds what the HTTP handlers share.
package handler

import (
	"context"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/auth"
)

// Authenticator checks credentials. A nil principal with a nil error is a refusal.
type Authenticator interface {
	Authenticate(ctx context.Context, scope auth.Scope, login, password string) (*auth.Principal, error)
}

// GroupCache is the membership cache the admin routes flush.
type GroupCache interface {
	Invalidate(wiki, localUID string)
	Purge()
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// FieldError names a request field that failed validation.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
}
