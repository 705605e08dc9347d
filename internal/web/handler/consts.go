package handler

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// APIPath prefixes the JSON routes.
	APIPath = "/api"

	// ErrNilDepsMsg is used if the app or a handler dependency is nil.
	ErrNilDepsMsg = "app or handler dependency is nil"
)
