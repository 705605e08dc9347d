package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("config webserver.port listening port can not be 0")

	// ErrUnknownGormEngine error if config db.gormengine names an unsupported driver.
	ErrUnknownGormEngine = errors.New("config db.gormengine must be one of mysql, postgres, sqlite, memory")

	// ErrEmptyJWTSecret error if config webserver.jwtsecret is empty outside of dev mode.
	ErrEmptyJWTSecret = errors.New("config webserver.jwtsecret can not be empty")
)
