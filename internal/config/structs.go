package config

import (
	"time"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Wiki      Wiki

	// props exposes the raw key space (ldap.* keys) of the loaded files.
	props Properties
}

// Properties returns the key/value view of the loaded configuration.
func (c *Config) Properties() Properties {
	if c.props == nil {
		return Chain{}
	}

	return c.props
}

// SetProperties replaces the key/value view, e.g. to layer database settings over the files.
func (c *Config) SetProperties(p Properties) {
	c.props = p
}

// Wiki holds the tenant settings.
type Wiki struct {
	Main          string // wiki used when a request does not name one
	AdminPassword string // seeds the local XWiki.Admin account when set and the account is missing
}

// Webserver implement webserver settings.
type Webserver struct {
	Port         int           // listening port for the webserver
	ShutDownTime int           // wait time for shutdown
	URL          string        // base url for the webserver
	JWTSecret    string        // HMAC secret signing login tokens
	TokenExpiry  time.Duration // lifetime of login tokens
}
