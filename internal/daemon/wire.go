package daemon

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/auth"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/config"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/db"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/db/controller/setting"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/store"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/store/memory"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/store/sqlstore"
)

// Components are the wired parts shared by the daemon and the command line tools.
type Components struct {
	DB        *gorm.DB // nil for the memory engine
	Store     store.Store
	Settings  auth.Settings
	Directory *auth.LDAPProvider // nil when ldap is disabled
	Auth      *auth.Service

	// SettingsErrors are the mapping entries skipped while loading Settings.
	SettingsErrors []error
}

// Wire opens the store, resolves the directory settings and builds the
// authentication service. Settings stored in the database override the files.
func Wire(cfg *config.Config) (*Components, error) {
	var (
		c     = &Components{}
		props = cfg.Properties()
	)

	if cfg.DB.GormEngine == config.EngineMemory {
		log.Warn().Msg("memory engine: profiles and groups are lost on restart")
		c.Store = memory.New()
	} else {
		gdb, err := db.Open(cfg)
		if err != nil {
			return nil, err
		}

		if c.Store, err = sqlstore.New(gdb); err != nil {
			return nil, err
		}

		c.DB = gdb
		props = config.Chain{setting.NewProperties(gdb), props}
	}

	// the wiki section is the fallback of ldap's own main wiki key
	props = config.Chain{props, config.Map{auth.KeyMainWiki: cfg.Wiki.Main}}

	c.Settings, c.SettingsErrors = auth.LoadSettings(props)

	var directory auth.Directory

	if c.Settings.Enabled {
		provider, err := auth.NewLDAPProvider(c.Settings)
		if err != nil {
			return nil, fmt.Errorf("failed to set up ldap: %w", err)
		}

		c.Directory = provider
		directory = provider

		log.Info().Str("url", provider.URL()).Str("baseDN", c.Settings.BaseDN).Msg("ldap authentication enabled")
	} else {
		log.Info().Msg("ldap authentication disabled, only local accounts can log in")
	}

	c.Auth = auth.NewService(c.Settings, c.Store, directory, nil)

	return c, nil
}
