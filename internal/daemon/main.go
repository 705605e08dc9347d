// Package daemon wires the store, the authentication service and the web server.
package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/config"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/web"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	components *Components
	webService *web.Service
}

// Start serves until SIGINT or SIGTERM.
func (d *Daemon) Start() error {
	go d.webService.WaitShutdown()

	err := d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))

	if d.components.DB != nil {
		if sqlDB, errDB := d.components.DB.DB(); errDB == nil {
			_ = sqlDB.Close()
		}
	}

	return err
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	components, err := Wire(cfg)
	if err != nil {
		return nil, err
	}

	if err = seed(context.Background(), cfg, components); err != nil {
		return nil, fmt.Errorf("failed to seed admin account: %w", err)
	}

	webService, err := web.New(cfg, components.Auth)
	if err != nil {
		return nil, err
	}

	log.Info().Str("engine", cfg.DB.GormEngine).Str("mainWiki", components.Settings.MainWiki).Msg("daemon ready")

	return &Daemon{
		cfg:        cfg,
		components: components,
		webService: webService,
	}, nil
}
