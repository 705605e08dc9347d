package daemon

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/config"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/store"
)

// AdminName is the local account created by seed.
const AdminName = "Admin"

// seed creates the local admin account when a password is configured and the
// account does not exist yet.
func seed(ctx context.Context, cfg *config.Config, c *Components) error {
	if cfg.Wiki.AdminPassword == "" {
		return nil
	}

	ref := store.Reference{Wiki: cfg.Wiki.Main, Space: store.DefaultSpace, Name: AdminName}

	_, err := c.Auth.Local().CreateUser(ctx, ref, cfg.Wiki.AdminPassword, map[string]string{
		"first_name": "Administrator",
	})

	switch {
	case errors.Is(err, store.ErrDocumentExists):
		return nil
	case err != nil:
		return err
	}

	log.Info().Str("user", ref.String()).Msg("local admin account created")

	return nil
}
