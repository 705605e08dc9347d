package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/daemon"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(checkLDAPCmd)
}

var checkLDAPCmd = &cobra.Command{
	Use:   "check-ldap",
	Short: "Connect and bind to the configured directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := daemon.Wire(&cfg)
		if err != nil {
			return err
		}

		for _, errSetting := range c.SettingsErrors {
			if _, err = fmt.Fprintf(cmd.ErrOrStderr(), "skipped: %v\n", errSetting); err != nil {
				return err
			}
		}

		if c.Directory == nil {
			return errors.New("ldap is disabled")
		}

		if err = c.Directory.TestConnection(cmd.Context()); err != nil {
			return err
		}

		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: bind ok\n", c.Directory.URL())

		return err
	},
}
