package app

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/auth"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/daemon"
)

// EnvPassword is read when --password is not given.
const EnvPassword = "LDAPAUTH_PASSWORD"

var errRefused = errors.New("login refused")

func init() { //nolint: gochecknoinits
	authenticateCmd.Flags().StringVar(&authPassword, "password", "", "password, defaults to $"+EnvPassword)
	authenticateCmd.Flags().StringVar(&authWiki, "wiki", "", "wiki to log into, defaults to the main wiki")

	rootCmd.AddCommand(authenticateCmd)
}

var (
	authPassword string
	authWiki     string

	authenticateCmd = &cobra.Command{
		Use:   "authenticate <login>",
		Short: "Log a user in once and print the resulting principal",
		Long: `Log a user in exactly as the web service does, provisioning the profile
and groups on success, and print the principal as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := authPassword
			if password == "" {
				password = os.Getenv(EnvPassword)
			}

			c, err := daemon.Wire(&cfg)
			if err != nil {
				return err
			}

			principal, err := c.Auth.Authenticate(cmd.Context(), auth.Scope{Wiki: authWiki}, args[0], password)
			if err != nil {
				return err
			}

			if principal == nil {
				return errRefused
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(principal)
		},
	}
)
