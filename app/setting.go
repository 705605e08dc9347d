package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/GoPowerDNS-Admin/ldapauth/internal/config"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/db"
	"github.com/GoPowerDNS-Admin/ldapauth/internal/db/controller/setting"
)

func init() { //nolint: gochecknoinits
	settingCmd.AddCommand(settingListCmd, settingSetCmd, settingDeleteCmd)
	rootCmd.AddCommand(settingCmd)
}

var (
	settingCmd = &cobra.Command{
		Use:   "setting",
		Short: "Manage directory settings stored in the database",
		Long: `Manage directory settings stored in the database. Stored values, e.g.
ldap.server or ldap.group_mapping, override the configuration file.`,
	}

	settingListCmd = &cobra.Command{
		Use:   "list",
		Short: "List stored settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gdb, err := openSettingsDB()
			if err != nil {
				return err
			}

			settings, err := setting.GetAll(cmd.Context(), gdb)
			if err != nil {
				return err
			}

			for _, s := range settings {
				if _, err = fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", s.Name, s.Value); err != nil {
					return err
				}
			}

			return nil
		},
	}

	settingSetCmd = &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Store a setting",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, err := openSettingsDB()
			if err != nil {
				return err
			}

			return setting.Set(cmd.Context(), gdb, args[0], []byte(args[1]))
		},
	}

	settingDeleteCmd = &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a stored setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, err := openSettingsDB()
			if err != nil {
				return err
			}

			return setting.DeleteByName(cmd.Context(), gdb, args[0])
		},
	}
)

func openSettingsDB() (*gorm.DB, error) {
	if cfg.DB.GormEngine == config.EngineMemory {
		return nil, errors.New("the memory engine has no settings table")
	}

	return db.Open(&cfg)
}
