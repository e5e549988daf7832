package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		// Open applies the schema.
		s, err := openStore(cmd, cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		fmt.Printf("Schema is up to date (%s).\n", s.Dialect())
		return nil
	},
}
