package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/formkeeper/formkeeper/internal/core/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadEffectiveConfig(nil)
	if err != nil {
		return err
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if err := db.MigrateUp(database); err != nil {
		return err
	}

	statuses, err := db.MigrationStatuses(database)
	if err != nil {
		return err
	}
	for _, st := range statuses {
		fmt.Printf("applied  %s\n", st.ID)
	}
	return nil
}
