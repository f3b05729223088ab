package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/crew-booking/internal/config"
	"github.com/iliyamo/crew-booking/internal/database"
)

// MigrateCmd applies pending schema migrations to the MySQL database.
func MigrateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Cfg.StorageDriver != config.StorageMySQL {
				return fmt.Errorf("migrate needs STORAGE_DRIVER=%s, got %q", config.StorageMySQL, app.Cfg.StorageDriver)
			}
			db, err := database.Open(app.Ctx, app.Cfg.DSN())
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			ran, err := database.RunMigrations(app.Ctx, db)
			if err != nil {
				return err
			}
			if len(ran) == 0 {
				app.Logger.Info("Database schema is up to date")
				return nil
			}
			app.Logger.Info("Migrations applied", zap.Strings("files", ran))
			return nil
		},
	}
}
