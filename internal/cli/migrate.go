package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studyplatform/xpd/internal/daemon"
	"github.com/studyplatform/xpd/internal/infra/postgres"
)

func init() {
	migrateCmd.Flags().StringVar(&migrateDSN, "dsn", "", "Postgres DSN (overrides config)")
	rootCmd.AddCommand(migrateCmd)
}

var migrateDSN string

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back the postgres schema",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down"},
	RunE:      runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	dsn := migrateDSN
	if dsn == "" {
		cfg, err := daemon.LoadConfig()
		if err != nil {
			return err
		}
		if cfg.Store.Driver != daemon.DriverPostgres {
			return fmt.Errorf("store driver is %q; migrations apply to postgres only", cfg.Store.Driver)
		}
		dsn = cfg.Store.DSN
	}

	db, err := postgres.Open(dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if len(args) == 1 && args[0] == "down" {
		if err := db.MigrateDown(); err != nil {
			return err
		}
		fmt.Println("Schema rolled back.")
		return nil
	}
	if err := db.Migrate(); err != nil {
		return err
	}
	fmt.Println("Schema up to date.")
	return nil
}
