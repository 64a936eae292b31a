// Package cli implements the wikictl maintenance commands.
package cli

import (
	"fmt"
	"fyrewiki/internal/config"
	"fyrewiki/internal/data"
	"fyrewiki/internal/logger"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

var (
	dsnFlag    string
	driverFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:          "wikictl",
	Short:        "Maintenance tool for the wiki",
	Long:         "wikictl runs migrations, manages users and backups, and renders pages from the command line. It reads the same config.yml and WIKI_ environment variables as the server.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&dsnFlag, "dsn", "", "Database DSN (default: db.dsn from config)")
	RootCmd.PersistentFlags().StringVar(&driverFlag, "driver", "", "Database driver: sqlite3 or mysql (default: db.driver from config)")
}

// loadConfig reads the shared configuration and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dsnFlag != "" {
		cfg.DB.DSN = dsnFlag
	}
	if driverFlag != "" {
		cfg.DB.Driver = driverFlag
	}
	return cfg, nil
}

// openDB connects to the configured database and brings its schema up to date.
func openDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := data.NewDB(cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := data.ApplyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// newLogger logs to stderr so command output on stdout stays clean.
func newLogger(cfg *config.Config) logger.Logger {
	return logger.New(cfg.Log, os.Stderr)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
