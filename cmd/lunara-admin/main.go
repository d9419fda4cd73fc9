package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lunara/internal/config"
	"lunara/internal/database"
	"lunara/internal/logging"
)

// rootCmd is the admin tool entry point
var rootCmd = &cobra.Command{
	Use:   "lunara-admin",
	Short: "Operator tasks for a Lunara database",
	Long: `Operator tasks for a Lunara database.

The database is selected with the same environment variables as the server:
  DATABASE_TYPE    sqlite, postgres, or mysql (default: sqlite)
  DB_PATH          SQLite database path (default: ./lunara.db)
  DATABASE_URL     PostgreSQL or MySQL connection URL`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd, unlockKidCmd, cleanupCmd, exportFamilyCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// env is what every subcommand needs
type env struct {
	cfg    *config.Config
	db     *database.DB
	logger *zap.SugaredLogger
}

// open loads configuration, builds the logger and connects to the database.
// The caller must call close.
func open() (*env, func(), error) {
	cfg := config.Load()

	base, err := logging.Init(logging.Config{Level: cfg.LogLevel, Dev: true, File: cfg.LogFile})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		_ = base.Sync()
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	closeFn := func() {
		db.Close()
		_ = base.Sync()
	}
	return &env{cfg: cfg, db: db, logger: base.Sugar()}, closeFn, nil
}
