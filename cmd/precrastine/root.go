package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dukerupert/precrastine/internal/config"
	"github.com/dukerupert/precrastine/internal/database"
	"github.com/dukerupert/precrastine/internal/logging"
	"github.com/dukerupert/precrastine/internal/session"
	"github.com/dukerupert/precrastine/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "precrastine",
	Short: "Local task and life-balance tracker",
	Long: `Precrastine keeps a task list and a life-area wheel per identity in a
local SQLite database and serves them over a JSON API on the loopback
interface.

Settings come from PRECRASTINE_* environment variables; flags override them.

Examples:
  precrastine serve --port 8080
  precrastine seed-demo
  precrastine export backup.snap
  precrastine import backup.snap
  precrastine identities
  precrastine status`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "path to the SQLite database (PRECRASTINE_DB_PATH)")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error (PRECRASTINE_LOG_LEVEL)")
}

// loadConfig reads the environment and applies any flags the user set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath, _ = flags.GetString("db")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Lookup("host") != nil && flags.Changed("host") {
		cfg.Host, _ = flags.GetString("host")
	}
	if flags.Lookup("port") != nil && flags.Changed("port") {
		cfg.Port, _ = flags.GetString("port")
	}
	if flags.Lookup("login-rate-limit") != nil && flags.Changed("login-rate-limit") {
		cfg.LoginRateLimit, _ = flags.GetInt("login-rate-limit")
	}
	if flags.Lookup("trust-proxy") != nil && flags.Changed("trust-proxy") {
		cfg.TrustProxy, _ = flags.GetBool("trust-proxy")
	}
	if flags.Lookup("passphrase") != nil && flags.Changed("passphrase") {
		cfg.SnapshotPassphrase, _ = flags.GetString("passphrase")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
		return config.Config{}, fmt.Errorf("config: unknown log level %q", cfg.LogLevel)
	}
	return cfg, nil
}

// openStore opens the database and loads the persisted session from it.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sql.DB, *store.SQLiteKV, *session.Session, error) {
	db, err := database.Open(ctx, cfg.DBPath, logging.Component(logger, "database"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}
	kv := store.NewSQLiteKV(db)

	sess := session.New(kv, logging.Component(logger, "session"))
	if err := sess.Load(); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("load session: %w", err)
	}
	return db, kv, sess, nil
}
