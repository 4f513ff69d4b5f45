package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/precrastine/internal/logging"
	"github.com/dukerupert/precrastine/internal/seed"
	"github.com/dukerupert/precrastine/internal/server"
)

var seedDemoCmd = &cobra.Command{
	Use:   "seed-demo",
	Short: "Register the demo identity with sample tasks",
	Long: `Register ` + seed.DemoEmail + ` (password ` + seed.DemoPassword + `) with the
default life-area wheel and a few sample tasks. Does nothing if the demo
identity already exists.`,
	Args: cobra.NoArgs,
	RunE: runSeedDemo,
}

func init() {
	rootCmd.AddCommand(seedDemoCmd)
}

func runSeedDemo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel)

	db, kv, sess, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := server.New(kv, sess, nil, server.Config{}, logger)
	defer srv.Close()

	created, err := seed.Demo(srv.Controller(), srv.Tasks(), srv.LifeAreas(), time.Now())
	if err != nil {
		return err
	}
	if !created {
		logger.Info("demo identity already exists", "email", seed.DemoEmail)
		return nil
	}
	logger.Info("demo identity created", "email", seed.DemoEmail)
	return nil
}
