package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/precrastine/internal/database"
	"github.com/dukerupert/precrastine/internal/logging"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database schema version and usage",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	version, err := database.SchemaVersion(cmd.Context(), db)
	if err != nil {
		return err
	}
	keys, last, err := kv.Usage(cmd.Context())
	if err != nil {
		return err
	}

	lastWrite := "never"
	if !last.IsZero() {
		lastWrite = last.Local().Format(time.DateTime)
	}
	signedIn := "nobody"
	if cur := sess.Current(); cur != nil {
		signedIn = cur.Email
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "database\t%s\n", cfg.DBPath)
	fmt.Fprintf(tw, "schema version\t%d\n", version)
	fmt.Fprintf(tw, "keys\t%d\n", keys)
	fmt.Fprintf(tw, "last write\t%s\n", lastWrite)
	fmt.Fprintf(tw, "signed in\t%s\n", signedIn)
	return tw.Flush()
}
