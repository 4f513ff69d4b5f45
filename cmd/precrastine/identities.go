package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dukerupert/precrastine/internal/logging"
	"github.com/dukerupert/precrastine/internal/store"
)

var identitiesCmd = &cobra.Command{
	Use:   "identities",
	Short: "List registered identities",
	Long: `List every registered identity with its id, email and name, marking the
one currently signed in. Passwords are never printed.`,
	Args: cobra.NoArgs,
	RunE: runIdentities,
}

func init() {
	rootCmd.AddCommand(identitiesCmd)
}

func runIdentities(cmd *cobra.Command, args []string) error {
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

	ids, err := store.NewIdentityStore(kv, logging.Component(logger, "identities")).List()
	if err != nil {
		return err
	}

	current := ""
	if cur := sess.Current(); cur != nil {
		current = cur.ID
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tEMAIL\tNAME\tCREATED")
	for _, id := range ids {
		mark := ""
		if id.ID == current {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", mark, id.ID, id.Email, id.Name, id.CreatedAt.Format("2006-01-02"))
	}
	return tw.Flush()
}
