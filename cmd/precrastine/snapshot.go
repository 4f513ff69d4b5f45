package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/precrastine/internal/logging"
	"github.com/dukerupert/precrastine/internal/snapshot"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write an encrypted snapshot of the database",
	Long: `Write every stored key to an encrypted snapshot file.

The passphrase comes from --passphrase or PRECRASTINE_SNAPSHOT_PASSPHRASE.
The file is created with owner-only permissions.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the database contents with a snapshot",
	Long: `Decrypt a snapshot and replace the contents of the database with it.

Keys that are not in the snapshot are removed. A wrong passphrase or a
damaged file leaves the database untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	for _, cmd := range []*cobra.Command{exportCmd, importCmd} {
		cmd.Flags().String("passphrase", "", "snapshot passphrase (PRECRASTINE_SNAPSHOT_PASSPHRASE)")
		rootCmd.AddCommand(cmd)
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel)

	db, kv, _, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := snapshot.ExportFile(kv, args[0], cfg.SnapshotPassphrase)
	if err != nil {
		return err
	}
	logger.Info("snapshot exported", "path", args[0], "keys", n)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel)

	db, kv, _, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := snapshot.ImportFile(kv, args[0], cfg.SnapshotPassphrase)
	if errors.Is(err, snapshot.ErrDecrypt) {
		return fmt.Errorf("import %s: wrong passphrase or damaged file", args[0])
	}
	if err != nil {
		return err
	}
	logger.Info("snapshot imported", "path", args[0], "keys", n)
	return nil
}
