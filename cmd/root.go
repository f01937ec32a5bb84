package cmd

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"dealercrm/internal/backup"
	"dealercrm/internal/config"
	"dealercrm/internal/importer"
	"dealercrm/internal/storage"
)

var (
	envFiles  []string
	remoteURL string
	cfg       *config.Configuration
	logger    *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dealercrm",
	Short: "Customer CSV import/export and backup tool for dealership CRM data",
	Long: `dealercrm imports customer lists from Shift_JIS or UTF-8 CSV files,
exports them back for spreadsheet tools, and snapshots the CRM's local
storage to files or a remote backup server.

Running without a command starts the interactive TUI.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cfg != nil {
			cfg.Unload()
		}
	},
	RunE: runTUI,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", config.DefaultEnvFiles, "Env files to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&remoteURL, "remote-url", "", "Backup server URL (defaults to REMOTE_URL)")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(storageCmd)
	rootCmd.AddCommand(remoteCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tuiCmd)
}

func initConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(envFiles)
	if err != nil {
		return err
	}
	cfg = c
	logger = c.Logger()
	return nil
}

// services bundles what the storage-backed commands share.
type services struct {
	kv        storage.KV
	backup    *backup.Service
	customers *importer.CustomerStore
	close     func() error
}

func openServices(ctx context.Context) (*services, error) {
	kv, closeFn, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Backend, err)
	}
	return &services{
		kv: kv,
		backup: backup.NewService(kv,
			backup.WithQuota(cfg.Storage.QuotaBytes),
			backup.WithLogger(logger),
		),
		customers: importer.NewCustomerStore(kv, importer.WithStoreLogger(logger)),
		close:     closeFn,
	}, nil
}
