package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"dealercrm/internal/remote"
)

var (
	outputDir  string
	backupKey  string
	toRemote   bool
	skipIfSame bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot CRM storage to a file or the backup server",
	Long: `Export every whitelisted storage key (or a single --key) as a versioned
JSON envelope. The envelope is written to --output, or uploaded to the
backup server with --remote.`,
	RunE: runBackup,
}

func init() {
	backupCmd.Flags().StringVarP(&outputDir, "output", "o", "./backups", "Output directory for backup files")
	backupCmd.Flags().StringVarP(&backupKey, "key", "k", "", "Single storage key to back up (if empty, backs up all keys)")
	backupCmd.Flags().BoolVar(&toRemote, "remote", false, "Upload the snapshot to the backup server instead of a file")
	backupCmd.Flags().BoolVar(&skipIfSame, "skip-if-same", true, "Let the server skip the upload when nothing changed")
}

func runBackup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer svc.close()

	if toRemote {
		if backupKey != "" {
			return fmt.Errorf("--key cannot be combined with --remote")
		}
		env, err := svc.backup.ExportAll(ctx)
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		logger.Infof("Uploading snapshot of %d keys to %s...", len(env.Data), remoteBaseURL())
		resp, err := newRemoteClient().Save(ctx, env, skipIfSame)
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		if resp.Skipped {
			logger.Infof("Backup skipped: server already holds data hash %s", resp.DataHash)
			return nil
		}
		logger.Infof("Backup completed successfully: %s (%d bytes, hash %s)", resp.BackupID, resp.SizeBytes, resp.DataHash)
		return nil
	}

	if backupKey != "" {
		logger.Infof("Starting backup of key '%s'...", backupKey)
	} else {
		logger.Info("Starting backup of all storage keys...")
	}
	path, err := svc.backup.BackupToFile(ctx, outputDir, backupKey)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	if path == "" {
		logger.Warnf("Key '%s' holds no data; nothing written", backupKey)
		return nil
	}
	logger.Infof("Backup completed successfully: %s", path)
	return nil
}

func remoteBaseURL() string {
	if remoteURL != "" {
		return remoteURL
	}
	return cfg.RemoteURL
}

func newRemoteClient() *remote.Client {
	return remote.NewClient(remoteBaseURL(), nil)
}
