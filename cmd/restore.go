package cmd

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"dealercrm/internal/backup"
	"dealercrm/internal/models"
)

var (
	inputFile        string
	remoteBackupID   string
	skipConfirmation bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore CRM storage from a backup",
	Long: `Restore storage keys from a backup file or a backup held by the server.
Only known keys are written; keys from newer versions are reported and
ignored.`,
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input backup file to restore")
	restoreCmd.Flags().StringVar(&remoteBackupID, "remote-id", "", "Backup id on the backup server to restore")
	restoreCmd.Flags().BoolVar(&skipConfirmation, "yes", false, "Skip confirmation prompts")
	restoreCmd.MarkFlagsMutuallyExclusive("input", "remote-id")
	restoreCmd.MarkFlagsOneRequired("input", "remote-id")
}

func runRestore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var env *models.Envelope
	source := inputFile
	if remoteBackupID != "" {
		source = remoteBaseURL() + " (" + remoteBackupID + ")"
		var err error
		if env, err = newRemoteClient().Get(ctx, remoteBackupID); err != nil {
			return fmt.Errorf("failed to fetch backup: %w", err)
		}
	} else {
		if _, err := os.Stat(inputFile); os.IsNotExist(err) {
			return fmt.Errorf("backup file does not exist: %s", inputFile)
		}
		if err := backup.ValidateBackupFile(inputFile); err != nil {
			return fmt.Errorf("backup file validation failed: %w", err)
		}
		f, err := os.Open(inputFile)
		if err != nil {
			return fmt.Errorf("failed to open backup file: %w", err)
		}
		env, err = backup.ReadEnvelope(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("backup file validation failed: %w", err)
		}
	}

	if !skipConfirmation {
		keys := make([]string, 0, len(env.Data))
		for k := range env.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Println("About to restore:")
		fmt.Printf("  Source: %s\n", source)
		fmt.Printf("  Created: %s\n", env.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("  Storage: %s\n", cfg.Storage.Backend)
		fmt.Printf("  Keys: %s\n", strings.Join(keys, ", "))
		fmt.Println("  WARNING: Existing values for these keys will be OVERWRITTEN!")

		if !confirmAction("Do you want to continue?") {
			logger.Info("Restore cancelled")
			return nil
		}
	}

	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer svc.close()

	logger.Infof("Starting restore from %s...", source)
	result, err := svc.backup.Restore(ctx, env)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	logger.Infof("Restore completed successfully! %s", result.Message)
	return nil
}

func confirmAction(message string) bool {
	fmt.Printf("%s (y/N): ", message)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
