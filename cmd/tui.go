package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"dealercrm/internal/tui"
)

var tuiLogFile string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the interactive TUI (same as default)",
	Long: `Start the Terminal User Interface for importing and exporting customers,
backing up and restoring storage, and checking storage usage.

Log output goes to --tui-log while the TUI owns the terminal.

Note: This is the same as running the program without any commands.`,
	RunE: runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&tuiLogFile, "tui-log", "./data/dealercrm-tui.log", "Log file used while the TUI is running")
}

func runTUI(cmd *cobra.Command, args []string) error {
	if cfg.LogPath == "" {
		if err := cfg.RedirectLog(tuiLogFile); err != nil {
			return err
		}
	}

	svc, err := openServices(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.close()

	model := tui.NewModel(tui.Services{
		Backup:    svc.backup,
		Customers: svc.customers,
		Logger:    logger,
		BackupDir: "./backups",
	})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
