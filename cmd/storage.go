package cmd

import (
	stdcsv "encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/jszwec/csvutil"
	"github.com/spf13/cobra"
)

var inventoryCSV bool

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Inspect or clear CRM storage",
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show estimated storage usage against the quota",
	RunE:  runUsage,
}

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "List storage keys with their size and item counts",
	RunE:  runInventory,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every CRM storage key",
	RunE:  runClear,
}

func init() {
	inventoryCmd.Flags().BoolVar(&inventoryCSV, "csv", false, "Write the inventory as CSV to stdout")
	clearCmd.Flags().BoolVar(&skipConfirmation, "yes", false, "Skip confirmation prompts")

	storageCmd.AddCommand(usageCmd)
	storageCmd.AddCommand(inventoryCmd)
	storageCmd.AddCommand(clearCmd)
}

func runUsage(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer svc.close()

	usage, err := svc.backup.UsageEstimate(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Used: %d bytes of %d (%.1f%%)\n", usage.Used, usage.Total, usage.Percentage)
	return nil
}

func runInventory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer svc.close()

	infos, err := svc.backup.Inventory(ctx)
	if err != nil {
		return err
	}

	if inventoryCSV {
		w := stdcsv.NewWriter(os.Stdout)
		if err := csvutil.NewEncoder(w).Encode(infos); err != nil {
			return fmt.Errorf("failed to write inventory: %w", err)
		}
		w.Flush()
		return w.Error()
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Key", "Name", "Size", "Items")
	for _, info := range infos {
		size, items := "-", "-"
		if info.Exists {
			size = strconv.Itoa(info.SizeBytes)
		}
		if info.ItemCount != nil {
			items = strconv.Itoa(*info.ItemCount)
		}
		t.Row(info.Key, info.DisplayName, size, items)
	}
	fmt.Println(t.Render())
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	if !skipConfirmation {
		fmt.Printf("About to remove every CRM key from %s storage.\n", cfg.Storage.Backend)
		if !confirmAction("Do you want to continue?") {
			logger.Info("Clear cancelled")
			return nil
		}
	}

	ctx := cmd.Context()
	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer svc.close()

	return svc.backup.ClearAll(ctx)
}
