package cmd

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Work with backups held by the backup server",
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the backups kept on the server, newest first",
	RunE:  runRemoteList,
}

func init() {
	remoteCmd.AddCommand(remoteListCmd)
}

func runRemoteList(cmd *cobra.Command, args []string) error {
	backups, err := newRemoteClient().List(cmd.Context())
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		logger.Infof("No backups on %s", remoteBaseURL())
		return nil
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("ID", "Created", "Size", "Hash", "Customers")
	for _, b := range backups {
		customers := "-"
		if b.Metadata.Customers != nil {
			customers = strconv.Itoa(*b.Metadata.Customers)
		}
		t.Row(b.ID, b.CreatedAt.Local().Format("2006-01-02 15:04:05"), strconv.Itoa(b.SizeBytes), b.Hash, customers)
	}
	fmt.Println(t.Render())
	return nil
}
