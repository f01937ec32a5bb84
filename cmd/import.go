package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"dealercrm/internal/charset"
	"dealercrm/internal/importer"
	"dealercrm/internal/models"
)

var (
	csvFile        string
	importEncoding string
	usersFile      string
	commitImport   bool
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import customers from a CSV or XLSX file",
	Long: `Parse a customer list, link sales reps, and flag likely duplicates.
Without --commit the import is a dry run and nothing is written.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&csvFile, "csv", "c", "", "CSV or XLSX file to import")
	importCmd.Flags().StringVarP(&importEncoding, "encoding", "e", "auto", "Input encoding: auto, utf-8 or shift_jis")
	importCmd.Flags().StringVarP(&usersFile, "users", "u", "", "CSV of sales reps (id,name) to link against instead of stored users")
	importCmd.Flags().BoolVar(&commitImport, "commit", false, "Append the imported customers to storage")
}

func runImport(cmd *cobra.Command, args []string) error {
	if csvFile == "" && len(args) == 1 {
		csvFile = args[0]
	}
	if csvFile == "" {
		return fmt.Errorf("a CSV file is required (--csv or positional argument)")
	}
	enc, err := charset.ParseEncoding(importEncoding)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer svc.close()

	existing, err := svc.customers.Customers(ctx)
	if err != nil {
		return err
	}
	users, err := loadUsers(cmd, svc)
	if err != nil {
		return err
	}
	opts := importer.Options{KnownUsers: users, Existing: existing}

	var result importer.Result
	if strings.EqualFold(filepath.Ext(csvFile), ".xlsx") {
		f, err := os.Open(csvFile)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", csvFile, err)
		}
		defer f.Close()
		if result, err = importer.ImportXLSX(f, opts); err != nil {
			return err
		}
	} else {
		data, err := os.ReadFile(csvFile)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", csvFile, err)
		}
		result = importer.ImportBytes(data, enc, opts)
	}

	logger.Infof("Parsed %d customer records from %s", len(result.Customers), csvFile)
	for _, msg := range result.Errors {
		logger.Warn(msg)
	}
	for _, w := range result.DuplicateWarnings {
		logDuplicate(w)
	}

	if len(result.Customers) > 0 {
		c := result.Customers[0]
		logger.Infof("Sample record: name=%s region=%s status=%s salesRep=%s",
			c.Name, c.Region, c.Status, c.AssignedSalesRepName)
	}

	if !commitImport {
		logger.Info("Dry run: re-run with --commit to save these customers")
		return nil
	}
	if len(result.Customers) == 0 {
		logger.Warn("Nothing to import")
		return nil
	}
	if err := svc.customers.Append(ctx, result.Customers); err != nil {
		return fmt.Errorf("failed to save customers: %w", err)
	}
	logger.Infof("Successfully imported %d customers (%d already stored)", len(result.Customers), len(existing))
	return nil
}

func loadUsers(cmd *cobra.Command, svc *services) ([]models.User, error) {
	if usersFile == "" {
		return svc.customers.Users(cmd.Context())
	}
	f, err := os.Open(usersFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open users file: %w", err)
	}
	defer f.Close()
	return importer.LoadUsers(f)
}

func logDuplicate(w models.DuplicateWarning) {
	logger.WithFields(logrus.Fields{
		"row":        w.Row,
		"prefecture": w.Prefecture,
		"existingId": w.ExistingCustomerID,
	}).Warnf("Possible duplicate: %s matches existing customer %s", w.Name, w.ExistingCustomerName)
}
