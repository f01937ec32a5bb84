package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dealercrm/internal/charset"
	"dealercrm/internal/csv"
	"dealercrm/internal/models"
)

var (
	exportOutput   string
	exportEncoding string
	exportFormat   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored customers to CSV or XLSX",
	Long: `Write every stored customer to a file. CSV output is Shift_JIS by
default so it opens cleanly in Japanese Excel; --encoding utf-8 writes a
UTF-8 file with a BOM instead.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (defaults to customers_<timestamp>.<format>)")
	exportCmd.Flags().StringVarP(&exportEncoding, "encoding", "e", "shift_jis", "CSV encoding: shift_jis or utf-8")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Output format: csv or xlsx (auto-detected from --output)")
}

func runExport(cmd *cobra.Command, args []string) error {
	format := exportFormat
	if format == "" {
		format = "csv"
		if strings.EqualFold(filepath.Ext(exportOutput), ".xlsx") {
			format = "xlsx"
		}
	}
	if format != "csv" && format != "xlsx" {
		return fmt.Errorf("invalid format: %s. Use 'csv' or 'xlsx'", format)
	}
	enc, err := charset.ParseEncoding(exportEncoding)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer svc.close()

	customers, err := svc.customers.Customers(ctx)
	if err != nil {
		return err
	}

	output := exportOutput
	if output == "" {
		output = fmt.Sprintf("customers_%s.%s", time.Now().Format("20060102_150405"), format)
	}
	file, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if format == "xlsx" {
		err = csv.WriteXLSX(file, customers)
	} else {
		err = writeEncodedCSV(file, enc, customers)
	}
	if err != nil {
		os.Remove(output)
		return fmt.Errorf("export failed: %w", err)
	}

	logger.Infof("Exported %d customers to %s", len(customers), output)
	return nil
}

func writeEncodedCSV(file *os.File, enc charset.Encoding, customers []models.Customer) error {
	w, err := charset.NewWriter(file, enc)
	if err != nil {
		return err
	}
	if err := csv.WriteCustomers(w, customers); err != nil {
		return err
	}
	return w.Close()
}
