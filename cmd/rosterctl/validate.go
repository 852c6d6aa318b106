package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/roster/internal/core"
)

func validateCmd() *cobra.Command {
	var (
		asJSON  bool
		sheet   string
		workers int
	)

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Dry-run a student import file without touching the database",
		Long: `Validate a .csv or .xlsx student file exactly as the bulk import
endpoint would, and print every row problem.

Exit status is 0 when every row is valid, 2 when some rows are invalid and 1
when the file cannot be read or parsed.

Examples:
  rosterctl validate students.csv
  rosterctl validate enrollment.xlsx --sheet "Fall 2025" --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := readSheet(args[0], sheet)
			if err != nil {
				return err
			}

			importer := core.NewImporter(core.DefaultStudentSchema(), nil, core.WithValidationWorkers(workers))
			outcome, err := importer.ImportSheet(cmd.Context(), parsed, core.ImportRequest{DryRun: true})
			if err != nil {
				return err
			}

			report := outcome.DryRun
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printReport(cmd.OutOrStdout(), report)
			}

			if report.Invalid > 0 {
				return errRowsInvalid
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "print the report as JSON")
	cmd.Flags().StringVar(&sheet, "sheet", "", "worksheet to read from an .xlsx file (default: first)")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel row validators (default: number of CPUs)")

	return cmd
}

// readSheet parses path as CSV or, by extension, as an Excel workbook.
func readSheet(path, sheetName string) (*core.Sheet, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return readWorkbook(path, sheetName)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return core.ParseCSV(f)
}

func readWorkbook(path, sheetName string) (*core.Sheet, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer book.Close()

	if sheetName == "" {
		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheetName = sheets[0]
	}

	rows, err := book.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	return core.ParseRecords(rows)
}

func printReport(w io.Writer, report *core.DryRunReport) {
	fmt.Fprintln(w, report.Message)
	for _, rowErr := range report.Errors {
		for _, fe := range rowErr.Errors {
			fmt.Fprintf(w, "  row %d: %s %q: %s\n", rowErr.Row, fe.Field, fe.Value, fe.Message)
		}
	}
}

