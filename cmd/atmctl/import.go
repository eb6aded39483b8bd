package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/cashops/atmctl/internal/cli"
	"github.com/cashops/atmctl/internal/csvio"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import transactions from a CSV file",
		Long: `Upload a CSV batch of transactions to the backend.

The file is checked locally first: required columns are ` + fmt.Sprint(csvio.RequiredColumns) + `.
Rows the backend rejects are reported individually; a partial import is
not an error.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().Int("section", 0, "tag imported rows with this section id")
	cmd.Flags().Bool("skip-preflight", false, "upload without local validation")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]

	file, err := os.Open(path) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	if skip, _ := cmd.Flags().GetBool("skip-preflight"); !skip {
		preflight, checkErr := csvio.Check(file)
		if checkErr != nil {
			return checkErr
		}
		for _, line := range preflightReport(preflight) {
			fmt.Println(line)
		}

		if _, seekErr := file.Seek(0, 0); seekErr != nil {
			return fmt.Errorf("failed to rewind %s: %w", path, seekErr)
		}
	}

	info, err := file.Stat()
	if err != nil {
		return err
	}

	bar := progressbar.DefaultBytes(info.Size(), "uploading")
	reader := progressbar.NewReader(file, bar)

	client, err := newClient()
	if err != nil {
		return err
	}

	sectionID, _ := cmd.Flags().GetInt("section")
	result, err := client.ImportCSV(ctx, filepath.Base(path), &reader, sectionID)
	if err != nil {
		return err
	}
	_ = bar.Finish()
	fmt.Println()

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d of %d rows", result.ImportedCount, result.TotalRows)))
	for _, rowErr := range result.Errors {
		fmt.Println(cli.FormatWarning(rowErr))
	}
	return nil
}

// preflightReport renders the local validation outcome: one warning per
// malformed row, then the row counts.
func preflightReport(p *csvio.Preflight) []string {
	lines := make([]string, 0, len(p.RowErrors)+1)
	for _, rowErr := range p.RowErrors {
		lines = append(lines, cli.FormatWarning(rowErr))
	}
	lines = append(lines, cli.FormatInfo(fmt.Sprintf("%d data rows, %d with problems",
		p.DataRows, len(p.RowErrors))))
	return lines
}
