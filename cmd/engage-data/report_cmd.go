package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/communityops/engage/modules/engagement/csvimport"
)

type reportOptions struct {
	inputPath    string
	outputPath   string
	explicitType string
	format       string
	backup       string
}

func newReportCmd() *cobra.Command {
	var opts reportOptions

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a validation error report for a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts)
		},
	}

	cmd.Flags().StringVar(&opts.inputPath, "input", "", "Path to CSV file")
	cmd.Flags().StringVar(&opts.outputPath, "output", "", "Report file path (required)")
	cmd.Flags().StringVar(&opts.explicitType, "type", "", "Override import type detection")
	cmd.Flags().StringVar(&opts.format, "format", "", "Report format: csv|xlsx (default from --output extension)")
	cmd.Flags().StringVar(&opts.backup, "backup", "", "Report errors of a past import by backup UUID instead of a CSV file")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func reportFormat(opts reportOptions) (string, error) {
	format := strings.TrimSpace(opts.format)
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(opts.outputPath), ".")
	}
	switch format {
	case "csv", "xlsx":
		return format, nil
	}
	return "", fmt.Errorf("invalid --format: %s (want csv or xlsx)", format)
}

func runReport(opts reportOptions) error {
	if (strings.TrimSpace(opts.inputPath) == "") == (strings.TrimSpace(opts.backup) == "") {
		return withCode(exitUsage, fmt.Errorf("exactly one of --input or --backup is required"))
	}
	format, err := reportFormat(opts)
	if err != nil {
		return withCode(exitUsage, err)
	}

	out, err := os.Create(filepath.Clean(opts.outputPath))
	if err != nil {
		return withCode(exitStateWrite, fmt.Errorf("create %s: %w", opts.outputPath, err))
	}
	defer func() { _ = out.Close() }()

	if opts.backup != "" {
		if format != "csv" {
			return withCode(exitUsage, fmt.Errorf("--backup reports support csv only"))
		}
		return runImportErrorsReport(opts, out)
	}

	explicitType, err := parseImportType(opts.explicitType)
	if err != nil {
		return withCode(exitUsage, err)
	}
	text, err := readInputFile(opts.inputPath)
	if err != nil {
		return err
	}

	result, err := newService().Preview(text, explicitType)
	if err != nil {
		return withCode(exitValidation, err)
	}

	switch format {
	case "csv":
		err = csvimport.WriteErrorReportCSV(out, result)
	case "xlsx":
		err = csvimport.WriteErrorReportXLSX(out, result)
	}
	if err != nil {
		return withCode(exitStateWrite, err)
	}

	return writeJSONLine(struct {
		Status    string `json:"status"`
		Output    string `json:"output"`
		Format    string `json:"format"`
		ErrorRows int    `json:"error_rows"`
	}{"written", opts.outputPath, format, result.ErrorRows})
}

func runImportErrorsReport(opts reportOptions, out *os.File) error {
	id, err := uuid.Parse(strings.TrimSpace(opts.backup))
	if err != nil {
		return withCode(exitUsage, fmt.Errorf("invalid --backup: %w", err))
	}
	summary, err := newService().Summary(id)
	if err != nil {
		return withCode(exitState, err)
	}
	if err := csvimport.WriteImportErrorsCSV(out, summary); err != nil {
		return withCode(exitStateWrite, err)
	}
	return writeJSONLine(struct {
		Status string `json:"status"`
		Output string `json:"output"`
		Errors int    `json:"errors"`
	}{"written", opts.outputPath, len(summary.Errors)})
}
