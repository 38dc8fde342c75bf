package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/communityops/engage/modules/engagement/csvimport"
)

type importOptions struct {
	inputPath    string
	explicitType string
	apply        bool
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a CSV file into the engagement collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.inputPath, "input", "", "Path to CSV file (required)")
	cmd.Flags().StringVar(&opts.explicitType, "type", "", "Override import type detection: person|activity|learning|homevisit")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Apply changes to state (default is dry-run)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func parseImportType(v string) (csvimport.ImportType, error) {
	switch strings.TrimSpace(v) {
	case "":
		return "", nil
	case string(csvimport.TypePerson):
		return csvimport.TypePerson, nil
	case string(csvimport.TypeActivity):
		return csvimport.TypeActivity, nil
	case string(csvimport.TypeLearning):
		return csvimport.TypeLearning, nil
	case string(csvimport.TypeHomeVisit):
		return csvimport.TypeHomeVisit, nil
	}
	return "", fmt.Errorf("invalid --type: %s", v)
}

func readInputFile(path string) (string, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", withCode(exitUsage, fmt.Errorf("read %s: %w", path, err))
	}
	return string(b), nil
}

func runImport(cmd *cobra.Command, opts importOptions) error {
	explicitType, err := parseImportType(opts.explicitType)
	if err != nil {
		return withCode(exitUsage, err)
	}
	text, err := readInputFile(opts.inputPath)
	if err != nil {
		return err
	}

	svc := newService()

	if !opts.apply {
		result, err := svc.Preview(text, explicitType)
		if err != nil {
			return withCode(exitValidation, err)
		}
		return writeJSONLine(previewSummary("dry_run", result))
	}

	summary, result, err := svc.Execute(cmd.Context(), text, explicitType)
	if err != nil {
		if result != nil && len(result.HeaderErrors) > 0 {
			_ = writeJSONLine(previewSummary("rejected", result))
			return withCode(exitValidation, err)
		}
		return withCode(exitStateWrite, err)
	}

	return writeJSONLine(struct {
		Status string                   `json:"status"`
		Result *csvimport.ParseResult   `json:"result"`
		Import *csvimport.ImportSummary `json:"import"`
	}{
		Status: "applied",
		Result: result,
		Import: summary,
	})
}

func previewSummary(status string, result *csvimport.ParseResult) any {
	type rowIssue struct {
		RowNumber int    `json:"row_number"`
		Column    string `json:"column"`
		Severity  string `json:"severity"`
		Message   string `json:"message"`
	}
	issues := make([]rowIssue, 0, len(result.HeaderErrors))
	add := func(e csvimport.ValidationError) {
		issues = append(issues, rowIssue{
			RowNumber: e.RowNumber,
			Column:    e.Column,
			Severity:  string(e.Severity),
			Message:   e.Message,
		})
	}
	for _, e := range result.HeaderErrors {
		add(e)
	}
	for _, r := range result.Rows {
		for _, e := range r.Errors {
			add(e)
		}
	}
	return struct {
		Status       string              `json:"status"`
		ImportType   csvimport.ImportType `json:"import_type"`
		TypeDetected bool                `json:"type_detected"`
		TotalRows    int                 `json:"total_rows"`
		ValidRows    int                 `json:"valid_rows"`
		ErrorRows    int                 `json:"error_rows"`
		Issues       []rowIssue          `json:"issues"`
	}{
		Status:       status,
		ImportType:   result.ImportType,
		TypeDetected: result.TypeDetected,
		TotalRows:    result.TotalRows,
		ValidRows:    result.ValidRows,
		ErrorRows:    result.ErrorRows,
		Issues:       issues,
	}
}
