package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sylvarum/bibsync/internal/bibtex"
	"github.com/sylvarum/bibsync/internal/validate"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Check a .bib file for data-quality problems",
	Long: `Check a .bib file for duplicate, empty or non-ASCII citation keys,
missing required fields and malformed years.

Exit codes:
  0  the file is valid
  1  validation found problems
  2  usage error or unreadable file
  3  the file is not well-formed BibTeX`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

// ValidateResult is the JSON response for the validate command.
type ValidateResult struct {
	Status  string           `json:"status"`
	Entries int              `json:"entries"`
	Issues  []validate.Issue `json:"issues"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := args[0]

	report, err := validate.ValidateFile(path)
	if err != nil {
		code := ExitUsage
		if errors.Is(err, bibtex.ErrMalformed) {
			code = ExitParseError
		}
		if jsonOutput {
			outputJSON(ErrorResponse{Error: err.Error()})
		} else {
			fmt.Printf("BIB validation ERROR: %v\n", err)
		}
		os.Exit(code)
	}

	if jsonOutput {
		status := "ok"
		if !report.Passed() {
			status = "failed"
		}
		outputJSON(ValidateResult{Status: status, Entries: report.Entries, Issues: report.Issues})
	} else if report.Passed() {
		fmt.Printf("BIB validation OK (%d entries).\n", report.Entries)
	} else {
		printIssues(report.Issues)
	}

	if !report.Passed() {
		os.Exit(ExitError)
	}
	return nil
}
