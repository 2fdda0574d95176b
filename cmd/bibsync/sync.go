package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sylvarum/bibsync/internal/config"
	"github.com/sylvarum/bibsync/internal/git"
	bibsync "github.com/sylvarum/bibsync/internal/sync"
	"github.com/sylvarum/bibsync/internal/zotero"
)

var (
	syncDryRun     bool
	syncExportOnly bool
)

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Export and validate without committing")
	syncCmd.Flags().BoolVar(&syncExportOnly, "export-only", false, "Export to the file only, skip validation and commit")
	syncCmd.MarkFlagsMutuallyExclusive("dry-run", "export-only")
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Export Zotero to refs/bibliography.bib, validate and publish",
	Long: `Export every top-level item of the Zotero group as BibTeX into
refs/bibliography.bib, validate the file and commit and push it.

Nothing is committed if validation fails. The push goes to the remote and
branch from the global config (default origin/main).

Exit codes:
  0  success, including "nothing to commit"
  1  validation failed
  2  configuration or credentials error
  3  Zotero error
  4  exported file is not well-formed BibTeX
  5  git error`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	mode := bibsync.Full
	switch {
	case syncDryRun:
		mode = bibsync.DryRun
	case syncExportOnly:
		mode = bibsync.ExportOnly
	}

	root := mustFindWorkspace()
	cfg := mustLoadGlobalConfig()
	client := mustNewZoteroClient(root)
	bibPath := config.BibPath(root)

	orch := &bibsync.Orchestrator{
		Source:  client,
		BibPath: bibPath,
		Logger:  logger,
	}
	if !jsonOutput {
		orch.Progress = func(msg string) { fmt.Println(msg) }
	}

	var repo *git.Repo
	if mode == bibsync.Full {
		var err error
		repo, err = git.Open(root, cfg.Remote, cfg.Branch)
		if err != nil {
			exitWithError(ExitConfigError, "%s is not a git repository; use --dry-run or --export-only", root)
		}
		orch.Publisher = repo
	}

	outcome, err := orch.Run(cmd.Context(), mode)
	if err != nil {
		exitWithSyncError(err)
	}

	if jsonOutput {
		outputJSON(outcome)
	} else {
		var head string
		if outcome.Published {
			if head, err = repo.HeadSHA(cmd.Context()); err != nil {
				logger.Debug().Err(err).Msg("reading HEAD")
			}
		}
		printOutcome(outcome, bibPath, cfg, head)
	}

	if outcome.Failed() {
		os.Exit(ExitError)
	}
	return nil
}

// printOutcome reports a finished run. head is the published commit, if any.
func printOutcome(o *bibsync.Outcome, bibPath string, cfg *config.GlobalConfig, head string) {
	fmt.Printf("Wrote %d entries to %s", o.Records, bibPath)
	if o.Skipped > 0 {
		fmt.Printf(" (%d items skipped, see log)", o.Skipped)
	}
	fmt.Println()

	if !o.Validated {
		return
	}
	if o.Failed() {
		printIssues(o.Issues)
		fmt.Println("Validation failed, commit withheld.")
		return
	}
	fmt.Printf("BIB validation OK (%d entries).\n", o.Entries)

	switch {
	case o.Mode == bibsync.DryRun:
		fmt.Println("Dry run, skipping commit.")
	case o.UpToDate:
		fmt.Println("No changes, bibliography is up to date.")
	case o.Published && o.Revision == "":
		fmt.Printf("No changes, pushed pending commit %s to %s/%s.\n", head, cfg.Remote, cfg.Branch)
	case o.Published:
		fmt.Printf("Committed %s %q and pushed to %s/%s.\n", head, o.Revision, cfg.Remote, cfg.Branch)
	}
}

// exitWithSyncError maps a fatal sync error to its exit code and exits.
func exitWithSyncError(err error) {
	switch {
	case errors.Is(err, context.Canceled):
		exitWithError(ExitError, "sync interrupted: %v", err)
	case errors.Is(err, bibsync.ErrFetch):
		if zotero.IsAuthError(err) {
			exitWithError(ExitConfigError, "%v\n\nCheck the apiKey in %s.", err, config.CredentialsFile)
		}
		if zotero.IsRateLimited(err) {
			exitWithError(ExitRemoteError, "%v\n\nZotero is throttling requests; wait a few minutes and rerun sync.", err)
		}
		exitWithError(ExitRemoteError, "%v", err)
	case errors.Is(err, bibsync.ErrParse):
		exitWithError(ExitExportError, "%v", err)
	case errors.Is(err, bibsync.ErrPublish):
		exitWithError(ExitPublishError, "%v\n\nThe exported file was kept; commit it manually or rerun sync.", err)
	default:
		exitWithError(ExitError, "%v", err)
	}
}
