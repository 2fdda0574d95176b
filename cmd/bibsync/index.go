package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sylvarum/bibsync/internal/bibtex"
	"github.com/sylvarum/bibsync/internal/clipboard"
	"github.com/sylvarum/bibsync/internal/config"
	"github.com/sylvarum/bibsync/internal/storage"
)

const missingBibMessage = "%s not found\n\nRun 'bibsync sync --export-only' first."

func init() {
	rootCmd.AddCommand(indexCmd)
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the local search index from the bibliography",
	Long: `Rebuild the SQLite search index (.bibsync/index.db) from
refs/bibliography.bib. 'bibsync find' rebuilds it automatically when the
bibliography has changed.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

// IndexResult is the response for the index command.
type IndexResult struct {
	Status  string `json:"status"`
	Entries int    `json:"entries"`
}

func runIndex(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	db := mustOpenIndex(root)
	defer db.Close()

	count := mustRebuildIndex(db, config.BibPath(root))

	if jsonOutput {
		outputJSON(IndexResult{Status: "rebuilt", Entries: count})
	} else {
		fmt.Printf("Indexed %d entries\n", count)
	}
	return nil
}

// mustRebuildIndex rebuilds the index from the .bib file, exits on error.
func mustRebuildIndex(db *storage.DB, bibPath string) int {
	count, err := db.RebuildFromFile(bibPath)
	switch {
	case err == nil:
		return count
	case errors.Is(err, os.ErrNotExist):
		exitWithError(ExitConfigError, missingBibMessage, bibPath)
	case errors.Is(err, bibtex.ErrMalformed):
		exitWithError(ExitParseError, "rebuilding index: %v", err)
	default:
		exitWithError(ExitError, "rebuilding index: %v", err)
	}
	return 0
}

var (
	findLimit  int
	findBibTeX bool
	findCopy   bool
)

func init() {
	findCmd.Flags().IntVarP(&findLimit, "limit", "n", DefaultListLimit, "Maximum results to return")
	findCmd.Flags().BoolVar(&findBibTeX, "bibtex", false, "Print matching entries as BibTeX")
	findCmd.Flags().BoolVar(&findCopy, "copy", false, "Copy matching entries as BibTeX to the clipboard")
	rootCmd.AddCommand(findCmd)
}

var findCmd = &cobra.Command{
	Use:   "find <query>",
	Short: "Search the synced bibliography offline",
	Long: `Search the synced bibliography through the local index.

Query Syntax:
  Plain text     - Searches keys, titles, authors, venues and years
  author:name    - Search author names only (prefix match)
  title:text     - Search titles only

Examples:
  bibsync find "forest ecology"
  bibsync find "author:Kowal"
  bibsync find --bibtex "title:mycorrhiza"
  bibsync find --copy "author:Kowal"`,
	Args: cobra.ExactArgs(1),
	RunE: runFind,
}

func runFind(cmd *cobra.Command, args []string) error {
	root := mustFindWorkspace()
	bibPath := config.BibPath(root)
	db := mustOpenIndex(root)
	defer db.Close()

	stale, err := db.IsStale(bibPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			exitWithError(ExitConfigError, missingBibMessage, bibPath)
		}
		exitWithError(ExitError, "checking index: %v", err)
	}
	if stale {
		logger.Info().Str("path", bibPath).Msg("bibliography changed, rebuilding index")
		mustRebuildIndex(db, bibPath)
	}

	query := args[0]
	var records []storage.Record
	switch {
	case strings.HasPrefix(query, "author:"):
		records, err = db.SearchField("author", strings.TrimPrefix(query, "author:"), findLimit)
	case strings.HasPrefix(query, "title:"):
		records, err = db.SearchField("title", strings.TrimPrefix(query, "title:"), findLimit)
	default:
		records, err = db.Search(query, findLimit)
	}
	if err != nil {
		exitWithError(ExitError, "searching: %v", err)
	}

	// Empty result is not an error
	if records == nil {
		records = []storage.Record{}
	}

	if findCopy {
		copyEntries(bibPath, records)
	}
	if findBibTeX {
		fmt.Print(formatEntries(bibPath, records))
		return nil
	}

	if jsonOutput {
		outputJSON(records)
		return nil
	}
	if len(records) == 0 {
		fmt.Println("No entries found")
		return nil
	}
	fmt.Printf("Found %d entries:\n\n", len(records))
	for i, r := range records {
		printRecordSummary(i+1, r)
	}
	return nil
}

// copyEntries copies the BibTeX of records to the clipboard. A missing
// clipboard tool is a warning, the search results are still printed.
func copyEntries(bibPath string, records []storage.Record) {
	if len(records) == 0 {
		return
	}
	if err := clipboard.Copy(formatEntries(bibPath, records)); err != nil {
		if errors.Is(err, clipboard.ErrClipboardUnavailable) {
			warn("no clipboard tool found (install wl-copy, xclip or xsel)")
			return
		}
		warn("copying to clipboard: %v", err)
		return
	}
	if !jsonOutput {
		fmt.Fprintf(os.Stderr, "Copied %d entries to clipboard\n", len(records))
	}
}

// formatEntries renders the source entries of records from the .bib file in
// result order.
func formatEntries(bibPath string, records []storage.Record) string {
	entries, err := bibtex.ParseFile(bibPath)
	if err != nil {
		exitWithError(ExitParseError, "reading %s: %v", bibPath, err)
	}
	byKey := make(map[string]*bibtex.Entry, len(entries))
	for _, e := range entries {
		if _, seen := byKey[e.Key]; !seen {
			byKey[e.Key] = e
		}
	}

	matched := make([]*bibtex.Entry, 0, len(records))
	for _, r := range records {
		if e, ok := byKey[r.Key]; ok {
			matched = append(matched, e)
		}
	}
	return bibtex.FormatList(matched)
}
