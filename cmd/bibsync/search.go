package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var searchLimit int

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", DefaultListLimit, "Maximum results to return")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the Zotero library",
	Long: `Search titles, creators and years of the Zotero library.

For an offline search of the synced bibliography use 'bibsync find'.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]
	client := mustNewZoteroClient(mustFindWorkspace())

	items, err := client.Items(cmd.Context(), query, searchLimit)
	if err != nil {
		exitWithZoteroError(err, "searching")
	}

	summaries := summarizeItems(items)
	if jsonOutput {
		outputJSON(summaries)
		return nil
	}

	fmt.Printf("Results for %q: %d items\n\n", query, len(summaries))
	for i, s := range summaries {
		printItemSummary(i+1, s, false, true)
	}
	return nil
}
