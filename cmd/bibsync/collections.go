package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(collectionsCmd)
}

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List collections of the Zotero library",
	Args:  cobra.NoArgs,
	RunE:  runCollections,
}

// CollectionSummary is the JSON form of a collection.
type CollectionSummary struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	NumItems int    `json:"num_items"`
}

func runCollections(cmd *cobra.Command, args []string) error {
	client := mustNewZoteroClient(mustFindWorkspace())

	collections, err := client.ListCollections(cmd.Context())
	if err != nil {
		exitWithZoteroError(err, "listing collections")
	}

	summaries := make([]CollectionSummary, len(collections))
	for i, c := range collections {
		summaries[i] = CollectionSummary{Key: c.Key, Name: c.Data.Name, NumItems: c.Meta.NumItems}
	}

	if jsonOutput {
		outputJSON(summaries)
		return nil
	}

	fmt.Printf("Collections (%d):\n\n", len(summaries))
	for _, s := range summaries {
		fmt.Printf("  [%s] %s (%d items)\n", s.Key, s.Name, s.NumItems)
	}
	return nil
}
