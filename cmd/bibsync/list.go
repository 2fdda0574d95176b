package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sylvarum/bibsync/internal/zotero"
)

var (
	listCollection string
	listLimit      int
)

func init() {
	listCmd.Flags().StringVarP(&listCollection, "collection", "c", "", "Only list items of this collection (case-insensitive name)")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", DefaultListLimit, "Maximum items to list")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List items of the Zotero library",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client := mustNewZoteroClient(mustFindWorkspace())

	var items []zotero.Item
	if listCollection != "" {
		collections, err := client.ListCollections(ctx)
		if err != nil {
			exitWithZoteroError(err, "listing collections")
		}
		match, ok := findCollection(collections, listCollection)
		if !ok {
			names := make([]string, len(collections))
			for i, c := range collections {
				names[i] = c.Data.Name
			}
			exitWithError(ExitError, "collection %q not found\nAvailable collections: %s", listCollection, strings.Join(names, ", "))
		}
		items, err = client.CollectionItems(ctx, match.Key, listLimit)
		if err != nil {
			exitWithZoteroError(err, "listing collection %s", match.Data.Name)
		}
	} else {
		var err error
		items, err = client.Items(ctx, "", listLimit)
		if err != nil {
			exitWithZoteroError(err, "listing items")
		}
	}

	summaries := summarizeItems(items)
	if jsonOutput {
		outputJSON(summaries)
		return nil
	}

	fmt.Printf("Found %d items:\n\n", len(summaries))
	for i, s := range summaries {
		printItemSummary(i+1, s, true, false)
	}
	return nil
}

// findCollection matches a collection by name, ignoring case.
func findCollection(collections []zotero.Collection, name string) (zotero.Collection, bool) {
	for _, c := range collections {
		if strings.EqualFold(c.Data.Name, name) {
			return c, true
		}
	}
	return zotero.Collection{}, false
}
