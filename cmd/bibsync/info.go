package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(infoCmd)
}

var infoCmd = &cobra.Command{
	Use:   "info <item-key>",
	Short: "Show all fields of a Zotero item",
	Long:  `Show all data fields of a Zotero item as JSON.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	client := mustNewZoteroClient(mustFindWorkspace())

	item, err := client.Item(cmd.Context(), args[0])
	if err != nil {
		exitWithZoteroError(err, "getting item")
	}

	// The item data is JSON in both output modes.
	outputJSON(item.Data)
	return nil
}
