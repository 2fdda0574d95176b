package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sylvarum/bibsync/internal/bibtex"
	"github.com/sylvarum/bibsync/internal/config"
	"github.com/sylvarum/bibsync/internal/zotero"
)

var (
	addTitle  string
	addAuthor string
	addYear   string
	addType   string
	addURL    string
	addDOI    string
	addNote   string
)

func init() {
	addCmd.Flags().StringVar(&addTitle, "title", "", "Item title (required)")
	addCmd.Flags().StringVar(&addAuthor, "author", "", `Author as "First Last"`)
	addCmd.Flags().StringVar(&addYear, "year", "", "Publication year")
	addCmd.Flags().StringVar(&addType, "type", "journalArticle", "Zotero item type")
	addCmd.Flags().StringVar(&addURL, "url", "", "Item URL")
	addCmd.Flags().StringVar(&addDOI, "doi", "", "Item DOI")
	addCmd.Flags().StringVar(&addNote, "note", "", "Attach a child note with this text")
	rootCmd.AddCommand(addCmd)
}

var addCmd = &cobra.Command{
	Use:   "add --title <title> [--author <name>] [--year <year>]",
	Short: "Add an item to the Zotero library",
	Long: `Add an item to the Zotero library from manually entered metadata.

The item is built from the server's template for --type, so only fields
that type supports are set. A warning is printed if the synced
bibliography already has an entry with the same DOI or title.

Adding by URL alone needs the Zotero translation server, which bibsync
does not use; pass --title along with --url.`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

// AddResult is the JSON response for the add command.
type AddResult struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	NoteKey  string `json:"note_key,omitempty"`
	Existing string `json:"existing,omitempty"`
}

func runAdd(cmd *cobra.Command, args []string) error {
	if addTitle == "" {
		if addURL != "" {
			exitWithError(ExitUsage, "adding by URL alone is not supported; pass --title with --url")
		}
		exitWithError(ExitUsage, "--title is required")
	}

	ctx := cmd.Context()
	root := mustFindWorkspace()
	client := mustNewZoteroClient(root)

	result := AddResult{Title: addTitle}
	if key, ok := findExisting(root, addDOI, addTitle); ok {
		result.Existing = key
		warn("the bibliography already has a matching entry: %s", key)
	}

	template, err := client.ItemTemplate(ctx, addType)
	if err != nil {
		exitWithZoteroError(err, "getting template for %s", addType)
	}
	fillTemplate(template, addTitle, addAuthor, addYear, addURL, addDOI)

	key, err := client.CreateItem(ctx, template)
	if err != nil {
		exitWithZoteroError(err, "creating item")
	}
	result.Key = key
	logger.Debug().Str("key", key).Msg("created item")

	if addNote != "" {
		noteKey, err := addChildNote(cmd, client, key, addNote)
		if err != nil {
			exitWithZoteroError(err, "item %s created, but adding the note failed", key)
		}
		result.NoteKey = noteKey
	}

	if jsonOutput {
		outputJSON(result)
		return nil
	}
	fmt.Printf("Added item: [%s] %s\n", key, addTitle)
	if result.NoteKey != "" {
		fmt.Println("  + note added")
	}
	return nil
}

// findExisting looks up the synced bibliography for an entry matching doi or
// title. A missing or unparsable bibliography matches nothing.
func findExisting(root, doi, title string) (string, bool) {
	idx, err := bibtex.LoadIndex(config.BibPath(root))
	if err != nil {
		logger.Debug().Err(err).Msg("skipping duplicate check")
		return "", false
	}
	return idx.Match(doi, title)
}

// fillTemplate sets the given metadata on an item template. Fields the item
// type does not support are left out, since the server rejects them.
func fillTemplate(template map[string]any, title, author, year, url, doi string) {
	template["title"] = title
	if year != "" {
		template["date"] = year
	}
	if url != "" {
		if _, ok := template["url"]; ok {
			template["url"] = url
		}
	}
	if doi != "" {
		if _, ok := template["DOI"]; ok {
			template["DOI"] = doi
		}
	}
	if author != "" {
		template["creators"] = []zotero.Creator{zotero.NewCreator("author", author)}
	}
}

func addChildNote(cmd *cobra.Command, client *zotero.Client, parentKey, text string) (string, error) {
	ctx := cmd.Context()
	note, err := client.ItemTemplate(ctx, "note")
	if err != nil {
		return "", err
	}
	note["note"] = text
	note["parentItem"] = parentKey
	return client.CreateItem(ctx, note)
}
