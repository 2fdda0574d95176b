// Package zotero provides a client for the Zotero Web API (v3), scoped to a
// single group library.
package zotero

import (
	"strings"
)

// Item is a top-level item of a Zotero library. Data holds the item fields,
// which vary by item type.
type Item struct {
	Key     string         `json:"key"`
	Version int            `json:"version"`
	Data    map[string]any `json:"data"`
	Meta    ItemMeta       `json:"meta"`
}

// ItemMeta is the server-computed summary of an item.
type ItemMeta struct {
	CreatorSummary string `json:"creatorSummary,omitempty"`
	ParsedDate     string `json:"parsedDate,omitempty"`
	NumChildren    int    `json:"numChildren,omitempty"`
}

// Creator is an author, editor or other contributor of an item.
type Creator struct {
	CreatorType string `json:"creatorType"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Name        string `json:"name,omitempty"`
}

// Collection is a named folder of items in a library.
type Collection struct {
	Key     string         `json:"key"`
	Version int            `json:"version"`
	Data    CollectionData `json:"data"`
	Meta    CollectionMeta `json:"meta"`
}

// CollectionData holds the editable fields of a collection.
type CollectionData struct {
	Name             string `json:"name"`
	ParentCollection any    `json:"parentCollection,omitempty"` // false or a key
}

// CollectionMeta holds server-computed collection counts.
type CollectionMeta struct {
	NumCollections int `json:"numCollections"`
	NumItems       int `json:"numItems"`
}

// CreateResponse is the result of a multi-object write.
// Maps are keyed by the index of the object in the request.
type CreateResponse struct {
	Successful map[string]Item        `json:"successful"`
	Success    map[string]string      `json:"success"`
	Unchanged  map[string]string      `json:"unchanged"`
	Failed     map[string]WriteFailed `json:"failed"`
}

// WriteFailed describes one object the server rejected.
type WriteFailed struct {
	Key     string `json:"key,omitempty"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// String returns a data field as a string, or "" if absent or not a string.
func (i Item) String(field string) string {
	if s, ok := i.Data[field].(string); ok {
		return s
	}
	return ""
}

// Title returns the item title.
func (i Item) Title() string {
	return i.String("title")
}

// ItemType returns the Zotero item type (journalArticle, book, ...).
func (i Item) ItemType() string {
	return i.String("itemType")
}

// URL returns the item URL, if any.
func (i Item) URL() string {
	return i.String("url")
}

// Year returns the four-character year prefix of the item date.
func (i Item) Year() string {
	date := i.Meta.ParsedDate
	if date == "" {
		date = i.String("date")
	}
	if len(date) < 4 {
		return date
	}
	return date[:4]
}

// Creators decodes the creators list.
func (i Item) Creators() []Creator {
	raw, ok := i.Data["creators"].([]any)
	if !ok {
		return nil
	}
	creators := make([]Creator, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		var c Creator
		c.CreatorType, _ = m["creatorType"].(string)
		c.FirstName, _ = m["firstName"].(string)
		c.LastName, _ = m["lastName"].(string)
		c.Name, _ = m["name"].(string)
		creators = append(creators, c)
	}
	return creators
}

// FirstAuthor returns the last name (or single-field name) of the first creator.
func (i Item) FirstAuthor() string {
	creators := i.Creators()
	if len(creators) == 0 {
		return ""
	}
	if creators[0].LastName != "" {
		return creators[0].LastName
	}
	return creators[0].Name
}

// NewCreator splits "First Last" at the first space. A single word becomes
// the last name, so "Jan Maria Kowalski" yields first "Jan", last "Maria Kowalski".
func NewCreator(creatorType, fullName string) Creator {
	c := Creator{CreatorType: creatorType}
	first, last, found := strings.Cut(strings.TrimSpace(fullName), " ")
	if found {
		c.FirstName = first
		c.LastName = strings.TrimSpace(last)
	} else {
		c.LastName = first
	}
	return c
}
