// Package config handles the workspace layout, Zotero credentials and the
// global configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	RefsDir         = "refs"
	BibFile         = "bibliography.bib"
	MemoryDir       = "memory"
	CredentialsFile = "zotero.json"
	StateDir        = ".bibsync"
	IndexFile       = "index.db"

	// RootEnv overrides workspace discovery.
	RootEnv = "BIBSYNC_ROOT"
)

// BibPath returns the path to the synced bibliography from a root path.
func BibPath(root string) string {
	return filepath.Join(root, RefsDir, BibFile)
}

// CredentialsPath returns the path to the Zotero credentials file from a root path.
func CredentialsPath(root string) string {
	return filepath.Join(root, MemoryDir, CredentialsFile)
}

// StatePath returns the path to the local state directory from a root path.
func StatePath(root string) string {
	return filepath.Join(root, StateDir)
}

// IndexPath returns the path to the local search index from a root path.
func IndexPath(root string) string {
	return filepath.Join(StatePath(root), IndexFile)
}

// IsWorkspace checks if the given path is a bibsync workspace: a git
// checkout or a directory holding the credentials file.
func IsWorkspace(root string) bool {
	if _, err := os.Stat(filepath.Join(root, ".git")); err == nil {
		return true
	}
	info, err := os.Stat(CredentialsPath(root))
	return err == nil && !info.IsDir()
}

// FindWorkspace walks up from the given path to find a workspace.
// Returns the workspace root path or an error if not found.
func FindWorkspace(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsWorkspace(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("not in a bibsync workspace (no .git or %s found)", filepath.Join(MemoryDir, CredentialsFile))
		}
		abs = parent
	}
}
