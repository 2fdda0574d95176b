// Package main provides the bibsync CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sylvarum/bibsync/internal/config"
	"github.com/sylvarum/bibsync/internal/git"
	"github.com/sylvarum/bibsync/internal/logging"
	"github.com/sylvarum/bibsync/internal/storage"
	"github.com/sylvarum/bibsync/internal/zotero"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	jsonOutput bool
	verbose    bool
	logLevel   string
)

// logger is configured before any command runs.
var logger = logging.Nop()

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Commands exit on their own failures, so anything left is a usage error.
		fmt.Printf("Error: %s\n", err)
		fmt.Println("Run 'bibsync --help' for usage.")
		os.Exit(ExitUsage)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bibsync",
	Short: "Keep a BibTeX bibliography in sync with a Zotero group library",
	Long: `bibsync exports a Zotero group library to refs/bibliography.bib,
validates the result and publishes it through git.

Credentials are read from memory/zotero.json in the workspace
({"groupId": ..., "apiKey": ...}) or from ZOTERO_GROUP_ID and
ZOTERO_API_KEY, which may also be set in a .env file.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

func init() {
	// Load .env file if present (for ZOTERO_GROUP_ID, ZOTERO_API_KEY)
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.Version = Version
}

// setupLogging builds the logger from flags, the environment and the global
// config, in that order of precedence.
func setupLogging(cmd *cobra.Command, args []string) error {
	cfg := logging.ConfigFromEnv()
	if cfg.Level == "" {
		if global, err := config.LoadGlobalConfig(); err == nil {
			cfg.Level = global.LogLevel
		}
	}
	if logLevel != "" {
		cfg.Level = logLevel
	}
	if verbose {
		cfg.Level = "debug"
	}
	if cfg.Level == "" {
		cfg.Level = zerolog.WarnLevel.String()
	}

	logger = logging.New(cfg, os.Stderr)
	return nil
}

// findWorkspace returns the workspace root: BIBSYNC_ROOT if set, else the
// enclosing git checkout, else the nearest directory holding credentials.
func findWorkspace() (string, error) {
	if root := os.Getenv(config.RootEnv); root != "" {
		return root, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	if root, err := git.FindRepoRoot(cwd); err == nil {
		return root, nil
	}
	return config.FindWorkspace(cwd)
}

// mustFindWorkspace finds the workspace root, exits on error.
func mustFindWorkspace() string {
	root, err := findWorkspace()
	if err != nil {
		exitWithError(ExitConfigError, "%v\n\nRun bibsync inside the bibliography repository or set %s.", err, config.RootEnv)
	}
	return root
}

// mustLoadGlobalConfig loads the global config, exits on error.
func mustLoadGlobalConfig() *config.GlobalConfig {
	cfg, err := config.LoadGlobalConfig()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustNewZoteroClient loads credentials and builds a client, exits on error.
func mustNewZoteroClient(root string) *zotero.Client {
	creds, err := config.LoadCredentials(root)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	opts := []zotero.ClientOption{zotero.WithLogger(logger)}
	if base := mustLoadGlobalConfig().APIBaseURL; base != "" {
		opts = append(opts, zotero.WithBaseURL(base))
	}
	return zotero.NewClient(creds.GroupID, creds.APIKey, opts...)
}

// mustOpenIndex opens the local search index, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenIndex(root string) *storage.DB {
	db, err := storage.OpenDB(config.IndexPath(root))
	if err != nil {
		exitWithError(ExitError, "opening index: %v", err)
	}
	return db
}

// exitWithZoteroError maps a remote failure to its exit code and exits.
func exitWithZoteroError(err error, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	switch {
	case zotero.IsAuthError(err):
		exitWithError(ExitConfigError, "%s: %v\n\nCheck the apiKey in %s.", msg, err, config.CredentialsFile)
	case zotero.IsRateLimited(err):
		exitWithError(ExitRemoteError, "%s: %v\n\nZotero is throttling requests; wait a few minutes and retry.", msg, err)
	case zotero.IsNotFound(err):
		exitWithError(ExitError, "%s: %v", msg, err)
	case errors.Is(err, context.Canceled):
		exitWithError(ExitError, "%s: interrupted", msg)
	default:
		exitWithError(ExitRemoteError, "%s: %v", msg, err)
	}
}
