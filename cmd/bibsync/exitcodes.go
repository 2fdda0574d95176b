package main

// Exit codes. Codes 3 and above mean different things for validate and sync.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // Validation failed, or general runtime failure
	ExitUsage       = 2 // Invalid arguments or flags
	ExitConfigError = 2 // Missing workspace, credentials or config

	// validate
	ExitParseError = 3 // Document is not well-formed BibTeX

	// sync and the remote commands
	ExitRemoteError  = 3 // Zotero unreachable or returned an error
	ExitExportError  = 4 // Exported document is not well-formed BibTeX
	ExitPublishError = 5 // git stage, commit or push failed
)
