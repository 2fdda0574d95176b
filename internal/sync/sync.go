// Package sync exports the remote library into the local bibliography,
// validates the result and publishes it through version control.
//
// A run is a fixed sequence of stages:
//
//	fetch/normalize -> persist -> validate -> publish
//
// Each mode stops the sequence at a different point. A failing validation
// always stops it before publish.
package sync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/sylvarum/bibsync/internal/bibtex"
	"github.com/sylvarum/bibsync/internal/normalize"
	"github.com/sylvarum/bibsync/internal/validate"
)

// Sentinel errors for the fatal stages of a run.
var (
	ErrFetch   = errors.New("fetching remote library failed")
	ErrPersist = errors.New("writing bibliography failed")
	ErrParse   = errors.New("exported bibliography is malformed")
	ErrPublish = errors.New("publishing bibliography failed")
)

// CommitTimeFormat is the timestamp layout used in revision messages.
const CommitTimeFormat = "2006-01-02 15:04"

// Mode selects how far a run proceeds.
type Mode int

const (
	// Full exports, validates and publishes.
	Full Mode = iota
	// DryRun exports and validates without publishing.
	DryRun
	// ExportOnly writes the export and stops.
	ExportOnly
)

var modeNames = map[Mode]string{
	Full:       "full",
	DryRun:     "dry-run",
	ExportOnly: "export-only",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Publisher records a file as a new revision and sends it upstream.
type Publisher interface {
	Stage(ctx context.Context, path string) error
	HasStagedChanges(ctx context.Context, path string) (bool, error)
	Commit(ctx context.Context, message, path string) error
	// Unpublished reports whether earlier revisions have not reached the
	// remote yet, for example after a failed push.
	Unpublished(ctx context.Context) (bool, error)
	Push(ctx context.Context) error
}

// Outcome summarizes one run.
type Outcome struct {
	Mode      Mode             `json:"mode"`
	Exported  bool             `json:"exported"`
	Validated bool             `json:"validated"`
	Published bool             `json:"published"`
	UpToDate  bool             `json:"up_to_date,omitempty"`
	Issues    []validate.Issue `json:"issues"`
	Records   int              `json:"records"` // records written by the export
	Entries   int              `json:"entries"` // entries seen by validation
	Skipped   int              `json:"skipped"`
	Revision  string           `json:"revision,omitempty"`
}

// Failed reports whether validation ran and found issues.
func (o *Outcome) Failed() bool {
	return o.Validated && len(o.Issues) > 0
}

// Orchestrator runs the export, validate and publish sequence for one
// bibliography file.
type Orchestrator struct {
	Source    normalize.Source
	Publisher Publisher
	BibPath   string

	// Now stamps revision messages. Defaults to time.Now.
	Now func() time.Time
	// Progress, if set, receives one line per stage as it starts.
	Progress func(msg string)
	Logger   zerolog.Logger
}

// CommitMessage returns the revision message for a sync at t.
func CommitMessage(t time.Time) string {
	return "chore: sync bibliography from Zotero (" + t.Format(CommitTimeFormat) + ")"
}

func (o *Orchestrator) progress(msg string) {
	if o.Progress != nil {
		o.Progress(msg)
	}
}

// Run performs one sync in the given mode.
//
// A failing validation is not an error: the returned Outcome reports it via
// Failed. Errors are returned only for fatal conditions and wrap one of
// ErrFetch, ErrPersist, ErrParse or ErrPublish. A library whose items all
// fail to export is a fetch error, so the previous file is never replaced by
// an empty one. The written file is kept even when publishing fails.
func (o *Orchestrator) Run(ctx context.Context, mode Mode) (*Outcome, error) {
	out := &Outcome{Mode: mode, Issues: []validate.Issue{}}
	log := o.Logger.With().Str("mode", mode.String()).Logger()

	o.progress("Exporting from Zotero...")
	result, err := normalize.Normalize(ctx, o.Source, normalize.WithLogger(log))
	if err != nil {
		return out, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if result.Items > 0 && result.Records == 0 {
		return out, fmt.Errorf("%w: all %d items failed to export: %w", ErrFetch, result.Items, result.Failures[0].Err)
	}
	out.Records = result.Records
	out.Skipped = result.Skipped()
	log.Info().
		Int("items", result.Items).
		Int("records", result.Records).
		Int("skipped", out.Skipped).
		Msg("exported library")

	if err := writeFile(o.BibPath, result.Document); err != nil {
		return out, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	out.Exported = true
	log.Debug().Str("path", o.BibPath).Msg("wrote bibliography")

	if mode == ExportOnly {
		return out, nil
	}

	o.progress("Validating...")
	report, err := validate.ValidateFile(o.BibPath)
	if err != nil {
		if errors.Is(err, bibtex.ErrMalformed) {
			return out, fmt.Errorf("%w: %w", ErrParse, err)
		}
		return out, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	out.Validated = true
	out.Issues = report.Issues
	out.Entries = report.Entries

	if !report.Passed() {
		log.Warn().Int("issues", len(report.Issues)).Msg("validation failed")
		return out, nil
	}

	if mode == DryRun {
		return out, nil
	}

	if err := o.publish(ctx, out, log); err != nil {
		return out, fmt.Errorf("%w: %w", ErrPublish, err)
	}
	return out, nil
}

func (o *Orchestrator) publish(ctx context.Context, out *Outcome, log zerolog.Logger) error {
	if o.Publisher == nil {
		return errors.New("no publisher configured")
	}

	o.progress("Committing...")
	if err := o.Publisher.Stage(ctx, o.BibPath); err != nil {
		return fmt.Errorf("staging: %w", err)
	}
	changed, err := o.Publisher.HasStagedChanges(ctx, o.BibPath)
	if err != nil {
		return fmt.Errorf("checking staged changes: %w", err)
	}
	if !changed {
		pending, err := o.Publisher.Unpublished(ctx)
		if err != nil {
			return fmt.Errorf("checking unpublished revisions: %w", err)
		}
		if !pending {
			out.UpToDate = true
			log.Info().Msg("bibliography unchanged, nothing to commit")
			return nil
		}
		log.Info().Msg("bibliography unchanged, pushing earlier revision")
		return o.push(ctx, out, log)
	}

	now := time.Now
	if o.Now != nil {
		now = o.Now
	}
	msg := CommitMessage(now())
	if err := o.Publisher.Commit(ctx, msg, o.BibPath); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	out.Revision = msg

	return o.push(ctx, out, log)
}

func (o *Orchestrator) push(ctx context.Context, out *Outcome, log zerolog.Logger) error {
	if err := o.Publisher.Push(ctx); err != nil {
		return fmt.Errorf("pushing: %w", err)
	}
	out.Published = true
	log.Info().Str("revision", out.Revision).Msg("published bibliography")
	return nil
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
