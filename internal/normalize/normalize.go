// Package normalize turns the items of a remote library into one flat BibTeX
// document.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sylvarum/bibsync/internal/zotero"
)

// ErrEmptyExport marks an item whose export contained no BibTeX.
var ErrEmptyExport = errors.New("empty export")

// Source provides items and their BibTeX exports.
type Source interface {
	FetchAllItems(ctx context.Context) ([]zotero.Item, error)
	ExportItem(ctx context.Context, key string) (string, error)
}

// Failure records an item that was skipped.
type Failure struct {
	Key string `json:"key"`
	Err error  `json:"-"`
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Key, f.Err)
}

// Result is the outcome of a normalization pass.
type Result struct {
	Document string    // records joined by a blank line, newline-terminated
	Items    int       // items returned by the source
	Records  int       // records written to Document
	Failures []Failure // skipped items in input order
}

// Skipped returns the number of items left out of the document.
func (r *Result) Skipped() int {
	return len(r.Failures)
}

type options struct {
	logger zerolog.Logger
}

// Option configures Normalize.
type Option func(*options)

// WithLogger sets the logger used to report skipped items.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Normalize fetches every item from src and exports each one in order.
// Items that fail to export are skipped with a warning. A failed fetch or a
// cancelled context aborts the pass.
func Normalize(ctx context.Context, src Source, opts ...Option) (*Result, error) {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	items, err := src.FetchAllItems(ctx)
	if err != nil {
		return nil, err
	}
	o.logger.Debug().Int("items", len(items)).Msg("fetched items")

	result := &Result{Items: len(items)}
	records := make([]string, 0, len(items))

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := src.ExportItem(ctx, item.Key)
		if err == nil {
			record = strings.TrimSpace(record)
			if record == "" {
				err = ErrEmptyExport
			}
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			o.logger.Warn().Str("item", item.Key).Err(err).Msg("skipping item")
			result.Failures = append(result.Failures, Failure{Key: item.Key, Err: err})
			continue
		}

		records = append(records, record)
	}

	result.Records = len(records)
	result.Document = strings.Join(records, "\n\n") + "\n"
	return result, nil
}
