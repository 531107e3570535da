// =============================================================================
// Invoice Ledger - Batch Pipeline
// =============================================================================
//
// This module orchestrates one run over a set of invoice files, from raw bytes
// to the ordered canonical rows the template writers consume.
//
// PIPELINE:
//   1. Read and extract every file (in parallel, up to Concurrency at a time)
//   2. In input order, for each extracted document:
//      a. Reconcile buyer/seller roles (XML only, advances the RoleTally)
//      b. Validate
//      c. Flatten into canonical rows
//   3. Close the batch: renumber, separator row, grand-total row
//
// CONCURRENCY:
//   Extraction of one file never depends on another, so step 1 fans out.
//   Steps 2 and 3 carry batch state (the role tally and the row order) and
//   always run sequentially over the sorted input list. A failing document is
//   reported in its Result and skipped; the batch continues.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ginjaninja78/invoice-ledger/internal/canonical"
	"github.com/ginjaninja78/invoice-ledger/internal/types"
	"github.com/ginjaninja78/invoice-ledger/internal/validation"
	"github.com/ginjaninja78/invoice-ledger/internal/xmlinvoice"
	"github.com/ginjaninja78/invoice-ledger/pkg/logger"
)

// =============================================================================
// EXTRACTOR CONTRACT
// =============================================================================

// Extractor turns the bytes of one document into a types.Document.
type Extractor interface {
	Format() types.Format
	Extract(ctx context.Context, src types.Source) (*types.Document, error)
}

// Reconciler is implemented by extractors whose documents need role
// reconciliation during the sequential pass.
type Reconciler interface {
	Reconcile(doc *types.Document, tally *xmlinvoice.RoleTally)
}

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the path to the input file that was processed.
	FilePath string

	Format types.Format

	// Success indicates whether the document made it into the batch.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Document is the extracted document; nil when extraction failed.
	Document *types.Document

	// Findings are the validation findings, warnings included.
	Findings []*validation.ValidationError

	// Rows are the canonical rows of this document with per-document
	// ordinals (items 1..n, then the VAT row).
	Rows []canonical.Row

	// ProcessingTime covers reading and extraction.
	ProcessingTime time.Duration
}

// Warnings returns the extraction warnings of the document.
func (r Result) Warnings() []types.Warning {
	if r.Document == nil {
		return nil
	}
	return r.Document.Warnings
}

// Run is the outcome of one batch.
type Run struct {
	// Results are in input order.
	Results []Result

	// Rows are the closed batch rows in ledger order.
	Rows []canonical.Row

	// Documents is the number of documents in Rows.
	Documents int

	Tally xmlinvoice.RoleTally
}

// Succeeded returns the successful results in input order.
func (r *Run) Succeeded() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Success {
			out = append(out, res)
		}
	}
	return out
}

// Failed returns the failed results in input order.
func (r *Run) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Success {
			out = append(out, res)
		}
	}
	return out
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Options configures a Converter.
type Options struct {
	// Concurrency bounds parallel extraction. Values below 1 mean 1.
	Concurrency int

	Batch      canonical.Options
	Validation validation.ValidationOptions
}

// Converter runs batches.
type Converter struct {
	extractors map[types.Format]Extractor
	validator  *validation.Validator
	opts       Options
	log        *logger.Logger
}

// New creates a Converter with one extractor per format. A later extractor
// for the same format replaces an earlier one.
func New(log *logger.Logger, opts Options, extractors ...Extractor) *Converter {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Validation.Tolerance.IsZero() {
		opts.Validation.Tolerance = validation.DefaultValidationOptions().Tolerance
	}
	c := &Converter{
		extractors: make(map[types.Format]Extractor, len(extractors)),
		validator:  validation.NewValidatorWithOptions(opts.Validation),
		opts:       opts,
		log:        log,
	}
	for _, e := range extractors {
		c.extractors[e.Format()] = e
	}
	return c
}

// =============================================================================
// SINGLE DOCUMENT
// =============================================================================

// Extract reads and extracts one file. No reconciliation or validation is
// applied.
//
// RETURNS:
//   - The document, or an error. A file no extractor handles fails with
//     types.ErrUnsupportedFormat.
func (c *Converter) Extract(ctx context.Context, path string) (*types.Document, error) {
	format, ok := types.FormatFromPath(path)
	if !ok {
		return nil, &types.ExtractionError{Kind: types.ErrUnsupportedFormat, Source: filepath.Base(path),
			Msg: fmt.Sprintf("extension %q", filepath.Ext(path))}
	}
	ex, ok := c.extractors[format]
	if !ok {
		return nil, &types.ExtractionError{Kind: types.ErrUnsupportedFormat, Source: filepath.Base(path),
			Msg: fmt.Sprintf("no extractor registered for %s", format)}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ex.Extract(ctx, types.Source{Name: filepath.Base(path), Data: data})
}

// Inspect extracts one file as a batch of its own: XML roles are reconciled
// against a fresh tally, nothing is validated.
func (c *Converter) Inspect(ctx context.Context, path string) (*types.Document, error) {
	doc, err := c.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	if r, ok := c.extractors[doc.Format].(Reconciler); ok {
		r.Reconcile(doc, &xmlinvoice.RoleTally{})
	}
	return doc, nil
}

// =============================================================================
// BATCH PROCESSING
// =============================================================================

// Run processes paths as one batch. The order of paths is the ledger order;
// callers pass a sorted list.
//
// Run never fails as a whole: per-document failures are in the results.
// A cancelled context fails the documents not yet extracted.
func (c *Converter) Run(ctx context.Context, paths []string) *Run {
	run := &Run{Results: c.extractAll(ctx, paths)}

	batch := canonical.NewBatch(c.opts.Batch)
	for i := range run.Results {
		res := &run.Results[i]
		log := c.docLogger(res)
		if res.Error != nil {
			log.Error().Err(res.Error).Msg("Extraction failed")
			continue
		}

		if ex, ok := c.extractors[res.Format].(Reconciler); ok {
			ex.Reconcile(res.Document, &run.Tally)
		}

		vr := c.validator.ValidateDocument(res.Document)
		res.Findings = vr.Errors
		for _, w := range res.Document.Warnings {
			log.Warn().Str("kind", string(w.Kind)).Str("field", w.Field).
				Str("confidence", w.Confidence.String()).Msg(w.Message)
		}
		if !vr.IsValid {
			res.Error = invalidDocument(res.Document.Source, vr)
			log.Error().Int("errors", vr.ErrorCount).Msg("Validation failed")
			continue
		}
		for _, f := range vr.Warnings() {
			log.Warn().Str("kind", "validation").Str("field", f.Field).Msg(f.Message)
		}

		res.Rows = batch.Add(res.Document)
		res.Success = true
		log.Info().Int("items", len(res.Document.Items)).Dur("elapsed", res.ProcessingTime).Msg("Document added")
	}

	run.Documents = batch.Documents()
	run.Rows = batch.Close()
	c.log.Info().Int("documents", run.Documents).Int("rows", len(run.Rows)).
		Int("failed", len(run.Failed())).Msg("Batch closed")
	return run
}

// extractAll fans extraction out and returns the results in input order.
func (c *Converter) extractAll(ctx context.Context, paths []string) []Result {
	results := make([]Result, len(paths))

	type indexed struct {
		i   int
		res Result
	}
	out := make(chan indexed, len(paths))
	sem := make(chan struct{}, c.opts.Concurrency)

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			out <- indexed{i: i, res: c.extractOne(ctx, path)}
		}(i, path)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	for r := range out {
		results[r.i] = r.res
	}
	return results
}

func (c *Converter) extractOne(ctx context.Context, path string) Result {
	start := time.Now()
	res := Result{FilePath: path}
	res.Format, _ = types.FormatFromPath(path)

	if err := ctx.Err(); err != nil {
		res.Error = err
		return res
	}
	c.docLogger(&res).Debug().Msg("Extracting")

	doc, err := c.Extract(ctx, path)
	res.ProcessingTime = time.Since(start)
	if err != nil {
		res.Error = err
		return res
	}
	res.Document = doc
	return res
}

func (c *Converter) docLogger(res *Result) *logger.Logger {
	return logger.From(c.log.With().
		Str("source", filepath.Base(res.FilePath)).
		Str("format", string(res.Format)).
		Logger())
}

// ErrInvalidDocument marks documents rejected by validation.
var ErrInvalidDocument = errors.New("document failed validation")

func invalidDocument(source string, vr *validation.ValidationResult) error {
	var msgs []string
	for _, e := range vr.Errors {
		if e.Severity == validation.SeverityError {
			msgs = append(msgs, e.Error())
		}
	}
	if len(msgs) == 0 {
		msgs = append(msgs, fmt.Sprintf("%d warning(s) treated as errors", vr.WarningCount))
	}
	return fmt.Errorf("%w: %s: %s", ErrInvalidDocument, source, strings.Join(msgs, "; "))
}
