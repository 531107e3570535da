// =============================================================================
// Invoice Ledger - Process Command
// =============================================================================
//
// This file defines the 'process' command, which runs one batch over the
// input directory.
//
// COMMAND USAGE:
//   ledger process [flags]
//
// FLAGS:
//   --dry-run     : Extract and validate, but write no outputs and archive nothing
//
// PROCESSING PIPELINE:
//   1. Load configuration
//   2. Discover .xml, .docx and .pdf files in the input directory (sorted)
//   3. Extract every file, isolating failures per document
//   4. Reconcile, validate and normalise in input order
//   5. Write the spreadsheet ledger, one word invoice per document and the
//      proof PDF, as configured
//   6. Archive extracted inputs
//   7. Write the summary and error logs
//
// EXIT STATUS:
//   Non-zero only for configuration errors and templates the writers cannot
//   use. Documents that fail are reported and skipped.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/invoice-ledger/internal/config"
	"github.com/ginjaninja78/invoice-ledger/internal/converter"
	"github.com/ginjaninja78/invoice-ledger/internal/docxwriter"
	"github.com/ginjaninja78/invoice-ledger/internal/pdfreport"
	"github.com/ginjaninja78/invoice-ledger/internal/types"
	"github.com/ginjaninja78/invoice-ledger/internal/validation"
	"github.com/ginjaninja78/invoice-ledger/internal/xlsxwriter"
	"github.com/ginjaninja78/invoice-ledger/pkg/logger"
	"github.com/ginjaninja78/invoice-ledger/pkg/utils"
)

// dryRun skips every write except the logs.
var dryRun bool

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process the invoices of the input directory into the ledger",
	Long: `The process command scans the input directory for XML, Word and PDF
invoices, extracts each one, and writes the combined ledger into the
configured templates.

Each file is extracted independently; a document that cannot be read or fails
validation is reported and left out, and the others continue.

On completion:
  - The ledger, word invoices and proof PDF are placed in the output directory
  - Extracted inputs are moved to the input archive (archive_inputs: true)
  - A summary and, if needed, an error log are written to the logs directory`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Extract and validate without writing outputs")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(cmd *cobra.Command) error {
	startTime := time.Now()

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}
	log := newLogger(cfg)

	conv, err := newConverter(cfg, log)
	if err != nil {
		return err
	}
	targets, err := loadTargets(cfg)
	if err != nil {
		return err
	}

	fm := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.LogsDir)
	fm.ArchiveOnSuccess = cfg.ArchiveInputs && !dryRun
	fm.UseTimestampSubdirs = cfg.ArchiveTimestampSubdirs

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	inputFiles, err := fm.DiscoverInputFiles(".xml", ".docx", ".pdf")
	if err != nil {
		return fmt.Errorf("failed to discover input files: %w", err)
	}
	if len(inputFiles) == 0 {
		log.Info().Str("dir", cfg.InputDir).Msg("No invoices found in the input directory")
		return nil
	}
	log.Info().Int("files", len(inputFiles)).Bool("dry_run", dryRun).Msg("Processing")

	// =========================================================================
	// STEP 3: EXTRACT, RECONCILE, VALIDATE, NORMALISE
	// =========================================================================

	run := conv.Run(cmd.Context(), inputFiles)

	// =========================================================================
	// STEP 4: RENDER AND WRITE OUTPUTS
	// =========================================================================

	summary := utils.ProcessingSummary{
		StartTime:  startTime,
		TotalFiles: len(inputFiles),
		LedgerRows: len(run.Rows),
	}

	var renderErr error
	if run.Documents == 0 {
		log.Warn().Msg("No document could be processed; nothing to write")
	} else if !dryRun {
		artifacts, err := conv.Render(run, targets)
		if err != nil {
			renderErr = err
			log.Error().Err(err).Msg("Writing outputs failed")
		}
		for _, a := range artifacts {
			name := utils.GenerateOutputFileName(cfg.OutputNameFormat, a.Ext, startTime,
				map[string]string{"kind": a.Kind, "original": a.Original})
			path, err := fm.WriteOutputFile(name, a.Data)
			if err != nil {
				return err
			}
			summary.Outputs = append(summary.Outputs, path)
			log.Info().Str("kind", a.Kind).Str("path", path).Msg("Wrote output")
		}
	}

	// =========================================================================
	// STEP 5: ARCHIVE AND REPORT
	// =========================================================================

	var errorEntries []utils.ErrorLogEntry
	var findings []*validation.ValidationError
	for _, res := range run.Results {
		name := filepath.Base(res.FilePath)
		findings = append(findings, res.Findings...)
		summary.Warnings += len(res.Warnings())

		if !res.Success {
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    name,
				ErrorMessage: res.Error.Error(),
				ErrorType:    errorType(res.Error),
			})
			errorEntries = append(errorEntries, errorEntry(name, res.Error))
			fmt.Printf("  ✗ %s: %v\n", name, res.Error)
			continue
		}

		archived := res.FilePath
		if renderErr == nil {
			if archived, err = fm.ArchiveInputFile(res.FilePath); err != nil {
				log.Warn().Err(err).Str("source", name).Msg("Failed to archive input")
				archived = res.FilePath
			}
		}
		summary.SuccessfulFiles++
		summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
			InputFile:   name,
			ArchivePath: archived,
			Format:      string(res.Format),
			Items:       len(res.Document.Items),
			Warnings:    len(res.Warnings()),
			ProcessTime: res.ProcessingTime,
		})
		fmt.Printf("  ✓ %s (%d items, %d warnings)\n", name, len(res.Document.Items), len(res.Warnings()))
	}

	summary.EndTime = time.Now()
	writeLogs(log, cfg, summary, errorEntries, findings)

	fmt.Println("\n=== Processing Complete ===")
	fmt.Printf("Total files:     %d\n", summary.TotalFiles)
	fmt.Printf("Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Printf("Errors:          %d\n", summary.FailedFiles)
	fmt.Printf("Ledger rows:     %d\n", summary.LedgerRows)
	fmt.Printf("Time elapsed:    %s\n", summary.EndTime.Sub(startTime))

	return renderErr
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// loadTargets reads the configured templates. A template that cannot be read
// is a configuration error.
func loadTargets(cfg *config.MainConfig) (converter.Targets, error) {
	var t converter.Targets

	if cfg.Spreadsheet.Template != "" {
		data, err := os.ReadFile(cfg.Spreadsheet.Template)
		if err != nil {
			return t, types.Configurationf("", "spreadsheet template: %v", err)
		}
		opts, err := cfg.SpreadsheetOptions()
		if err != nil {
			return t, err
		}
		t.Ledger, t.LedgerTemplate = xlsxwriter.New(opts), data
	}

	if cfg.Word.Template != "" {
		data, err := os.ReadFile(cfg.Word.Template)
		if err != nil {
			return t, types.Configurationf("", "word template: %v", err)
		}
		opts, err := cfg.WordOptions()
		if err != nil {
			return t, err
		}
		w, err := docxwriter.New(opts)
		if err != nil {
			return t, err
		}
		t.Word, t.WordTemplate = w, data
	}

	if cfg.Proof.Enabled {
		t.Proof = &pdfreport.Options{Title: cfg.Proof.Title}
	}
	return t, nil
}

func errorType(err error) string {
	if kind := types.KindOf(err); kind != nil {
		return kind.Error()
	}
	if errors.Is(err, converter.ErrInvalidDocument) {
		return "validation"
	}
	return "error"
}

func errorEntry(name string, err error) utils.ErrorLogEntry {
	entry := utils.ErrorLogEntry{
		Timestamp:    time.Now(),
		FileName:     name,
		ErrorType:    errorType(err),
		ErrorMessage: err.Error(),
	}
	var xe *types.ExtractionError
	if errors.As(err, &xe) {
		entry.FieldName = xe.Field
	}
	return entry
}

// writeLogs writes the per-run logs. Failures are logged, not returned: the
// outputs are already on disk.
func writeLogs(log *logger.Logger, cfg *config.MainConfig, summary utils.ProcessingSummary,
	entries []utils.ErrorLogEntry, findings []*validation.ValidationError) {

	if path, err := utils.WriteSummaryLog(summary, cfg.LogsDir); err != nil {
		log.Error().Err(err).Msg("Failed to write summary log")
	} else {
		log.Info().Str("path", path).Msg("Wrote summary log")
	}

	if path, err := utils.WriteErrorLog(entries, cfg.LogsDir); err != nil {
		log.Error().Err(err).Msg("Failed to write error log")
	} else if path != "" {
		log.Info().Str("path", path).Msg("Wrote error log")
	}

	if len(findings) > 0 {
		path := filepath.Join(cfg.LogsDir,
			fmt.Sprintf("validation_%s.txt", summary.StartTime.Format("20060102_150405")))
		if err := validation.WriteErrorLog(findings, path); err != nil {
			log.Error().Err(err).Msg("Failed to write validation log")
		}
	}
}
