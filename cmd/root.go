// =============================================================================
// Invoice Ledger - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (ledger)
//   ├── processCmd (ledger process)
//   ├── extractCmd (ledger extract <file>)
//   └── versionCmd (ledger version)
//
// CONFIGURATION:
//   config.yaml is read with yaml.v3. Viper then overlays LEDGER_* environment
//   variables (LEDGER_SELF_TAX_CODE for self.tax_code) and the flags below.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ginjaninja78/invoice-ledger/internal/config"
	"github.com/ginjaninja78/invoice-ledger/internal/converter"
	"github.com/ginjaninja78/invoice-ledger/internal/docxinvoice"
	"github.com/ginjaninja78/invoice-ledger/internal/overrides"
	"github.com/ginjaninja78/invoice-ledger/internal/pdfinvoice"
	"github.com/ginjaninja78/invoice-ledger/internal/types"
	"github.com/ginjaninja78/invoice-ledger/internal/xmlinvoice"
	"github.com/ginjaninja78/invoice-ledger/pkg/logger"
	"github.com/ginjaninja78/invoice-ledger/pkg/utils"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// v carries environment and flag overrides.
var v = viper.New()

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Invoice Ledger - Turn XML, Word and PDF invoices into one purchase ledger",
	Long: `Invoice Ledger reads Vietnamese invoices in three formats (XML e-invoices,
Word documents with an item table and text-based PDFs), normalises them into
one ordered set of ledger rows and writes those rows into the company's own
spreadsheet and Word templates.

Key Features:
  - Buyer/seller role correction against the configured company identity
  - Locale-aware parsing of amounts, dates and percentages
  - Template-preserving output (styles, merged cells, placeholders)
  - Per-document failure isolation with a summary and error log

Example Usage:
  ledger process                        # Process all files in the input directory
  ledger process --config ./my.yaml     # Use a custom configuration file
  ledger extract ./input/HD0001.pdf     # Show what one document yields`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "config.yaml", "Path to the main configuration file")
	flags.String("log-level", "", "Log level: trace, debug, info, warn, error")
	flags.String("self-name", "", "Name of the operating company")
	flags.String("self-tax-code", "", "Tax code of the operating company")
	flags.String("input", "", "Input directory")
	flags.String("output", "", "Output directory")

	for key, flag := range map[string]string{
		"log_level":     "log-level",
		"self.name":     "self-name",
		"self.tax_code": "self-tax-code",
		"input_dir":     "input",
		"output_dir":    "output",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

// initConfig enables LEDGER_* environment overrides.
func initConfig() {
	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// loadConfig reads the YAML file, applies overrides and validates. A missing
// file is an error only when --config was given explicitly.
func loadConfig(cmd *cobra.Command) (*config.MainConfig, error) {
	path := cfgFile
	if !utils.FileExists(path) && !cmd.Flags().Changed("config") {
		path = ""
	}

	cfg, err := config.LoadMainConfig(path)
	if err != nil {
		return nil, err
	}
	config.ApplyOverrides(cfg, v)
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.MainConfig) *logger.Logger {
	return logger.New(logger.Config{Env: cfg.LogEnv, Level: cfg.LogLevel, Out: os.Stderr})
}

// newConverter registers one extractor per source format.
func newConverter(cfg *config.MainConfig, log *logger.Logger) (*converter.Converter, error) {
	docxOpts, err := cfg.DOCXOptions()
	if err != nil {
		return nil, err
	}
	pdfConv, err := cfg.PDFConvention()
	if err != nil {
		return nil, err
	}

	var table *overrides.Table
	if cfg.ColumnOverridesFile != "" {
		table, err = overrides.Load(cfg.ColumnOverridesFile)
		if err != nil {
			return nil, types.Configurationf("", "column overrides: %v", err)
		}
		log.Info().Str("file", cfg.ColumnOverridesFile).Int("entries", table.Len()).Msg("Loaded column overrides")
	}

	self := cfg.SelfParty()
	if self.IsZero() {
		log.Warn().Msg("No self identity configured; XML roles are not reconciled")
	}

	opts := converter.Options{
		Concurrency: cfg.MaxConcurrency,
		Batch:       cfg.BatchOptions(),
	}
	return converter.New(log, opts,
		xmlinvoice.New(self),
		docxinvoice.New(docxOpts),
		pdfinvoice.New(pdfinvoice.Options{
			Convention: pdfConv,
			Self:       self,
			Password:   cfg.PDF.Password,
			Overrides:  table,
		}),
	), nil
}
