// =============================================================================
// Invoice Ledger - Configuration Module
// =============================================================================
//
// This module loads the run configuration. Everything that belongs to one
// company rather than to the engine (its name and tax code, its ledger
// templates, its account codes) lives here, never in code.
//
// SOURCES, LOWEST PRIORITY FIRST:
//   1. Defaults (applyMainConfigDefaults)
//   2. config.yaml
//   3. LEDGER_* environment variables and command-line flags (ApplyOverrides)
//
// =============================================================================

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/invoice-ledger/internal/docxwriter"
	"github.com/ginjaninja78/invoice-ledger/internal/xlsxwriter"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for .xml, .docx and .pdf invoices.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives the ledger, the word invoices and the proof.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives inputs that were extracted successfully, when
	// ArchiveInputs is set.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// ArchiveInputs moves successfully extracted inputs to InputArchiveDir.
	// Default: false
	ArchiveInputs bool `yaml:"archive_inputs"`

	// ArchiveTimestampSubdirs files archived inputs under year/month/day
	// subdirectories of InputArchiveDir.
	// Default: false
	ArchiveTimestampSubdirs bool `yaml:"archive_timestamp_subdirs"`

	// LogsDir receives the per-run summary and error logs.
	// Default: "./logs"
	LogsDir string `yaml:"logs_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "trace", "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogEnv selects the log format: "development" prints readable console
	// lines, anything else JSON.
	// Default: "production"
	LogEnv string `yaml:"log_env"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat defines output file names.
	// Placeholders:
	//   {kind}      - ledger, invoice or proof
	//   {timestamp} - run timestamp (YYYYMMDD_HHMMSS)
	//   {uuid}      - a random UUID
	//   {original}  - input base name without extension (word invoices only)
	// Default: "{kind}_{timestamp}_{uuid}"
	OutputNameFormat string `yaml:"output_name_format"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the number of documents extracted in parallel.
	// Set to 1 for sequential extraction. Reduction is always sequential.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// Self is the operating company. XML role reconciliation and the PDF
	// seller search need it.
	Self SelfConfig `yaml:"self"`

	// ColumnOverridesFile holds per-document PDF column mappings.
	// Empty means no overrides.
	ColumnOverridesFile string `yaml:"column_overrides_file"`

	// Labels written into the ledger.
	Labels LabelsConfig `yaml:"labels"`

	// Accounts fill the debit and credit columns.
	Accounts AccountsConfig `yaml:"accounts"`

	// RoundingPlaces is the precision of converted amounts.
	// Default: 0 (VND)
	RoundingPlaces int32 `yaml:"rounding_places"`

	// =========================================================================
	// FORMAT SETTINGS
	// =========================================================================

	DOCX        DOCXConfig        `yaml:"docx"`
	PDF         PDFConfig         `yaml:"pdf"`
	Spreadsheet SpreadsheetConfig `yaml:"spreadsheet"`
	Word        WordConfig        `yaml:"word"`
	Proof       ProofConfig       `yaml:"proof"`
}

// SelfConfig identifies the operating company.
type SelfConfig struct {
	Name    string `yaml:"name"`
	TaxCode string `yaml:"tax_code"`
}

// LabelsConfig holds the ledger labels.
type LabelsConfig struct {
	// SellerOfRecord fills the category column for purchases.
	// Default: "Người bán"
	SellerOfRecord string `yaml:"seller_of_record"`

	// BuyerOfRecord fills the category column after a role swap.
	// Default: "Người mua"
	BuyerOfRecord string `yaml:"buyer_of_record"`

	// VATRow is the item name of each VAT row.
	// Default: "Thuế GTGT"
	VATRow string `yaml:"vat_row"`

	// GrandTotal is the item name of the closing row.
	// Default: "Tổng cộng"
	GrandTotal string `yaml:"grand_total"`
}

// AccountsConfig holds the account codes written into every row.
type AccountsConfig struct {
	Debit  string `yaml:"debit"`
	Credit string `yaml:"credit"`
}

// DOCXConfig configures the word-table extractor.
type DOCXConfig struct {
	// Convention of printed numbers: "dot" (1.234,5) or "comma" (1,234.5).
	// Default: "dot"
	Convention string `yaml:"convention"`

	// TitleMarkers replace the built-in invoice titles when non-empty.
	TitleMarkers []string `yaml:"title_markers"`

	// Columns are six 1-based column indices for ordinal, name, unit,
	// quantity, price and amount. Empty means 1..6.
	Columns []int `yaml:"columns"`
}

// PDFConfig configures the PDF extractor.
type PDFConfig struct {
	// Convention of printed numbers.
	// Default: "dot"
	Convention string `yaml:"convention"`

	// Password opens encrypted documents.
	Password string `yaml:"password"`
}

// SpreadsheetConfig configures the ledger writer.
type SpreadsheetConfig struct {
	// Template is the .xlsx ledger template. Empty skips the ledger.
	Template string `yaml:"template"`

	// Sheet to fill. Empty means the first sheet.
	Sheet string `yaml:"sheet"`

	// HeaderLabels override the recognised header texts, keyed by field
	// name (e.g. "item_name").
	HeaderLabels map[string][]string `yaml:"header_labels"`

	// StopLabels end the template's data block.
	StopLabels []string `yaml:"stop_labels"`

	// Totals written below the data block.
	Totals []xlsxwriter.TotalCell `yaml:"totals"`
}

// WordConfig configures the word-template writer.
type WordConfig struct {
	// Template is the .docx invoice template. Empty skips word output.
	Template string `yaml:"template"`

	// ItemTable is the 1-based index of the item table; 0 finds it by STT.
	ItemTable int `yaml:"item_table"`

	// FirstDataRow is the 0-based index of the first item row.
	// Default: 1
	FirstDataRow int `yaml:"first_data_row"`

	// TrailingRows at the table end hold the totals.
	// Default: 4
	TrailingRows int `yaml:"trailing_rows"`

	// Columns map field names to logical table columns (0-based).
	Columns map[string]int `yaml:"columns"`

	// Placeholders replace sample text in the template.
	Placeholders []docxwriter.Placeholder `yaml:"placeholders"`

	// Convention of amounts in the table.
	// Default: "dot"
	Convention string `yaml:"convention"`
}

// ProofConfig configures the PDF ledger proof.
type ProofConfig struct {
	Enabled bool   `yaml:"enabled"`
	Title   string `yaml:"title"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file. An empty path
//     yields the defaults.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read or parsed.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyMainConfigDefaults(&config)
	return &config, nil
}

// Finalize validates the configuration after every override was applied
// and creates missing directories.
func (c *MainConfig) Finalize() error {
	applyMainConfigDefaults(c)
	if err := validateMainConfig(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.LogsDir == "" {
		config.LogsDir = "./logs"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogEnv == "" {
		config.LogEnv = "production"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{kind}_{timestamp}_{uuid}"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}
	if config.Labels.SellerOfRecord == "" {
		config.Labels.SellerOfRecord = "Người bán"
	}
	if config.Labels.BuyerOfRecord == "" {
		config.Labels.BuyerOfRecord = "Người mua"
	}
	if config.Labels.VATRow == "" {
		config.Labels.VATRow = "Thuế GTGT"
	}
	if config.Labels.GrandTotal == "" {
		config.Labels.GrandTotal = "Tổng cộng"
	}
	if config.DOCX.Convention == "" {
		config.DOCX.Convention = "dot"
	}
	if config.PDF.Convention == "" {
		config.PDF.Convention = "dot"
	}
	if config.Word.Convention == "" {
		config.Word.Convention = "dot"
	}
	if config.Word.FirstDataRow == 0 {
		config.Word.FirstDataRow = 1
	}
	if config.Word.TrailingRows == 0 {
		config.Word.TrailingRows = 4
	}
}

// validateMainConfig checks every section and creates missing directories.
func validateMainConfig(config *MainConfig) error {
	if config.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1, got %d", config.MaxConcurrency)
	}
	if config.RoundingPlaces < 0 {
		return fmt.Errorf("rounding_places must not be negative, got %d", config.RoundingPlaces)
	}
	if _, err := config.DOCXOptions(); err != nil {
		return err
	}
	if _, err := config.PDFConvention(); err != nil {
		return err
	}
	if _, err := config.SpreadsheetOptions(); err != nil {
		return err
	}
	if _, err := config.WordOptions(); err != nil {
		return err
	}

	dirs := []string{config.InputDir, config.OutputDir, config.LogsDir}
	if config.ArchiveInputs {
		dirs = append(dirs, config.InputArchiveDir)
	}
	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}
	return nil
}
