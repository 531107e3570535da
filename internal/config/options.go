package config

import (
	"fmt"
	"strconv"

	"github.com/spf13/viper"

	"github.com/ginjaninja78/invoice-ledger/internal/canonical"
	"github.com/ginjaninja78/invoice-ledger/internal/docxinvoice"
	"github.com/ginjaninja78/invoice-ledger/internal/docxwriter"
	"github.com/ginjaninja78/invoice-ledger/internal/locale"
	"github.com/ginjaninja78/invoice-ledger/internal/overrides"
	"github.com/ginjaninja78/invoice-ledger/internal/types"
	"github.com/ginjaninja78/invoice-ledger/internal/xlsxwriter"
)

// =============================================================================
// COMPONENT OPTIONS
// =============================================================================

// SelfParty returns the operating company as a party.
func (c *MainConfig) SelfParty() types.Party {
	return types.NewParty(c.Self.Name, c.Self.TaxCode, "")
}

// BatchOptions returns the canonical normalizer options.
func (c *MainConfig) BatchOptions() canonical.Options {
	return canonical.Options{
		SellerLabel:     c.Labels.SellerOfRecord,
		BuyerLabel:      c.Labels.BuyerOfRecord,
		VATLabel:        c.Labels.VATRow,
		GrandTotalLabel: c.Labels.GrandTotal,
		Debit:           c.Accounts.Debit,
		Credit:          c.Accounts.Credit,
		RoundingPlaces:  c.RoundingPlaces,
	}
}

// DOCXOptions returns the word-table extractor options.
func (c *MainConfig) DOCXOptions() (docxinvoice.Options, error) {
	conv, err := locale.ParseConvention(c.DOCX.Convention)
	if err != nil {
		return docxinvoice.Options{}, fmt.Errorf("docx.convention: %w", err)
	}
	opts := docxinvoice.Options{Convention: conv, TitleMarkers: c.DOCX.TitleMarkers}
	if len(c.DOCX.Columns) > 0 {
		if len(c.DOCX.Columns) != overrides.Columns {
			return opts, fmt.Errorf("docx.columns: want %d indices, got %d", overrides.Columns, len(c.DOCX.Columns))
		}
		for i, col := range c.DOCX.Columns {
			if col < 1 {
				return opts, fmt.Errorf("docx.columns: index %d must be 1-based, got %d", i+1, col)
			}
			opts.Columns[i] = col - 1
		}
	}
	return opts, nil
}

// PDFConvention returns the separator convention of PDF invoices.
func (c *MainConfig) PDFConvention() (locale.Convention, error) {
	conv, err := locale.ParseConvention(c.PDF.Convention)
	if err != nil {
		return conv, fmt.Errorf("pdf.convention: %w", err)
	}
	return conv, nil
}

// SpreadsheetOptions returns the ledger writer options.
func (c *MainConfig) SpreadsheetOptions() (xlsxwriter.Options, error) {
	opts := xlsxwriter.Options{
		Sheet:      c.Spreadsheet.Sheet,
		StopLabels: c.Spreadsheet.StopLabels,
		Totals:     c.Spreadsheet.Totals,
	}
	if len(c.Spreadsheet.HeaderLabels) > 0 {
		opts.HeaderLabels = make(map[canonical.Field][]string, len(c.Spreadsheet.HeaderLabels))
		for name, labels := range c.Spreadsheet.HeaderLabels {
			f, ok := canonical.ParseField(name)
			if !ok {
				return opts, fmt.Errorf("spreadsheet.header_labels: unknown field %q", name)
			}
			opts.HeaderLabels[f] = labels
		}
	}
	for _, tc := range c.Spreadsheet.Totals {
		if _, ok := canonical.ParseField(string(tc.Field)); !ok {
			return opts, fmt.Errorf("spreadsheet.totals: unknown field %q", tc.Field)
		}
		if _, ok := tc.Value.Pick(canonical.Totals{}); !ok {
			return opts, fmt.Errorf("spreadsheet.totals: unknown value %q", tc.Value)
		}
		if tc.Offset < 1 {
			return opts, fmt.Errorf("spreadsheet.totals: offset of %s must be at least 1", tc.Field)
		}
	}
	return opts, nil
}

// WordOptions returns the word-template writer options.
func (c *MainConfig) WordOptions() (docxwriter.Options, error) {
	conv, err := locale.ParseConvention(c.Word.Convention)
	if err != nil {
		return docxwriter.Options{}, fmt.Errorf("word.convention: %w", err)
	}
	opts := docxwriter.Options{
		ItemTable:    c.Word.ItemTable,
		FirstDataRow: c.Word.FirstDataRow,
		TrailingRows: c.Word.TrailingRows,
		Placeholders: c.Word.Placeholders,
		Convention:   conv,
	}
	if len(c.Word.Columns) > 0 {
		opts.Columns = make(map[canonical.Field]int, len(c.Word.Columns))
		for name, col := range c.Word.Columns {
			f, ok := canonical.ParseField(name)
			if !ok {
				return opts, fmt.Errorf("word.columns: unknown field %q", name)
			}
			if col < 0 {
				return opts, fmt.Errorf("word.columns: %s must not be negative", name)
			}
			opts.Columns[f] = col
		}
	}
	if _, err := docxwriter.New(opts); err != nil {
		return opts, fmt.Errorf("word.placeholders: %w", err)
	}
	return opts, nil
}

// =============================================================================
// ENVIRONMENT AND FLAG OVERRIDES
// =============================================================================

// ApplyOverrides copies every key set in v (through LEDGER_* variables,
// bound flags or a config file read by viper) over the YAML values.
func ApplyOverrides(c *MainConfig, v *viper.Viper) {
	c.InputDir = getString(v, "input_dir", c.InputDir)
	c.OutputDir = getString(v, "output_dir", c.OutputDir)
	c.LogsDir = getString(v, "logs_dir", c.LogsDir)
	c.ArchiveInputs = getBool(v, "archive_inputs", c.ArchiveInputs)
	c.ArchiveTimestampSubdirs = getBool(v, "archive_timestamp_subdirs", c.ArchiveTimestampSubdirs)
	c.LogLevel = getString(v, "log_level", c.LogLevel)
	c.LogEnv = getString(v, "log_env", c.LogEnv)
	c.MaxConcurrency = getInt(v, "max_concurrency", c.MaxConcurrency)
	c.Self.Name = getString(v, "self.name", c.Self.Name)
	c.Self.TaxCode = getString(v, "self.tax_code", c.Self.TaxCode)
	c.ColumnOverridesFile = getString(v, "column_overrides_file", c.ColumnOverridesFile)
	c.PDF.Password = getString(v, "pdf.password", c.PDF.Password)
	c.Spreadsheet.Template = getString(v, "spreadsheet.template", c.Spreadsheet.Template)
	c.Word.Template = getString(v, "word.template", c.Word.Template)
	c.Proof.Enabled = getBool(v, "proof.enabled", c.Proof.Enabled)
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}
