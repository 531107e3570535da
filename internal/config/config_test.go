package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/invoice-ledger/internal/canonical"
	"github.com/ginjaninja78/invoice-ledger/internal/config"
	"github.com/ginjaninja78/invoice-ledger/internal/locale"
	"github.com/ginjaninja78/invoice-ledger/internal/overrides"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadMainConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadMainConfig("")
	require.NoError(t, err)

	assert.Equal(t, "./input", cfg.InputDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, "{kind}_{timestamp}_{uuid}", cfg.OutputNameFormat)
	assert.Equal(t, "Thuế GTGT", cfg.Labels.VATRow)
	assert.Equal(t, 1, cfg.Word.FirstDataRow)
	assert.Equal(t, 4, cfg.Word.TrailingRows)

	opts := cfg.BatchOptions()
	assert.Equal(t, canonical.DefaultOptions().SellerLabel, opts.SellerLabel)
}

func TestLoadMainConfig_Sections(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
input_dir: `+filepath.Join(dir, "in")+`
output_dir: `+filepath.Join(dir, "out")+`
logs_dir: `+filepath.Join(dir, "logs")+`
max_concurrency: 2
self:
  name: CÔNG TY CỔ PHẦN ABC
  tax_code: "0101234567"
accounts:
  debit: "1561"
  credit: "331"
docx:
  convention: comma
  columns: [1, 3, 4, 5, 6, 7]
spreadsheet:
  header_labels:
    item_name: ["diễn giải hàng hóa"]
  totals:
    - {field: converted_amount, offset: 1, value: grand_converted}
word:
  columns: {ordinal: 0, item_name: 1, original_amount: 5}
  placeholders:
    - {token: "01/01/2000", fact: invoice_date}
`)
	cfg, err := config.LoadMainConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Finalize())

	assert.DirExists(t, filepath.Join(dir, "out"))
	assert.DirExists(t, filepath.Join(dir, "logs"))
	assert.Equal(t, "0101234567", cfg.SelfParty().TaxCode)
	assert.Equal(t, "1561", cfg.BatchOptions().Debit)

	docx, err := cfg.DOCXOptions()
	require.NoError(t, err)
	assert.Equal(t, locale.CommaGrouping, docx.Convention)
	assert.Equal(t, overrides.Mapping{0, 2, 3, 4, 5, 6}, docx.Columns)

	sheet, err := cfg.SpreadsheetOptions()
	require.NoError(t, err)
	assert.Equal(t, []string{"diễn giải hàng hóa"}, sheet.HeaderLabels[canonical.FieldItemName])
	require.Len(t, sheet.Totals, 1)

	word, err := cfg.WordOptions()
	require.NoError(t, err)
	assert.Equal(t, 5, word.Columns[canonical.FieldOriginalAmount])
}

func TestFinalize_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad convention", "pdf:\n  convention: semicolon\n"},
		{"short docx columns", "docx:\n  columns: [1, 2]\n"},
		{"zero-based docx column", "docx:\n  columns: [0, 1, 2, 3, 4, 5]\n"},
		{"unknown header field", "spreadsheet:\n  header_labels:\n    colour: [x]\n"},
		{"unknown totals value", "spreadsheet:\n  totals:\n    - {field: original_amount, offset: 1, value: median}\n"},
		{"unknown placeholder fact", "word:\n  placeholders:\n    - {token: X, fact: mood}\n"},
		{"negative concurrency", "max_concurrency: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			body := tt.body + "input_dir: " + dir + "\noutput_dir: " + dir + "\nlogs_dir: " + dir + "\n"
			cfg, err := config.LoadMainConfig(writeConfig(t, body))
			require.NoError(t, err)
			assert.Error(t, cfg.Finalize())
		})
	}
}

func TestLoadMainConfig_Errors(t *testing.T) {
	_, err := config.LoadMainConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = config.LoadMainConfig(writeConfig(t, "input_dir: [unterminated"))
	assert.Error(t, err)
}

func TestApplyOverrides(t *testing.T) {
	cfg, err := config.LoadMainConfig("")
	require.NoError(t, err)

	v := viper.New()
	v.Set("self.name", "CÔNG TY XYZ")
	v.Set("self.tax_code", "0309999999")
	v.Set("max_concurrency", "8")
	v.Set("proof.enabled", true)
	v.Set("archive_timestamp_subdirs", true)
	config.ApplyOverrides(cfg, v)

	assert.Equal(t, "CÔNG TY XYZ", cfg.Self.Name)
	assert.Equal(t, "0309999999", cfg.Self.TaxCode)
	assert.Equal(t, 8, cfg.MaxConcurrency)
	assert.True(t, cfg.Proof.Enabled)
	assert.True(t, cfg.ArchiveTimestampSubdirs)
	assert.False(t, cfg.ArchiveInputs)
	assert.Equal(t, "./input", cfg.InputDir, "unset keys keep their value")
}
