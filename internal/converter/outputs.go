package converter

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/invoice-ledger/internal/docxwriter"
	"github.com/ginjaninja78/invoice-ledger/internal/pdfreport"
	"github.com/ginjaninja78/invoice-ledger/internal/xlsxwriter"
)

// =============================================================================
// OUTPUT RENDERING
// =============================================================================

// Output kinds, used in output file names.
const (
	KindLedger  = "ledger"
	KindInvoice = "invoice"
	KindProof   = "proof"
)

// Artifact is one rendered output file.
type Artifact struct {
	Kind string

	// Original is the input base name without extension for per-document
	// artifacts, empty otherwise.
	Original string

	// Ext includes the dot.
	Ext  string
	Data []byte
}

// Targets selects the outputs of a run. A nil writer skips its output.
type Targets struct {
	Ledger         *xlsxwriter.Writer
	LedgerTemplate []byte

	Word         *docxwriter.Writer
	WordTemplate []byte

	// Proof is rendered when non-nil.
	Proof *pdfreport.Options
}

// Render produces the artifacts of a run.
//
// RETURNS:
//   - The artifacts in the order ledger, invoices (input order), proof.
//   - An error if a writer rejects its template. Errors of kind
//     types.ErrStructural abort the whole write: nothing is returned.
func (c *Converter) Render(run *Run, t Targets) ([]Artifact, error) {
	var out []Artifact

	if t.Ledger != nil {
		data, rep, err := t.Ledger.Write(t.LedgerTemplate, run.Rows)
		if err != nil {
			return nil, fmt.Errorf("failed to write ledger: %w", err)
		}
		c.log.Info().Str("sheet", rep.Sheet).Int("template_rows", rep.Layout.BlockRows()).Int("rows", rep.Rows).
			Str("grand", rep.Totals.GrandConverted.String()).Msg("Ledger written")
		out = append(out, Artifact{Kind: KindLedger, Ext: ".xlsx", Data: data})
	}

	if t.Word != nil {
		for _, res := range run.Succeeded() {
			data, rep, err := t.Word.Write(t.WordTemplate, res.Rows)
			if err != nil {
				return nil, fmt.Errorf("failed to write invoice for %s: %w", filepath.Base(res.FilePath), err)
			}
			c.docLogger(&res).Debug().Int("items", rep.Items).Int("cloned", rep.Cloned).
				Int("placeholders", rep.TextBoxReplacements+rep.RunReplacements).Msg("Invoice written")
			out = append(out, Artifact{Kind: KindInvoice, Original: baseName(res.FilePath), Ext: ".docx", Data: data})
		}
	}

	if t.Proof != nil {
		opts := *t.Proof
		opts.Documents = run.Documents
		data, err := pdfreport.Render(run.Rows, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, Artifact{Kind: KindProof, Ext: ".pdf", Data: data})
	}

	return out, nil
}

func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
