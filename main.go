// =============================================================================
// Invoice Ledger - Main Entry Point
// =============================================================================
//
// USAGE:
//   ledger process          - Process all invoices in the input directory
//   ledger extract <file>   - Print the extraction of one invoice
//   ledger version          - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : extractors, normaliser, template writers, batch pipeline
//   - pkg/       : logging and file management
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/invoice-ledger/cmd"
)

func main() {
	cmd.Execute()
}
