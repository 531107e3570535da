// =============================================================================
// Invoice Ledger - Extract Command
// =============================================================================
//
// This file defines the 'extract' command, which runs one extractor on one
// file and prints the document as YAML: header, parties, items and every
// warning with its confidence. Use it to check a new issuer's layout before
// adding its invoices to a batch.
//
// COMMAND USAGE:
//   ledger extract <file>
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Print what one invoice yields, as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("failed to load main config: %w", err)
		}
		conv, err := newConverter(cfg, newLogger(cfg))
		if err != nil {
			return err
		}

		doc, err := conv.Inspect(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
		return enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
