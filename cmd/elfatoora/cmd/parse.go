package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tnvoice/elfatoora/internal/server"
	"github.com/tnvoice/elfatoora/internal/teif"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file.xml>",
	Short: "Parse a TEIF document back into invoice data",
	Long: `Parse a TEIF XML document and print the reconstructed invoice
as JSON in the same shape the generate command accepts. Signed and
unsigned documents both parse; the signature element is ignored.

Examples:
  elfatoora parse invoice.xml
  elfatoora parse invoice.xml > invoice.json`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	inv, err := teif.NewParser().ParseBytes(ctx, data)
	if err != nil {
		return err
	}

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	return out.Encode(server.NewInvoiceResponse(inv))
}
