package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tnvoice/elfatoora/internal/model"
	"github.com/tnvoice/elfatoora/internal/pipeline"
	"github.com/tnvoice/elfatoora/internal/server"
)

var (
	generateUnsigned bool
	generateOutput   string
)

var generateCmd = &cobra.Command{
	Use:   "generate <invoice.json>",
	Short: "Generate a TEIF document from invoice data",
	Long: `Generate a TEIF XML document from an invoice described in JSON.

The invoice is validated, totals are computed, and the document is
signed with the configured keystore unless --unsigned is given.

Examples:
  # Signed output to a file
  elfatoora generate invoice.json --cert keystore.p12 --cert-password secret -o invoice.xml

  # Unsigned output to stdout
  elfatoora generate invoice.json --unsigned`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().BoolVar(&generateUnsigned, "unsigned", false, "Generate without signing")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Output file (default: stdout)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	inv, err := readInvoiceJSON(args[0])
	if err != nil {
		return err
	}

	cfg := loadConfig()
	if generateUnsigned {
		cfg.Certificate.Required = false
	}
	pipe, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer pipe.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var result *pipeline.Result
	if generateUnsigned {
		result, err = pipe.GenerateUnsigned(ctx, inv)
	} else {
		result, err = pipe.Generate(ctx, inv)
	}
	if err != nil {
		return err
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	if generateOutput == "" {
		fmt.Println(string(result.XML))
		return nil
	}
	if err := os.WriteFile(generateOutput, result.XML, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", generateOutput, err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d bytes, signed=%v)\n", generateOutput, len(result.XML), result.Signed)
	return nil
}

// readInvoiceJSON loads an invoice in the API request shape from a
// file, or stdin when the path is "-".
func readInvoiceJSON(path string) (*model.Invoice, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read invoice data: %w", err)
	}

	var req server.InvoiceRequest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid invoice JSON: %w", err)
	}
	return req.ToModel()
}
