package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tnvoice/elfatoora/internal/schema"
)

var validateVariant string

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate invoice data or a TEIF document",
	Long: `Validate an invoice before generation, or a TEIF XML document
against the schema.

JSON input runs business validation (tax identifiers, rates, dates,
line numbering). XML input runs schema validation; use --variant
signed for documents carrying a signature.

Examples:
  elfatoora validate invoice.json
  elfatoora validate invoice.xml
  elfatoora validate invoice.xml --variant signed`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateVariant, "variant", "unsigned", "Schema variant for XML input (unsigned, signed)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := args[0]

	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return validateJSON(path)
	}
	return validateXML(path)
}

func validateJSON(path string) error {
	inv, err := readInvoiceJSON(path)
	if err != nil {
		return err
	}

	verrs := inv.Validate()
	if !verrs.HasErrors() {
		fmt.Println("valid")
		return nil
	}
	for _, v := range verrs.Violations {
		fmt.Printf("%s: [%s] %s\n", v.Field, v.Code, v.Message)
	}
	return fmt.Errorf("%d violation(s) found", len(verrs.Violations))
}

func validateXML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	variant := schema.Unsigned
	if validateVariant == "signed" {
		variant = schema.Signed
	}

	cfg := loadConfig()
	cfg.Certificate.Required = false
	suite, err := schema.Load(cfg.Schema.UnsignedXSDPath, cfg.Schema.SignedXSDPath)
	if err != nil {
		return err
	}

	violations, err := suite.Validate(data, variant)
	if err != nil {
		return err
	}
	if len(violations) == 0 {
		fmt.Println("valid")
		return nil
	}
	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	if err := out.Encode(violations); err != nil {
		return err
	}
	return fmt.Errorf("%d violation(s) found", len(violations))
}
