package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var verifyJSON bool

var verifyCmd = &cobra.Command{
	Use:   "verify <file.xml>",
	Short: "Verify the signature of a signed TEIF document",
	Long: `Verify the XAdES signature embedded in a TEIF document.

Checks:
  - Document digest (tamper detection)
  - Signed-properties digest
  - RSA signature over SignedInfo
  - Signature policy identifier against the national policy
  - Certificate chain, when --ca-file is given

Examples:
  elfatoora verify invoice.xml
  elfatoora verify invoice.xml --ca-file tuntrust-roots.pem
  elfatoora verify invoice.xml --json`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "Emit the full verification result as JSON")
}

func runVerify(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	cfg := loadConfig()
	cfg.Certificate.Required = false
	pipe, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer pipe.Close()

	result, verr := pipe.VerifySignature(data)
	if result == nil {
		return verr
	}

	if verifyJSON {
		out := json.NewEncoder(os.Stdout)
		out.SetIndent("", "  ")
		return out.Encode(result)
	}

	if result.Valid {
		fmt.Println("signature: VALID")
	} else {
		fmt.Printf("signature: INVALID (%s)\n", result.Reason())
	}
	if result.Signer != nil {
		fmt.Printf("signer:    %s (serial %s, issued by %s)\n",
			result.Signer.Name, result.Signer.SerialNumber, result.Signer.Issuer)
	}
	if result.SignedAt != nil {
		fmt.Printf("signed at: %s\n", result.SignedAt.Format("2006-01-02 15:04:05 MST"))
	}
	for _, w := range result.Warnings {
		fmt.Printf("warning:   %s\n", w)
	}
	if !result.Valid {
		return fmt.Errorf("verification failed")
	}
	return nil
}
