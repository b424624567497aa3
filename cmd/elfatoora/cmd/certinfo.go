package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var certinfoJSON bool

var certinfoCmd = &cobra.Command{
	Use:   "certinfo",
	Short: "Show the configured signing certificate",
	Long: `Show subject, issuer and validity of the signing certificate in
the configured PKCS#12 keystore. The private key is loaded to prove
the keystore opens, but is never printed.

Examples:
  elfatoora certinfo --cert keystore.p12 --cert-password secret
  elfatoora certinfo --json`,
	RunE: runCertinfo,
}

func init() {
	rootCmd.AddCommand(certinfoCmd)

	certinfoCmd.Flags().BoolVar(&certinfoJSON, "json", false, "Emit certificate details as JSON")
}

func runCertinfo(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if cfg.Certificate.Path == "" {
		return fmt.Errorf("no keystore configured; use --cert or ELFATOORA_KEYSTORE_PATH")
	}
	cfg.Certificate.Required = true

	pipe, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer pipe.Close()

	info, err := pipe.CertificateInfo()
	if err != nil {
		return err
	}

	if certinfoJSON {
		out := json.NewEncoder(os.Stdout)
		out.SetIndent("", "  ")
		return out.Encode(info)
	}

	fmt.Printf("subject:    %s\n", info.Subject)
	fmt.Printf("issuer:     %s\n", info.Issuer)
	fmt.Printf("serial:     %s\n", info.SerialNumber)
	fmt.Printf("not before: %s\n", info.NotBefore.Format("2006-01-02"))
	fmt.Printf("not after:  %s\n", info.NotAfter.Format("2006-01-02"))
	if info.Alias != "" {
		fmt.Printf("alias:      %s\n", info.Alias)
	}
	return nil
}
