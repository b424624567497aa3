package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tnvoice/elfatoora/internal/config"
	"github.com/tnvoice/elfatoora/internal/pipeline"
)

var (
	version = "1.0.0"

	// Global flags
	verbose      bool
	certPath     string
	certPassword string
	certAlias    string
	caFile       string
	noSchema     bool
)

var rootCmd = &cobra.Command{
	Use:   "elfatoora",
	Short: "Generate, sign and verify Tunisian TEIF electronic invoices",
	Long: `El Fatoora is a CLI tool for the Tunisian electronic invoice format (TEIF).

Supports:
  - Generating TEIF XML from invoice data (JSON)
  - XAdES signing with a PKCS#12 keystore
  - Schema validation of unsigned and signed documents
  - Signature verification with policy and trust-chain checks
  - Parsing TEIF XML back into invoice data

Examples:
  # Generate a signed invoice
  elfatoora generate invoice.json --cert keystore.p12 --cert-password secret

  # Generate without signing
  elfatoora generate invoice.json --unsigned

  # Verify a signed document
  elfatoora verify invoice.xml

  # Parse a TEIF document back to JSON
  elfatoora parse invoice.xml`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&certPath, "cert", "", "PKCS#12 keystore path (env: ELFATOORA_KEYSTORE_PATH)")
	rootCmd.PersistentFlags().StringVar(&certPassword, "cert-password", "", "Keystore password (env: ELFATOORA_KEYSTORE_PASSWORD)")
	rootCmd.PersistentFlags().StringVar(&certAlias, "cert-alias", "", "Keystore entry alias (env: ELFATOORA_KEY_ALIAS)")
	rootCmd.PersistentFlags().StringVar(&caFile, "ca-file", "", "Trusted CA certificates file, PEM (env: ELFATOORA_TRUSTED_CA_FILE)")
	rootCmd.PersistentFlags().BoolVar(&noSchema, "no-schema", false, "Skip schema validation of generated documents")

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// A .env file is optional; missing files are not an error.
	_ = godotenv.Load()
}

// logger builds the CLI logger. Verbose enables debug-level console
// output; otherwise only warnings reach the terminal.
func logger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// loadConfig merges environment configuration with command-line flags.
func loadConfig() config.Config {
	cfg := config.FromEnv()
	if certPath != "" {
		cfg.Certificate.Path = certPath
	}
	if certPassword != "" {
		cfg.Certificate.Password = certPassword
	}
	if certAlias != "" {
		cfg.Certificate.Alias = certAlias
	}
	if caFile != "" {
		cfg.TrustedCAFile = caFile
	}
	if noSchema {
		cfg.Schema.ValidationEnabled = false
	}
	return cfg
}

// buildPipeline constructs the processing pipeline used by all commands.
func buildPipeline(cfg config.Config) (*pipeline.Pipeline, error) {
	return pipeline.New(&cfg, pipeline.WithLogger(logger()))
}
