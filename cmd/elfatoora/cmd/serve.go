package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tnvoice/elfatoora/internal/server"
)

var (
	serverAddr   string
	serverDebug  bool
	readTimeout  time.Duration
	writeTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server for invoice processing.

The API provides endpoints for:
  - POST /api/v1/generate          - Generate a signed TEIF document
  - POST /api/v1/generate/unsigned - Generate without signing
  - POST /api/v1/validate          - Validate invoice data
  - POST /api/v1/validate/xml      - Validate a TEIF document against the schema
  - POST /api/v1/verify            - Verify a signed document
  - POST /api/v1/parse             - Parse a TEIF document
  - GET  /api/v1/certificate       - Signing certificate details
  - GET  /health                   - Health check

Examples:
  # Start server on the default port
  elfatoora serve --cert keystore.p12 --cert-password secret

  # Unsigned-only server on a custom port
  elfatoora serve --address :9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", ":8080", "Server listen address")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 30*time.Second, "HTTP read timeout")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 60*time.Second, "HTTP write timeout")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	pipe, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	srvConfig := &server.Config{
		Address:      serverAddr,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		Debug:        serverDebug,
	}
	srv := server.NewServer(srvConfig, pipe, logger())

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		fmt.Println("\nShutting down server...")
		pipe.Close()
		os.Exit(0)
	}()

	fmt.Printf("Starting server on %s (signing=%v)\n", serverAddr, pipe.CanSign())
	return srv.Run()
}
