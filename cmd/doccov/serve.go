package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"doccov/internal/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the doccov HTTP API. It exposes spec diffing, example execution and
document validation:

  GET  /health
  POST /diff           {base, head, docs?}
  POST /examples/run   {packageName, packageVersion?, code}
  POST /validate       {kind, document}

Examples run in the container backend unless server.exampleBackend says
otherwise; the local backend also needs server.allowLocalExamples.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (default from config, localhost:8788)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	eng, logger, err := setup(".")
	if err != nil {
		return err
	}

	cfg := eng.Config().Server
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}
	server := api.NewServer(eng, cfg, logger)

	ctx, cancel := newContext()
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting doccov HTTP API server", "addr", cfg.Addr)
		fmt.Fprintf(cmd.ErrOrStderr(), "doccov HTTP API listening on http://%s\n", cfg.Addr)
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
	case <-ctx.Done():
		logger.Info("Received shutdown signal")

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during shutdown", "error", err)
			return err
		}
		logger.Info("Server stopped gracefully")
	}
	return nil
}
