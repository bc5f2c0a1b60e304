package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"regbot/internal/adapter/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question endpoint over HTTP",
	Long: `Serve POST /query and GET /healthz.

The embedder, index and model clients are created once at startup and shared
by all requests. SIGINT or SIGTERM shuts the server down gracefully.

Examples:
  regbot serve
  regbot serve --addr :9000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(ctx, cfg, appLog)
	if err != nil {
		return err
	}
	defer p.Close()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	appLog.Info("starting server",
		"addr", addr,
		"top_k", cfg.Retrieve.TopK,
		"threshold", cfg.Retrieve.SimilarityThreshold,
		"generation", cfg.Generation.Enabled,
		"index_available", p.indexAvailable())

	server := httpapi.NewServer(p.queryUseCase(cfg), appLog, httpapi.WithIndexAvailable(p.indexAvailable()))
	if err := server.ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
