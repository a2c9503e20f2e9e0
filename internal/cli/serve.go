package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/avashisht/veridoc/internal/model"
	"github.com/avashisht/veridoc/internal/pipeline"
	"github.com/avashisht/veridoc/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var listenAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the verification HTTP server",
	Long: `Serve starts an HTTP server that accepts certificate uploads on
POST /v1/verify and returns the full authenticity report as JSON.

Example:
  veridoc serve
  veridoc serve --listen :9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (default from config, :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	p := pipeline.NewPipeline(cfg)
	p.SetVerbose(verbose)
	defer p.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Listening on %s\n", cfg.Server.ListenAddr)
	return server.New(cfg.Server, p).Run(ctx)
}
