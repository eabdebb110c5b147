package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/todo-chat/internal/transport"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP chat API server",
	Long: `Start the HTTP server exposing the chat pipeline.

Endpoints:
  POST /api/{user_id}/chat           send a chat message
  GET  /api/{user_id}/conversations  list the user's conversations
  GET  /health                       health check`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Pipeline == nil {
			return fmt.Errorf("pipeline not initialized")
		}

		addr := serveAddr
		if addr == "" && Config != nil {
			addr = Config.ListenAddr
		}
		if addr == "" {
			addr = ":8080"
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		srv := transport.NewServer(addr, Pipeline, ConvStore)
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("running HTTP server: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (defaults to config listen_addr)")
	rootCmd.AddCommand(serveCmd)
}
