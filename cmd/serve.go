package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"pcaptree/internal/capture"
	"pcaptree/internal/config"
	"pcaptree/internal/handlers"
	"pcaptree/internal/log"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(current func() *config.Config) *cobra.Command {
	c := &cobra.Command{
		Use:   "serve <path-to-pcap-file>",
		Short: "Stream the rendered capture over HTTP and websocket",
		Long: `Serve the rendered capture to remote clients.

Endpoints:
  GET  /dump        the rendered text stream as text/plain
  GET  /ws          the same stream, one websocket text message per line
  POST /api/upload  render an uploaded capture (multipart field "file")`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := current()

			// fail before listening when the file cannot be read
			s, err := capture.Open(args[0])
			if err != nil {
				return err
			}
			s.Close()

			ln, err := net.Listen("tcp", cfg.Serve.Listen)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", cfg.Serve.Listen, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pcaptree listening on http://%s\n", ln.Addr())
			return runServe(cmd.Context(), cfg, args[0], ln)
		},
	}
	c.Flags().String("listen", ":8080", "HTTP listen address")
	return c
}

// runServe serves until ctx is done, then shuts the server down.
func runServe(ctx context.Context, cfg *config.Config, path string, ln net.Listener) error {
	// remote clients rarely sit on a terminal, so auto means no color here
	eng := newEngine(cfg, cfg.Color == config.ColorAlways)

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, eng, path)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	log.GetLogger().WithField("addr", ln.Addr().String()).Info("serving capture")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
