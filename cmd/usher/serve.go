package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/usherlabs/custody/internal/api"
	"github.com/usherlabs/custody/internal/auth"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the DID-authenticated HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			server := api.NewServer(api.Config{
				Addr:        addr,
				TokenConfig: &auth.TokenConfig{Issuer: cfg.Token.Issuer, ExpiryHours: cfg.Token.ExpiryHours},
				Logging:     true,
			})

			errCh := make(chan error, 1)
			go func() {
				if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case sig := <-sigCh:
				fmt.Printf("\nReceived signal %v, shutting down...\n", sig)
			case err := <-errCh:
				return fmt.Errorf("server error: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			fmt.Println("Server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Server address (default from config)")
	return cmd
}
