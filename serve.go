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

	"github.com/Chative-core-poc-v1/commerce-bot/internal/api"
	logx "github.com/Chative-core-poc-v1/commerce-bot/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var (
		addr     string
		inMemory bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the turn API over HTTP",
		Long:  `Starts the HTTP API. Conversations are kept in Redis unless --memory is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if inMemory && !cfg.Environment.AllowsInMemoryState() {
				return fmt.Errorf("--memory is not allowed in %s", cfg.Environment)
			}
			if cmd.Flags().Changed("addr") {
				cfg.HTTPAddr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := buildRuntime(ctx, cfg, !inMemory)
			if err != nil {
				return err
			}
			defer rt.Close(context.Background())

			var ready api.ReadyFunc
			if rt.redis != nil {
				ready = func(ctx context.Context) error { return rt.redis.Ping(ctx).Err() }
			}

			srv := &http.Server{
				Addr:              cfg.HTTPAddr,
				Handler:           api.NewHandler(rt.runner, ready).Router(),
				ReadHeaderTimeout: 10 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			serverErrors := make(chan error, 1)
			go func() {
				logx.Info().Str("addr", srv.Addr).Msg("Server listening")
				serverErrors <- srv.ListenAndServe()
			}()

			select {
			case err := <-serverErrors:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
				logx.Info().Msg("Shutting down server")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logx.Error().Err(err).Msg("Graceful shutdown did not complete")
				return srv.Close()
			}
			logx.Info().Msg("Server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address (overrides HTTP_ADDR)")
	cmd.Flags().BoolVar(&inMemory, "memory", false, "Keep conversations in memory instead of Redis")
	return cmd
}
