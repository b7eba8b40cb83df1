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

	"churrasco/internal/config"
	"churrasco/internal/imageurl"
	"churrasco/internal/logger"
	"churrasco/internal/security"
	"churrasco/web/handler"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var selfSignedTLS bool

	cmd := &cobra.Command{
		Use:          "churrasco-web",
		Short:        "Serve the churrasco page",
		Long:         `Serves a page showing the churrasco image. Locally the image comes from the static directory; on Cloud Run (K_SERVICE set) it is a short-lived signed Cloud Storage URL.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			logger.Init(logger.Options{
				Debug: cfg.Debug,
				JSON:  cfg.Mode == config.Managed,
				File:  cfg.LogFile,
			})
			defer logger.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, cfg, selfSignedTLS); err != nil {
				logger.Error().Err(err).Msg("web server stopped")
				return err
			}
			return nil
		},
	}

	config.BindFlags(cmd.Flags())
	cmd.Flags().BoolVar(&selfSignedTLS, "self-signed-tls", false, "serve HTTPS with a throwaway certificate (local mode only)")
	return cmd
}

func newServer(cfg *config.Config) (*http.Server, error) {
	h, err := handler.New(imageurl.New(cfg), cfg.ImageName, logger.Log)
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h.Router(cfg.StaticDir),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}, nil
}

func run(ctx context.Context, cfg *config.Config, selfSignedTLS bool) error {
	if err := cfg.Validate(); err != nil {
		logger.Warn().Err(err).Msg("page requests will fail until this is configured")
	}

	srv, err := newServer(cfg)
	if err != nil {
		return err
	}

	if selfSignedTLS {
		if cfg.Mode == config.Managed {
			logger.Warn().Msg("ignoring --self-signed-tls: TLS is terminated by the platform")
		} else {
			tlsConfig, err := security.SelfSignedTLSConfig()
			if err != nil {
				return fmt.Errorf("generating TLS config: %w", err)
			}
			srv.TLSConfig = tlsConfig
		}
	}

	errCh := make(chan error, 1)
	go func() {
		if srv.TLSConfig != nil {
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	logger.Info().
		Str("addr", srv.Addr).
		Str("mode", cfg.Mode.String()).
		Str("image", cfg.ImageName).
		Bool("tls", srv.TLSConfig != nil).
		Msg("web server started")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
