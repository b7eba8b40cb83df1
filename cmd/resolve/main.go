package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"churrasco/internal/config"
	"churrasco/internal/credentials"
	"churrasco/internal/imageurl"
	"churrasco/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var accessToken string

	cmd := &cobra.Command{
		Use:   "churrasco-resolve [image]",
		Short: "Print the URL the page would use for an image",
		Long: `Resolves an image URL once with the same configuration as the web server.
In managed mode (K_SERVICE set) this issues a real signed URL, which is a quick
way to check that the service account may sign for the bucket.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			logger.Init(logger.Options{Debug: cfg.Debug, File: cfg.LogFile})
			defer logger.Close()

			name := cfg.ImageName
			if len(args) == 1 {
				name = args[0]
			}

			resolver := imageurl.New(cfg)
			if signed, ok := resolver.(*imageurl.Signed); ok && accessToken != "" {
				signed.Credentials = credentials.Static{AccessToken: accessToken}
			}

			logger.Debug().Str("mode", cfg.Mode.String()).Str("image", name).Msg("resolving")
			u, err := resolver.Resolve(cmd.Context(), name)
			if err != nil {
				logger.Error().Err(err).Str("kind", imageurl.Kind(err)).Msg("resolve failed")
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}

	config.BindFlags(cmd.Flags())
	cmd.Flags().StringVar(&accessToken, "access-token", "", "use this access token instead of ambient credentials")
	return cmd
}
