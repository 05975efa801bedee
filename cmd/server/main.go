package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ecomsupport/shopchat-server/internal/app"
	"github.com/ecomsupport/shopchat-server/internal/auth"
	"github.com/ecomsupport/shopchat-server/internal/config"
	"github.com/ecomsupport/shopchat-server/internal/log"
	"github.com/ecomsupport/shopchat-server/internal/store"
	"github.com/ecomsupport/shopchat-server/internal/store/sqlite"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "shopchat-server",
		Short: "Multi-tenant storefront chat server",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	root.AddCommand(serveCmd(), provisionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			bootLogger := log.New("info")
			cfg, cfgPath, err := config.Load(bootLogger, configPath)
			if err != nil {
				return err
			}

			logger := log.New(cfg.LogLevel)
			logger.Info().Str("config", cfgPath).Str("addr", cfg.Addr).Msg("starting shopchat server")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(&cfg, logger)
			if err != nil {
				return err
			}

			if err := application.Run(ctx); err != nil {
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
}

func provisionCmd() *cobra.Command {
	var (
		name        string
		password    string
		mode        string
		secretKey   string
		publicToken string
	)

	cmd := &cobra.Command{
		Use:   "provision <tenant-id>",
		Short: "Create or update a tenant record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID := args[0]
			if password == "" {
				return fmt.Errorf("--password is required")
			}
			verifyMode := store.VerifyMode(mode)
			if verifyMode != store.VerifyToken && verifyMode != store.VerifyHMAC {
				return fmt.Errorf("mode must be %q or %q", store.VerifyToken, store.VerifyHMAC)
			}

			bootLogger := log.New("info")
			cfg, _, err := config.Load(bootLogger, configPath)
			if err != nil {
				return err
			}

			st, err := sqlite.New(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("init store: %w", err)
			}
			defer st.Close()

			hash, err := auth.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}

			if name == "" {
				name = tenantID
			}
			tenant := &store.Tenant{
				ID:           tenantID,
				Name:         name,
				PasswordHash: hash,
				Mode:         verifyMode,
				SecretKey:    secretKey,
				PublicToken:  publicToken,
			}
			if err := st.UpsertTenant(cmd.Context(), tenant); err != nil {
				return fmt.Errorf("upsert tenant: %w", err)
			}

			bootLogger.Info().Str("tenant", tenantID).Str("mode", mode).Msg("tenant provisioned")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the tenant id)")
	cmd.Flags().StringVar(&password, "password", "", "staff console password")
	cmd.Flags().StringVar(&mode, "mode", string(store.VerifyToken), "identity verification mode: token or hmac")
	cmd.Flags().StringVar(&secretKey, "secret-key", "", "HMAC secret key (hmac mode)")
	cmd.Flags().StringVar(&publicToken, "public-token", "", "widget token (token mode)")

	return cmd
}
