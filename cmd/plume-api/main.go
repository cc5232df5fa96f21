package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/plumeworks/plume/backend/internal/auth"
	"github.com/plumeworks/plume/backend/internal/config"
	"github.com/plumeworks/plume/backend/internal/database"
	"github.com/plumeworks/plume/backend/internal/gateway"
	"github.com/plumeworks/plume/backend/internal/identity"
	"github.com/plumeworks/plume/backend/internal/logging"
	"github.com/plumeworks/plume/backend/internal/messaging"
	"github.com/plumeworks/plume/backend/internal/overrides"
	"github.com/plumeworks/plume/backend/internal/realtime"
	"github.com/plumeworks/plume/backend/internal/seed"
	"github.com/plumeworks/plume/backend/internal/server"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "plume-api",
		Short: "Plume social backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("overrides-path", defaults.GetString("overrides.path"), "Local override store path")
	cmd.PersistentFlags().String("seed-path", defaults.GetString("seed.path"), "External seed dataset path (optional)")
	cmd.PersistentFlags().Bool("seed-watch", defaults.GetBool("seed.watch"), "Reload the seed dataset on file changes")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("token.ttl_minutes"), "Session token TTL in minutes")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Session signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "overrides.path", "overrides-path")
	bindFlag(cmd, "seed.path", "seed-path")
	bindFlag(cmd, "seed.watch", "seed-watch")
	bindFlag(cmd, "token.ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	overrideStore, err := overrides.Open(appConfig.OverridesPath, logger)
	if err != nil {
		return err
	}
	defer overrideStore.Close() //nolint:errcheck

	catalog, err := seed.NewCatalog(logger)
	if err != nil {
		return err
	}
	if appConfig.SeedPath != "" {
		if err := catalog.LoadFile(appConfig.SeedPath); err != nil {
			return err
		}
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if appConfig.SeedWatch {
		go func() {
			if err := catalog.Watch(signalCtx, appConfig.SeedPath); err != nil {
				logger.Warn("seed dataset watcher stopped", zap.Error(err))
			}
		}()
	}

	tokenManager := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        "plume-auth",
		Audience:      "plume-api",
		TokenTTL:      time.Duration(appConfig.TokenTTLMinutes) * time.Minute,
	})

	gatewayService, err := gateway.NewService(gateway.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: gateway.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	identityService, err := identity.NewService(identity.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: gateway.NewUUIDProvider(),
	})
	if err != nil {
		return err
	}

	dispatcher := realtime.NewDispatcher()

	messagingService, err := messaging.NewService(messaging.ServiceConfig{
		Gateway:   gatewayService,
		Publisher: dispatcher,
		Seeds:     catalog,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Tokens:     tokenManager,
		Identity:   identityService,
		Gateway:    gatewayService,
		Messaging:  messagingService,
		Overrides:  overrideStore,
		Seeds:      catalog,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
