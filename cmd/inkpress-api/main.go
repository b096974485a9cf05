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

	"github.com/inkpress/inkpress/backend/internal/articles"
	"github.com/inkpress/inkpress/backend/internal/auth"
	"github.com/inkpress/inkpress/backend/internal/config"
	"github.com/inkpress/inkpress/backend/internal/database"
	"github.com/inkpress/inkpress/backend/internal/kvstore"
	"github.com/inkpress/inkpress/backend/internal/logging"
	"github.com/inkpress/inkpress/backend/internal/server"
	"github.com/inkpress/inkpress/backend/internal/users"
)

const (
	tokenIssuer   = "inkpress-auth"
	tokenAudience = "inkpress-api"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "inkpress-api",
		Short: "Inkpress blogging backend service",
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
	cmd.PersistentFlags().String("redis-address", defaults.GetString("redis.address"), "Redis address (empty uses the in-memory store)")
	cmd.PersistentFlags().Int("access-ttl-seconds", defaults.GetInt("token.access_ttl_seconds"), "Access token TTL in seconds")
	cmd.PersistentFlags().Int("refresh-ttl-seconds", defaults.GetInt("token.refresh_ttl_seconds"), "Refresh token TTL in seconds")
	cmd.PersistentFlags().Int("view-debounce-seconds", defaults.GetInt("view.debounce_ttl_seconds"), "Article view debounce window in seconds")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Access token signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "redis.address", "redis-address")
	bindFlag(cmd, "token.access_ttl_seconds", "access-ttl-seconds")
	bindFlag(cmd, "token.refresh_ttl_seconds", "refresh-ttl-seconds")
	bindFlag(cmd, "view.debounce_ttl_seconds", "view-debounce-seconds")
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

	store, err := newKVStore(ctx, appConfig, logger)
	if err != nil {
		return err
	}

	userService, err := users.NewService(users.ServiceConfig{
		Database:           db,
		IDProvider:         users.NewUUIDProvider(),
		PasswordIterations: appConfig.PasswordIterations,
		Logger:             logger,
	})
	if err != nil {
		return err
	}

	articleService, err := articles.NewService(articles.ServiceConfig{
		Database:        db,
		KVStore:         store,
		IDProvider:      articles.NewUUIDProvider(),
		ViewDebounceTTL: appConfig.ViewDebounceTTL,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	tokenService, err := auth.NewTokenService(auth.TokenServiceConfig{
		SigningSecret:   []byte(appConfig.SigningSecret),
		Issuer:          tokenIssuer,
		Audience:        tokenAudience,
		AccessTokenTTL:  appConfig.AccessTokenTTL,
		RefreshTokenTTL: appConfig.RefreshTokenTTL,
		KVStore:         store,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		TokenManager:   tokenService,
		UserService:    userService,
		ArticleService: articleService,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

// newKVStore connects to Redis when an address is configured and falls back
// to the process-local store otherwise. The fallback loses refresh tokens
// and view markers on restart, which is acceptable for development only.
func newKVStore(ctx context.Context, appConfig config.AppConfig, logger *zap.Logger) (kvstore.Store, error) {
	if appConfig.RedisAddress == "" {
		logger.Warn("redis address not configured, using in-memory key-value store")
		return kvstore.NewMemoryStore(), nil
	}
	store, err := kvstore.NewRedisStore(ctx, appConfig.RedisAddress, appConfig.RedisPassword, appConfig.RedisDB)
	if err != nil {
		return nil, err
	}
	logger.Info("redis key-value store connected", zap.String("address", appConfig.RedisAddress))
	return store, nil
}
