// Command ledgerd runs the in-memory development ledger.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jmerrifield20/sequence-sdk-go/internal/chain"
	"github.com/jmerrifield20/sequence-sdk-go/internal/ledgerd"
)

func main() {
	debug := flag.Bool("debug", false, "enable development logging")
	flag.Parse()

	logger, _ := zap.NewProduction()
	if *debug {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("ledgerd exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// ── Configuration ────────────────────────────────────────────────────────
	viper.SetConfigName("ledgerd")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("ledger.port", 1999)
	viper.SetDefault("ledger.name", "ledgerd")
	viper.SetDefault("ledger.cors_origins", []string{})
	viper.SetDefault("ledger.rate_limit_rps", 0)
	viper.SetDefault("ledger.rate_limit_burst", 0)
	viper.SetDefault("ledger.signature_ttl", "5m")
	viper.SetDefault("auth.credential_hash", "")
	viper.SetDefault("database.url", "")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
		logger.Info("no config file found, using defaults and environment")
	}

	// ── Audit chain ──────────────────────────────────────────────────────────
	var ledger chain.Ledger = chain.New()
	if dbURL := viper.GetString("database.url"); dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		ledger = chain.NewPostgresLedger(pool, logger)
		logger.Info("audit chain persisted to PostgreSQL")
	}

	// ── HTTP Router ──────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := ledgerd.New(ledgerd.Config{
		Name:           viper.GetString("ledger.name"),
		CredentialHash: viper.GetString("auth.credential_hash"),
		CORSOrigins:    viper.GetStringSlice("ledger.cors_origins"),
		RateLimitRPS:   viper.GetFloat64("ledger.rate_limit_rps"),
		RateLimitBurst: viper.GetInt("ledger.rate_limit_burst"),
		SignatureTTL:   viper.GetDuration("ledger.signature_ttl"),
	}, ledger, logger)

	port := viper.GetInt("ledger.port")
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errc := make(chan error, 1)
	go func() {
		logger.Info("ledgerd listening",
			zap.Int("port", port),
			zap.Bool("auth", viper.GetString("auth.credential_hash") != ""),
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	select {
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	case <-quit:
	}
	logger.Info("shutting down ledgerd...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("ledgerd stopped")
	return nil
}
