package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"

	"github.com/tonyler/passivmos-web/internal/client"
	"github.com/tonyler/passivmos-web/internal/config"
	"github.com/tonyler/passivmos-web/internal/fetcher"
	"github.com/tonyler/passivmos-web/internal/market"
	"github.com/tonyler/passivmos-web/internal/portfolio"
	"github.com/tonyler/passivmos-web/internal/resolver"
	"github.com/tonyler/passivmos-web/internal/restapi"
	"github.com/tonyler/passivmos-web/pkg/metrics"
)

func main() {
	// logrus handles the bootstrap phase (config loading logs through it);
	// everything after wiring uses zap.
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize zap logger: %v", err)
	}
	defer zapLogger.Sync() //nolint:errcheck

	// Bridge slog to zap for libraries that log through the default slog.
	slogHandler := zapslog.NewHandler(zapLogger.Core(), &zapslog.HandlerOptions{})
	slog.SetDefault(slog.New(slogHandler))

	cfgPath := getEnv("CONFIG_PATH", "config/config.yaml")
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Warnf("Invalid log level in config: %s. Defaulting to Info.", cfg.Logging.Level)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	zapLogger.Info("Configuration loaded",
		zap.String("path", cfgPath),
		zap.Int("enabled_tokens", len(cfg.EnabledTokens())))

	metrics.MustRegisterMetrics()

	// processCtx ends on SIGINT/SIGTERM and stops the background loops.
	processCtx, stopProcess := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopProcess()

	enabledTokens := cfg.EnabledTokens()

	lcdClient := client.NewLCDClient(
		time.Duration(cfg.Portfolio.FetchTimeoutSeconds)*time.Second,
		zapLogger,
	)
	numiaClient := client.NewNumiaClient(
		cfg.Numia.BaseURL,
		cfg.Numia.APIKey,
		time.Duration(cfg.Numia.RequestTimeoutMillis)*time.Millisecond,
		zapLogger,
	)
	zapLogger.Info("Upstream clients initialized")

	marketService := market.NewService(enabledTokens, numiaClient, cfg.Market, zapLogger)
	go marketService.Start(processCtx)
	zapLogger.Info("Market data service started",
		zap.Int("refresh_interval_minutes", cfg.Market.RefreshIntervalMinutes))

	addrResolver := resolver.New(enabledTokens, zapLogger)
	balanceFetcher := fetcher.New(lcdClient, cfg.Portfolio, zapLogger)
	portfolioService := portfolio.NewService(cfg.Portfolio, enabledTokens, addrResolver, balanceFetcher, marketService, zapLogger)
	zapLogger.Info("Portfolio service initialized")

	router := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	router.Use(restapi.ZapLoggerMiddleware(zapLogger))
	router.Use(gin.Recovery())

	handler := restapi.NewHandler(portfolioService, marketService, cfg, zapLogger)
	restapi.RegisterRoutes(router, handler)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	zapLogger.Info("Prometheus metrics endpoint enabled", zap.String("path", "/metrics"))

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		zapLogger.Info(fmt.Sprintf("Server starting on port %s", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-processCtx.Done()
	zapLogger.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
