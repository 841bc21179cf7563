// Package main initializes and starts the GophMart API server, setting up
// configuration, logging, database connections, repositories, services,
// handlers, and optional TLS.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/GophMart/internal/config"
	"github.com/atinyakov/GophMart/internal/db"
	"github.com/atinyakov/GophMart/internal/logger"
	"github.com/atinyakov/GophMart/internal/repository"
	"github.com/atinyakov/GophMart/internal/server/handler/http"
	"github.com/atinyakov/GophMart/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, config file and environment configuration.
	options, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	// Purge soft-deleted items after 30 days, checking hourly.
	db.NewItemPurger(postgresDB, 30*24*time.Hour, zapLogger).Start(ctx, time.Hour)

	catalogRepo := repository.NewPostgresCatalogRepository(postgresDB)

	// Pick the cart backend.
	var cartRepo service.CartRepository
	switch options.CartStore {
	case config.CartStoreRedis:
		client := repository.NewRedisClient(options.RedisAddr)
		defer client.Close()
		redisRepo := repository.NewRedisCartRepository(client)
		if err := redisRepo.Ping(ctx); err != nil {
			zapLogger.Fatal("cannot reach redis", zap.String("addr", options.RedisAddr), zap.Error(err))
		}
		cartRepo = redisRepo
	default:
		cartRepo = repository.NewPostgresCartRepository(postgresDB)
	}
	zapLogger.Info("cart store selected", zap.String("store", options.CartStore))

	// Initialize business-logic services.
	catalogService := service.NewCatalogService(catalogRepo)
	cartService := service.NewCartService(cartRepo, catalogRepo)

	// Create HTTP handlers and build the router.
	catalogHandler := &http.CatalogHandler{CatalogService: catalogService}
	cartHandler := &http.CartHandler{CartService: cartService}
	router := http.NewRouter(catalogHandler, cartHandler, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	if options.TLSCert != "" && options.TLSKey != "" {
		server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		zapLogger.Info("starting HTTPS server", zap.String("addr", options.Port))
		err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
	} else {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Port))
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}
