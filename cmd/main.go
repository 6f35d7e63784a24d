package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Vinodvinum/LibraryManagement/internal/auth"
	"github.com/Vinodvinum/LibraryManagement/internal/config"
	"github.com/Vinodvinum/LibraryManagement/internal/database"
	"github.com/Vinodvinum/LibraryManagement/internal/events/ch"
	"github.com/Vinodvinum/LibraryManagement/internal/handlers"
	"github.com/Vinodvinum/LibraryManagement/internal/logging"
	"github.com/Vinodvinum/LibraryManagement/internal/repositories"
	"github.com/Vinodvinum/LibraryManagement/internal/services"
	"github.com/Vinodvinum/LibraryManagement/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Development(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	db, err := database.Open(ctx, cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer database.Close(db) //nolint:errcheck

	if err := database.Migrate(ctx, db, logger); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	bookRepo := repositories.NewBookRepository(db)
	patronRepo := repositories.NewPatronRepository(db)
	loanRepo := repositories.NewLoanRepository(db)

	var opts []services.Option
	if cfg.EventsEnabled() {
		logger.Info("Connecting to ClickHouse event sink",
			zap.String("host", cfg.ClickHouseHost),
			zap.Int("port", cfg.ClickHousePort),
			zap.String("database", cfg.ClickHouseDatabase),
			zap.Bool("tls", cfg.ClickHouseUseTLS),
		)
		sink, err := ch.NewSink(ch.Options{
			Host:     cfg.ClickHouseHost,
			Port:     cfg.ClickHousePort,
			Database: cfg.ClickHouseDatabase,
			User:     cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
			UseTLS:   cfg.ClickHouseUseTLS,
		})
		if err != nil {
			logger.Fatal("Failed to connect event sink", zap.Error(err))
		}
		defer sink.Close() //nolint:errcheck
		if err := sink.Initialize(ctx); err != nil {
			logger.Fatal("Failed to initialize event sink", zap.Error(err))
		}
		opts = append(opts, services.WithEventSink(sink))
	}

	libraryService := services.NewLibraryService(db, bookRepo, patronRepo, loanRepo, logger, opts...)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close() //nolint:errcheck
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to reach Redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	sessions := session.NewStore(rdb, cfg.SessionTTL)

	verifier, err := auth.ParseAccounts(cfg.Accounts)
	if err != nil {
		logger.Fatal("Invalid LIBRARY_ACCOUNTS", zap.Error(err))
	}

	router := handlers.NewRouter(logger, cfg.CORSOrigins)
	handlers.RegisterRoutes(router, libraryService, verifier, sessions, logger)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("Starting server", zap.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
}
