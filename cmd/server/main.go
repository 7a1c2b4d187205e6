package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ynprojects/logistics/internal/adapter/handler"
	"github.com/ynprojects/logistics/internal/adapter/storage"
	"github.com/ynprojects/logistics/internal/core/service"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	httpAddr := getenv("HTTP_ADDR", ":8080")
	mysqlDSN := getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/logistics?parseTime=true")
	redisAddr := getenv("REDIS_ADDR", "localhost:6379")
	sweepInterval, err := time.ParseDuration(getenv("SWEEP_INTERVAL", "1h"))
	if err != nil {
		logger.Fatal("invalid SWEEP_INTERVAL", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL
	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		logger.Fatal("failed to open mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping mysql", zap.Error(err))
	}
	logger.Info("connected to mysql")

	// Redis
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	logger.Info("connected to redis")

	// Adapters and services
	store := storage.NewMySQLStore(db)
	seq := storage.NewRedisSequence(rdb)
	alerts := service.NewAlertRegister(store)
	orderService := service.NewOrderService(store, alerts, logger)
	shipmentService := service.NewShipmentService(store, seq, alerts, logger)
	scheduler := service.NewScheduler(store, orderService, shipmentService, alerts, logger, sweepInterval)

	go scheduler.Run(ctx)
	logger.Info("fulfillment scheduler started", zap.Duration("interval", sweepInterval))

	// HTTP server
	httpHandler := handler.NewHTTPHandler(orderService, shipmentService, store)
	mux := http.NewServeMux()
	httpHandler.Register(mux)

	httpServer := &http.Server{
		Addr:    httpAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", httpAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("HTTP server stopped")

	cancel()

	rdb.Close()
	db.Close()
	logger.Info("connections closed")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
