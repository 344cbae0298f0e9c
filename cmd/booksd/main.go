package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErickPolzin/Crud/internal/catalog"
	"github.com/ErickPolzin/Crud/internal/config"
	"github.com/ErickPolzin/Crud/internal/db"
	"github.com/ErickPolzin/Crud/internal/events"
	grpcserver "github.com/ErickPolzin/Crud/internal/grpc"
	"github.com/ErickPolzin/Crud/internal/httpapi"
	"github.com/ErickPolzin/Crud/internal/metrics"
	"github.com/ErickPolzin/Crud/internal/repo"
	"github.com/ErickPolzin/Crud/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"google.golang.org/grpc/reflection"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log := logger.NewLogger(cfg.ServiceName, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	log.Info("Books service starting", zap.String("db_driver", cfg.DBDriver))

	// Connect to database
	dbOpts := db.DefaultOptions()
	if cfg.LogLevel == "debug" {
		dbOpts.LogLevel = gormlogger.Info
	}
	database, err := db.Connect(cfg.DBDriver, cfg.DBDSN, dbOpts)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() { _ = database.Close() }()

	log.Info("Running database migrations...")
	if err := db.RunMigrations(database); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	bookRepo := repo.NewBookRepository(database, log, cfg.StoreTimeout)

	// Events are optional
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		log.Info("Connecting to RabbitMQ")
		amqpPublisher, err := events.NewAMQPPublisher(cfg.RabbitMQURL, log)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		publisher = amqpPublisher
	} else {
		log.Info("RABBITMQ_URL not set, book events disabled")
	}
	defer func() { _ = publisher.Close() }()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	service := catalog.NewService(bookRepo, publisher, log,
		catalog.WithMaxLimit(cfg.MaxPageLimit),
		catalog.WithRecorder(m),
	)
	if err := m.RegisterBookCount(service.Stats); err != nil {
		log.Fatal("Failed to register book gauge", zap.Error(err))
	}

	// gRPC health server
	grpcServer := grpcserver.NewServer(grpcserver.NewHealthServer(database, publisher, log), log)
	reflection.Register(grpcServer)

	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		log.Fatal("Failed to listen on gRPC port", zap.Error(err))
	}

	go func() {
		log.Info("Starting gRPC server", zap.String("address", grpcListener.Addr().String()))
		if err := grpcServer.Serve(grpcListener); err != nil {
			log.Fatal("Failed to serve gRPC", zap.Error(err))
		}
	}()

	// HTTP API
	handler := httpapi.NewServer(service, log, httpapi.Options{
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Metrics:        m,
		Health:         database.Ping,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	grpcServer.GracefulStop()

	// Let in-flight events reach the broker before the connection closes.
	service.Drain()

	log.Info("Server stopped")
}
