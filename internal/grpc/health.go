// Package grpc serves the standard gRPC health protocol for the books
// service so orchestrators can probe it without speaking HTTP
package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside ""
const ServiceName = "books.v1.BookService"

// Pinger reports whether the book store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// EventSink reports whether the event transport is usable
type EventSink interface {
	IsHealthy() bool
}

// HealthServer implements the gRPC health checking protocol
type HealthServer struct {
	grpc_health_v1.UnimplementedHealthServer
	store     Pinger
	publisher EventSink
	log       *zap.Logger
}

// NewHealthServer creates a new health check server; a nil publisher is
// treated as healthy
func NewHealthServer(store Pinger, publisher EventSink, log *zap.Logger) *HealthServer {
	return &HealthServer{
		store:     store,
		publisher: publisher,
		log:       log,
	}
}

// Check implements the health check
func (h *HealthServer) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	return &grpc_health_v1.HealthCheckResponse{Status: h.status(ctx)}, nil
}

// Watch sends the current status once and returns
func (h *HealthServer) Watch(req *grpc_health_v1.HealthCheckRequest, server grpc_health_v1.Health_WatchServer) error {
	return server.Send(&grpc_health_v1.HealthCheckResponse{Status: h.status(server.Context())})
}

func (h *HealthServer) status(ctx context.Context) grpc_health_v1.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.Error("Database health check failed", zap.Error(err))
		return grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}

	if h.publisher != nil && !h.publisher.IsHealthy() {
		h.log.Error("RabbitMQ health check failed")
		return grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}

	return grpc_health_v1.HealthCheckResponse_SERVING
}

// NewServer builds a gRPC server with request logging and the health
// service registered
func NewServer(health *HealthServer, log *zap.Logger) *grpc.Server {
	s := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(log)))
	grpc_health_v1.RegisterHealthServer(s, health)
	return s
}

// LoggingInterceptor logs all gRPC requests
func LoggingInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if err != nil {
			log.Error("gRPC request failed",
				zap.String("method", info.FullMethod),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
		} else {
			log.Debug("gRPC request completed",
				zap.String("method", info.FullMethod),
				zap.Duration("duration", time.Since(start)),
			)
		}

		return resp, err
	}
}
