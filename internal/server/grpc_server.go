package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/shida/shida-core/internal/config"
	"github.com/shida/shida-core/internal/errors"
)

// NewGRPCServer builds a gRPC server with health, reflection and the
// error-mapping interceptor installed, then registers every registrar.
func NewGRPCServer(logger *slog.Logger, registrars ...Registrar) (*grpc.Server, *health.Server) {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryErrorInterceptor(logger)),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)

	for _, r := range registrars {
		r.Register(grpcServer)
	}

	// enable reflection for easier debugging with grpcurl
	reflection.Register(grpcServer)

	return grpcServer, hs
}

// StartGRPCServer serves on the configured address until ctx is done, then
// reports NOT_SERVING and drains in-flight calls.
func StartGRPCServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, registrars ...Registrar) error {
	addr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return Serve(ctx, lis, logger, registrars...)
}

// Serve runs the server on lis. It returns nil after a shutdown triggered
// by ctx.
func Serve(ctx context.Context, lis net.Listener, logger *slog.Logger, registrars ...Registrar) error {
	grpcServer, hs := NewGRPCServer(logger, registrars...)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		logger.Info("stopping gRPC server")
		hs.Shutdown()
		grpcServer.GracefulStop()
	}()

	logger.Info("gRPC server listening", "addr", lis.Addr().String())
	if err := grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("grpc serve: %w", err)
	}
	<-stopped
	return nil
}

// UnaryErrorInterceptor turns domain errors returned by handlers into gRPC
// status errors. Handlers that already return a status pass through.
func UnaryErrorInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		if _, ok := status.FromError(err); ok {
			return resp, err
		}

		mapped := errors.Map(err)
		if status.Code(mapped) == codes.Internal {
			logger.Error("unhandled error", "method", info.FullMethod, "err", err)
		}
		return resp, mapped
	}
}
