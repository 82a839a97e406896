package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/netutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"cellexec/api/execrpc"
	"cellexec/internal/config"
)

// Serve runs the gRPC server until ctx is cancelled, then stops gracefully.
// In-flight executions get the configured grace period before a hard stop.
func Serve(ctx context.Context, cfg *config.Config, srv *Server, logger *zap.Logger) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", cfg.Server.Port, err)
	}
	if cfg.Server.MaxConnections > 0 {
		lis = netutil.LimitListener(lis, cfg.Server.MaxConnections)
	}

	grpcServer := grpc.NewServer(
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             30 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.ChainUnaryInterceptor(loggingInterceptor(logger)),
	)

	execrpc.RegisterCellExecutorServer(grpcServer, srv)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	reflection.Register(grpcServer)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gRPC server listening",
			zap.Int("port", cfg.Server.Port),
			zap.Int("max_connections", cfg.Server.MaxConnections))
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	logger.Info("shutting down gRPC server", zap.Duration("grace", cfg.ShutdownGrace()))

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(cfg.ShutdownGrace()):
		logger.Warn("graceful stop timed out, stopping hard")
		grpcServer.Stop()
		<-stopped
	}
	<-errCh
	return nil
}

// loggingInterceptor logs every unary call with its duration and outcome.
func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			logger.Warn("rpc failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("rpc handled", fields...)
		}
		return resp, err
	}
}
