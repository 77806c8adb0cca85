package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/DRSN-tech/style-catalog/internal/cfg"
	"github.com/DRSN-tech/style-catalog/internal/usecase"
	"github.com/DRSN-tech/style-catalog/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

type GRPCServer struct {
	server *grpc.Server
	cfg    *cfg.GRPCConfig
	logger logger.Logger
}

func NewGRPCServer(cfg *cfg.GRPCConfig, logger logger.Logger) *GRPCServer {
	return &GRPCServer{
		server: grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor(logger))),
		cfg:    cfg,
		logger: logger,
	}
}

func (s *GRPCServer) RegisterServices(catalogUC usecase.CatalogUC) {
	s.server.RegisterService(&CatalogServiceDesc, NewCatalogService(catalogUC, s.logger))
}

func (s *GRPCServer) Start() error {
	addr := fmt.Sprintf(":%s", s.cfg.Port)
	lis, err := net.Listen(s.cfg.NetworkMode, addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return s.Serve(lis)
}

// Serve обслуживает готовый listener, в тестах это bufconn.
func (s *GRPCServer) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

func (s *GRPCServer) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Infof("gRPC server stopped gracefully")
		return nil
	case <-ctx.Done():
		s.server.Stop()
		s.logger.Warnf("gRPC server forced to stop after timeout")
		return ctx.Err()
	}
}

func loggingInterceptor(log logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Debugf("%s %s in %v", info.FullMethod, status.Code(err), time.Since(start))
		return resp, err
	}
}
