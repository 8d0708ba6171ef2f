package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/andrescamacho/spacetraders-autopilot/internal/application/common"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/automation"
	"github.com/andrescamacho/spacetraders-autopilot/internal/domain/shared"
)

// Automations is the orchestrator surface exposed over the socket
type Automations interface {
	Start(ctx context.Context, shipSymbol string, kind automation.BehaviorKind, overrides map[string]interface{}) (*automation.State, error)
	Stop(ctx context.Context, shipSymbol string) error
	Pause(ctx context.Context, shipSymbol string) error
	Resume(ctx context.Context, shipSymbol string) error
	Get(shipSymbol string) (*automation.State, bool)
	Queue(shipSymbol string) ([]automation.ActionStep, bool)
	GetAll() []automation.State
}

// CatalogSyncer refreshes the local waypoint and market catalog of a system
type CatalogSyncer interface {
	Sync(ctx context.Context, systemSymbol string) (int, error)
}

// DaemonServer serves the automation control API on a Unix domain socket
type DaemonServer struct {
	automations Automations
	catalog     CatalogSyncer
	logger      common.Logger
	grpcServer  *grpc.Server
}

// NewDaemonServer creates a daemon server. The gRPC server is built
// immediately so tests can serve it on any listener.
func NewDaemonServer(automations Automations, catalog CatalogSyncer, logger common.Logger) *DaemonServer {
	if logger == nil {
		logger = common.NoOpLogger()
	}
	s := &DaemonServer{
		automations: automations,
		catalog:     catalog,
		logger:      logger,
	}
	s.grpcServer = grpc.NewServer(
		grpc.ForceServerCodec(jsonCodec{}),
		grpc.ChainUnaryInterceptor(s.logErrors),
	)
	RegisterAutomationServiceServer(s.grpcServer, &automationService{daemon: s})
	return s
}

// ListenUnix creates the daemon socket, replacing a stale one, readable by
// the owner only
func ListenUnix(socketPath string) (net.Listener, error) {
	if err := os.RemoveAll(socketPath); err != nil {
		return nil, fmt.Errorf("failed to remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create unix socket listener: %w", err)
	}

	if err := os.Chmod(socketPath, 0600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to set socket permissions: %w", err)
	}
	return listener, nil
}

// Serve blocks serving requests on listener until Stop
func (s *DaemonServer) Serve(listener net.Listener) error {
	s.logger.Log("INFO", "Daemon server listening", map[string]interface{}{
		"address": listener.Addr().String(),
	})
	if err := s.grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("gRPC server error: %w", err)
	}
	return nil
}

// Stop drains in-flight requests and stops serving
func (s *DaemonServer) Stop() {
	s.grpcServer.GracefulStop()
}

func (s *DaemonServer) logErrors(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		s.logger.Log("WARNING", "Request failed", map[string]interface{}{
			"method": info.FullMethod,
			"error":  err.Error(),
		})
	}
	return resp, err
}

// toStatus maps application errors onto gRPC status codes
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	var validationErr *shared.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case shared.IsTransient(err):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
