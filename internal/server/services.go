package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"
)

// DefaultShutdownTimeout bounds how long in-flight requests may drain on Stop.
const DefaultShutdownTimeout = 10 * time.Second

// HTTPService runs an *http.Server under a Lifecycle.
type HTTPService struct {
	Server *http.Server
	// ShutdownTimeout defaults to DefaultShutdownTimeout when zero.
	ShutdownTimeout time.Duration
}

// Start serves until Stop is called.
//
// Postcondition: Returns nil after a graceful Stop, or the listen error.
func (s *HTTPService) Start() error {
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http on %s: %w", s.Server.Addr, err)
	}
	return nil
}

// Stop drains in-flight requests, then closes remaining connections.
func (s *HTTPService) Stop() {
	timeout := s.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Server.Shutdown(ctx); err != nil {
		_ = s.Server.Close()
	}
}

// GRPCService runs a *grpc.Server on Addr under a Lifecycle.
type GRPCService struct {
	Server *grpc.Server
	Addr   string
}

// Start listens on Addr and serves until Stop is called.
func (s *GRPCService) Start() error {
	lis, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.Addr, err)
	}
	if err := s.Server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serving grpc on %s: %w", s.Addr, err)
	}
	return nil
}

// Stop waits for pending RPCs, then stops the server.
func (s *GRPCService) Stop() {
	s.Server.GracefulStop()
}
