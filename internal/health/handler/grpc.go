package handler

import (
	"context"
	"log"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// checkTimeout bounds a single readiness probe.
const checkTimeout = 2 * time.Second

// Pinger checks database connectivity. *sql.DB implements it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks that the authorization engine can evaluate.
// *engine.OPAAuthorizer implements it.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server implements grpc.health.v1.Health for readiness and liveness, and backs GET /healthz.
type Server struct {
	healthpb.UnimplementedHealthServer
	pinger        Pinger
	policyChecker PolicyChecker
}

// NewServer returns a Health server. Nil checkers are skipped.
func NewServer(pinger Pinger, policyChecker PolicyChecker) *Server {
	return &Server{pinger: pinger, policyChecker: policyChecker}
}

// Ready runs every configured check and returns the first failure.
func (s *Server) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if s.pinger != nil {
		if err := s.pinger.PingContext(ctx); err != nil {
			log.Printf("health: database ping failed: %v", err)
			return err
		}
	}
	if s.policyChecker != nil {
		if err := s.policyChecker.HealthCheck(ctx); err != nil {
			log.Printf("health: policy check failed: %v", err)
			return err
		}
	}
	return nil
}

// Check reports SERVING when every check passes and NOT_SERVING otherwise.
// Check failures are reported in the status, never as an RPC error.
func (s *Server) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if err := s.Ready(ctx); err != nil {
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}
