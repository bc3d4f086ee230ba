package server

import (
	"context"
	"errors"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	healthhandler "qna-platform/backend/internal/health/handler"
)

// mockServiceRegistrar implements grpc.ServiceRegistrar for testing.
type mockServiceRegistrar struct {
	services []string
}

func (m *mockServiceRegistrar) RegisterService(desc *grpc.ServiceDesc, impl interface{}) {
	m.services = append(m.services, desc.ServiceName)
}

func TestRegisterServices_NilHealth(t *testing.T) {
	reg := &mockServiceRegistrar{}
	RegisterServices(reg, nil)
	if len(reg.services) != 1 || reg.services[0] != "grpc.health.v1.Health" {
		t.Errorf("services = %v, want [grpc.health.v1.Health]", reg.services)
	}
}

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error { return errors.New("db down") }

func TestGRPCServer_HealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		health *healthhandler.Server
		want   healthpb.HealthCheckResponse_ServingStatus
	}{
		{"serving", healthhandler.NewServer(nil, nil), healthpb.HealthCheckResponse_SERVING},
		{"db down", healthhandler.NewServer(failingPinger{}, nil), healthpb.HealthCheckResponse_NOT_SERVING},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lis := bufconn.Listen(1 << 20)
			srv := NewGRPCServer(tt.health)
			go func() { _ = srv.Serve(lis) }()
			defer srv.Stop()

			conn, err := grpc.NewClient("passthrough:///bufnet",
				grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
				grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				t.Fatalf("NewClient: %v", err)
			}
			defer conn.Close()

			resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if resp.GetStatus() != tt.want {
				t.Errorf("status = %v, want %v", resp.GetStatus(), tt.want)
			}
		})
	}
}
