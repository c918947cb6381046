package health

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/eleven-am/shelfscan/internal/stream"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type closedSource struct{}

func (closedSource) Open() error { return errors.New("no device") }
func (closedSource) Read(context.Context) (image.Image, error) { return nil, errors.New("unreachable") }
func (closedSource) Close() error { return nil }

func check(t *testing.T, server *grpchealth.Server, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := server.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q): %v", service, err)
	}
	return resp.GetStatus()
}

func TestServingStatus(t *testing.T) {
	if ServingStatus(stream.StateIdle) != healthpb.HealthCheckResponse_SERVING {
		t.Error("idle stream should be serving")
	}
	if ServingStatus(stream.StateStreaming) != healthpb.HealthCheckResponse_SERVING {
		t.Error("streaming stream should be serving")
	}
	if ServingStatus(stream.StateStopped) != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Error("stopped stream should not be serving")
	}
}

func TestBindStreams_TracksStateChanges(t *testing.T) {
	pub := stream.NewPublisher(stream.Config{Name: "camera-3", Source: closedSource{}})
	server := grpchealth.NewServer()
	BindStreams(server, []*stream.Publisher{pub})

	if got := check(t, server, ""); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("expected overall serving, got %s", got)
	}
	if got := check(t, server, "shelfscan.stream.camera-3"); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("expected idle camera serving, got %s", got)
	}

	if err := pub.Start(context.Background()); err == nil {
		t.Fatal("expected camera open failure")
	}
	if got := check(t, server, ServiceName("camera-3")); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("expected stopped camera not serving, got %s", got)
	}
}
