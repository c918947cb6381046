package health

import (
	"github.com/eleven-am/shelfscan/internal/stream"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const servicePrefix = "shelfscan.stream."

func ServiceName(streamName string) string {
	return servicePrefix + streamName
}

func ServingStatus(state stream.State) healthpb.HealthCheckResponse_ServingStatus {
	if state == stream.StateStopped {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}

// BindStreams publishes each camera's state on the gRPC health service and
// keeps it current as streams start and stop.
func BindStreams(server *grpchealth.Server, publishers []*stream.Publisher) {
	server.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	for _, p := range publishers {
		name := ServiceName(p.Name())
		server.SetServingStatus(name, ServingStatus(p.State()))
		p.OnStateChange(func(s stream.State) {
			server.SetServingStatus(name, ServingStatus(s))
		})
	}
}
