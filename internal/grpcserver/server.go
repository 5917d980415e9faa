// Package grpcserver exposes the standard gRPC health checking protocol
// (grpc.health.v1.Health) so orchestrators can probe the service without
// going through the HTML front end.
package grpcserver

import (
	"context"
	"net"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/patric-chuzhbe/catfinder/internal/grpcserver/interceptor"
)

// ServiceName is the name under which the application reports its health.
// The empty service name reports the same status.
const ServiceName = "catfinder"

type pinger interface {
	Ping(ctx context.Context) error
}

func NewGRPCServer(addr string, db pinger) (*grpc.Server, net.Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptor.UnaryLoggingInterceptor([]string{
				healthpb.Health_Check_FullMethodName,
			}),
		),
	)
	healthpb.RegisterHealthServer(server, NewHealthHandler(db))

	return server, lis, nil
}
