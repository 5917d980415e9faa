// Package interceptor holds the unary interceptors of the gRPC server.
package interceptor

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/catfinder/internal/logger"
)

// UnaryLoggingInterceptor logs the listed unary methods with their duration
// and resulting status code. Failed calls are logged at warn level.
func UnaryLoggingInterceptor(loggedMethods []string) grpc.UnaryServerInterceptor {
	logged := make(map[string]struct{}, len(loggedMethods))
	for _, m := range loggedMethods {
		logged[m] = struct{}{}
	}

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if _, ok := logged[info.FullMethod]; !ok {
			return handler(ctx, req)
		}

		start := time.Now()
		resp, err := handler(ctx, req)
		st, _ := status.FromError(err)

		fields := []interface{}{
			"method", info.FullMethod,
			"duration", time.Since(start),
			"code", st.Code().String(),
		}
		if st.Code() != codes.OK {
			logger.Log.Warnw("gRPC request failed", append(fields, "message", st.Message())...)
		} else {
			logger.Log.Debugw("gRPC request", fields...)
		}

		return resp, err
	}
}
