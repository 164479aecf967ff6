package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/solatis/geokeeper/internal/types"
)

// contextKey is a typed key for context values to avoid collisions.
type contextKey string

const requestIDKey = contextKey("request_id")

// RequestIDHeader carries the request id on both transports. gRPC metadata
// keys are lower-cased on the wire.
const RequestIDHeader = "X-Request-ID"

// requestID accepts a caller-supplied UUID or generates a UUIDv7.
func requestID(supplied string) types.RequestID {
	if supplied != "" {
		if id, err := types.ParseRequestID(supplied); err == nil {
			return id
		}
	}
	return types.NewRequestID()
}

// RequestIDFromContext extracts the request id. Returns empty string if not found.
func RequestIDFromContext(ctx context.Context) types.RequestID {
	if id, ok := ctx.Value(requestIDKey).(types.RequestID); ok {
		return id
	}
	return ""
}

// withDeadline bounds a request by timeout unless it is zero.
func withDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// UnaryInterceptor tags each call with a request id, applies the request
// timeout and logs the outcome.
func UnaryInterceptor(log zerolog.Logger, timeout time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		var supplied string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(RequestIDHeader); len(vals) > 0 {
				supplied = vals[0]
			}
		}
		id := requestID(supplied)
		grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, string(id)))

		ctx, cancel := withDeadline(context.WithValue(ctx, requestIDKey, id), timeout)
		defer cancel()

		start := time.Now()
		resp, err := handler(ctx, req)

		ev := log.Info()
		if err != nil {
			ev = log.Warn().Err(err)
		}
		ev.Str("request_id", string(id)).
			Str("method", info.FullMethod).
			Str("code", status.Code(err).String()).
			Dur("elapsed", time.Since(start)).
			Msg("grpc request")
		return resp, err
	}
}

// RequestLogger is the HTTP counterpart of UnaryInterceptor.
func RequestLogger(log zerolog.Logger, timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := requestID(r.Header.Get(RequestIDHeader))
			w.Header().Set(RequestIDHeader, string(id))

			ctx, cancel := withDeadline(context.WithValue(r.Context(), requestIDKey, id), timeout)
			defer cancel()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(ctx))

			ev := log.Info()
			if ww.Status() >= http.StatusInternalServerError {
				ev = log.Warn()
			}
			ev.Str("request_id", string(id)).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Msg("http request")
		})
	}
}
