package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/at-ishikawa/civics/internal/content"
	"github.com/at-ishikawa/civics/internal/library"
)

var (
	rpcRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civics_rpc_requests_total",
		Help: "Connect RPCs handled, by procedure and code.",
	}, []string{"procedure", "code"})
	rpcDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "civics_rpc_duration_seconds",
		Help:    "Connect RPC latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"procedure"})
)

// NewObservabilityInterceptor logs and counts every unary call.
func NewObservabilityInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			procedure := req.Spec().Procedure
			start := time.Now()
			resp, err := next(ctx, req)
			elapsed := time.Since(start)

			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
			}
			rpcRequests.WithLabelValues(procedure, code).Inc()
			rpcDuration.WithLabelValues(procedure).Observe(elapsed.Seconds())

			level := slog.LevelDebug
			var connectErr *connect.Error
			if err != nil && (!errors.As(err, &connectErr) || connectErr.Code() == connect.CodeInternal) {
				level = slog.LevelError
			}
			logger.Log(ctx, level, "rpc",
				"procedure", procedure,
				"code", code,
				"duration", elapsed,
				"error", err,
			)
			return resp, err
		}
	}
}

// NewHTTPHandler serves both services, /metrics and /healthz over HTTP/1.1 and h2c.
func NewHTTPHandler(tree *content.Tree, lib *library.Library, allowedOrigins []string, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	opts := connect.WithInterceptors(NewObservabilityInterceptor(logger))

	mux := http.NewServeMux()
	mux.Handle(NewContentServiceHandler(NewContentHandler(tree), opts))
	mux.Handle(NewLibraryServiceHandler(NewLibraryHandler(tree, lib, logger), opts))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return corsMiddleware(h2c.NewHandler(mux, &http2.Server{}), allowedOrigins)
}

func corsMiddleware(next http.Handler, allowedOrigins []string) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowed[origin] || allowed["*"] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Grpc-Status, Grpc-Message, Grpc-Status-Details-Bin")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
