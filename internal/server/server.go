package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"agui-bridge/internal/activity"
	"agui-bridge/internal/transport/connectrpc"
	"agui-bridge/internal/transport/sse"
)

const (
	// EndpointSSE is the endpoint for Server-Sent Events transport
	EndpointSSE = "/sse"
	// EndpointConnect is the endpoint for Connect RPC transport
	EndpointConnect = "/connect"
	// EndpointMetrics exposes Prometheus metrics.
	EndpointMetrics = "/metrics"
	// EndpointHealth reports liveness.
	EndpointHealth = "/healthz"
	// EndpointActivities maps channel activities to AG-UI messages.
	EndpointActivities = "/activities"
)

// Options configure a Server.
type Options struct {
	Addr   string
	Logger logrus.FieldLogger
	// Gatherer backs the metrics endpoint. Defaults to the global registry.
	Gatherer prometheus.Gatherer
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	log        logrus.FieldLogger
}

// New creates a new server instance with multiple transport endpoints.
// The SSE handler also serves "/" for clients that post to the root URL.
func New(opts Options, sseHandler *sse.Handler, connectHandler *connectrpc.Handler) *Server {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           Handler(opts, sseHandler, connectHandler),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: opts.Logger,
	}
}

// Handler builds the routed and wrapped HTTP handler.
func Handler(opts Options, sseHandler *sse.Handler, connectHandler *connectrpc.Handler) http.Handler {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()

	// SSE endpoint (explicit) and root
	mux.Handle(EndpointSSE, sseHandler)
	mux.Handle("/{$}", sseHandler)

	// Connect RPC endpoint
	if connectHandler != nil {
		path, handler := connectHandler.Route()
		mux.Handle(path, handler)
		// Also register explicit endpoint for convenience
		mux.Handle(EndpointConnect, handler)
	}

	mux.Handle(EndpointActivities, activity.NewHandler(opts.Logger))

	mux.Handle(EndpointMetrics, promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc(EndpointHealth, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	return CORS(Logging(opts.Logger, mux))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.WithFields(logrus.Fields{
		"addr":    s.httpServer.Addr,
		"sse":     EndpointSSE,
		"connect": connectrpc.RunAgentProcedure,
		"metrics": EndpointMetrics,
	}).Info("Starting AG-UI server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ShutdownTimeout shuts down the server with a default timeout
func (s *Server) ShutdownTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.Shutdown(ctx)
}
