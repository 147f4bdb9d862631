package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// readHeaderTimeout bounds slow clients on the diagnostics port.
const readHeaderTimeout = 5 * time.Second

// DiagnosticsServer exposes /healthz, /readyz and /metrics over HTTP.
type DiagnosticsServer struct {
	server   *http.Server
	listener net.Listener
}

// DiagnosticsDeps configures a DiagnosticsServer.
type DiagnosticsDeps struct {
	// Metrics serves /metrics. Nil omits the endpoint.
	Metrics http.Handler
	// Tracer wraps every endpoint in a server span. Nil disables tracing.
	Tracer trace.Tracer
	// RED counts requests. Nil disables request metrics.
	RED *REDMetrics
	// Logger reports serve failures. Nil uses slog default.
	Logger *slog.Logger
	// Ready are the readiness checks behind /readyz.
	Ready []ReadyCheck
}

// NewDiagnosticsServer listens on addr and serves in the background until Close.
func NewDiagnosticsServer(ctx context.Context, addr string, deps DiagnosticsDeps) (*DiagnosticsServer, error) {
	mux := http.NewServeMux()

	mux.Handle("/healthz", HealthHandler())
	mux.Handle("/readyz", ReadyHandler(deps.Ready...))

	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics)
	}

	var handler http.Handler = mux
	if deps.Tracer != nil {
		handler = HTTPMiddleware(deps.Tracer, deps.RED, mux)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var lc net.ListenConfig

	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: readHeaderTimeout}

	go func() {
		serveErr := srv.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Warn("diagnostics server stopped", "error", serveErr)
		}
	}()

	return &DiagnosticsServer{server: srv, listener: listener}, nil
}

// Addr returns the address the server is listening on.
func (d *DiagnosticsServer) Addr() string {
	return d.listener.Addr().String()
}

// Close gracefully shuts down the diagnostics server.
func (d *DiagnosticsServer) Close(ctx context.Context) error {
	err := d.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown diagnostics server: %w", err)
	}

	return nil
}
