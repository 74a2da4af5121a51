package prometheus

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/fluxorio/linehttpd/pkg/core"
)

// MetricsPath is where the exposition is served.
const MetricsPath = "/metrics"

// Server serves a Prometheus gatherer over fasthttp, separate from the
// line protocol listener.
type Server struct {
	addr   string
	logger core.Logger
	server *fasthttp.Server

	mu sync.Mutex
	ln net.Listener
}

// NewServer creates a metrics server for gatherer on addr.
func NewServer(addr string, gatherer prometheus.Gatherer, logger core.Logger) *Server {
	if gatherer == nil {
		gatherer = DefaultRegistry
	}
	if logger == nil {
		logger = core.NewDefaultLogger()
	}
	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	)

	s := &Server{addr: addr, logger: logger}
	s.server = &fasthttp.Server{
		Name: "linehttpd-metrics",
		Handler: func(ctx *fasthttp.RequestCtx) {
			switch string(ctx.Path()) {
			case MetricsPath:
				metricsHandler(ctx)
			case "/live":
				ctx.SetContentType("text/plain; charset=utf-8")
				ctx.SetBodyString("up")
			default:
				ctx.SetStatusCode(fasthttp.StatusNotFound)
			}
		},
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start listens on the configured address and serves until Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Stop.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	s.logger.Infof("metrics listening on %s%s", ln.Addr(), MetricsPath)
	err := s.server.Serve(ln)
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down, waiting for in-flight scrapes.
func (s *Server) Stop() error {
	return s.server.Shutdown()
}

// Addr returns the bound address, or "" before Serve.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}
